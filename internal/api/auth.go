package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenLifetime = 24 * time.Hour

// Claims identify the user. The Discord access token stays server-side,
// keyed by the registered claims ID.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type principal struct {
	claims      *Claims
	accessToken string
}

type principalKey struct{}

func claimsFrom(ctx context.Context) *Claims {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.claims
}

func accessTokenFrom(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.accessToken
}

// Auth handlers
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := a.sessions.newState()
	url := a.oauthConfig.AuthCodeURL(state)

	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": url,
		"state":    state,
	})
}

func (a *API) authenticateUser(ctx context.Context, code string) (string, *DiscordUser, error) {
	token, err := a.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("token exchange failed: %w", err)
	}

	user, err := a.getDiscordUser(ctx, token.AccessToken)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	tokenString, err := a.issueToken(user, token.AccessToken)
	if err != nil {
		return "", nil, err
	}
	return tokenString, user, nil
}

func (a *API) issueToken(user *DiscordUser, accessToken string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: getUsername(user),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	a.sessions.put(claims.ID, accessToken)
	return tokenString, nil
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	if !a.sessions.consumeState(r.URL.Query().Get("state")) {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}

	tokenString, user, err := a.authenticateUser(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":    tokenString,
		"user_id":  user.ID,
		"username": getUsername(user),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims, err := a.parseToken(r); err == nil {
		a.sessions.drop(claims.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

func (a *API) parseToken(r *http.Request) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("missing authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, errors.New("invalid authorization header")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Middleware
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parseToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		accessToken, ok := a.sessions.accessToken(claims.ID)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal{claims: claims, accessToken: accessToken})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
