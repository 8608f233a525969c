package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/config"
	"github.com/susu3304/nkmzplayer/internal/db"
	"github.com/susu3304/nkmzplayer/internal/player"
	"golang.org/x/oauth2"
)

const discordAPIBase = "https://discord.com/api"

// Player is the part of the player controller the API drives.
type Player interface {
	Snapshot(guildID string) (player.Snapshot, bool)
	Pause(ctx context.Context, guildID string) error
	Resume(ctx context.Context, guildID string) error
	Skip(ctx context.Context, guildID string) (player.Outcome, error)
	Stop(ctx context.Context, guildID string) error
}

type History interface {
	RecentPlays(ctx context.Context, guildID string, limit int) ([]db.Play, error)
}

type API struct {
	router      *mux.Router
	player      Player
	history     History
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	sessions    *sessionStore
	discordAPI  string
	httpClient  *http.Client
}

// New builds the API. history may be nil.
func New(cfg *config.Config, p Player, history History) *API {
	api := &API{
		router:     mux.NewRouter(),
		player:     p,
		history:    history,
		config:     cfg,
		jwtSecret:  []byte(cfg.JWTSecret),
		sessions:   newSessionStore(),
		discordAPI: discordAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/public/guilds/{guild_id}/player", a.handlePlayerStatus).Methods("GET")
	a.router.HandleFunc("/api/public/guilds/{guild_id}/history", a.handleHistory).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/user/guilds", a.handleUserGuilds).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/player/{action}", a.handlePlayerControl).Methods("POST")
}

func (a *API) Handler() http.Handler {
	// Bearer tokens, not cookies, so credentials stay off with a wildcard origin.
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until ctx is cancelled.
func (a *API) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Str("module", "api").Err(err).Msg("API server shutdown")
		}
	}()

	log.Info().Str("module", "api").Str("addr", a.config.WebBind).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
