package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/susu3304/nkmzplayer/internal/config"
	"github.com/susu3304/nkmzplayer/internal/db"
	"github.com/susu3304/nkmzplayer/internal/player"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

const testGuild = "175928847299117063"

type fakePlayer struct {
	calls    []string
	err      error
	skipped  player.Outcome
	snapshot player.Snapshot
}

func (p *fakePlayer) Snapshot(guildID string) (player.Snapshot, bool) {
	s := p.snapshot
	s.GuildID = guildID
	return s, true
}

func (p *fakePlayer) Pause(ctx context.Context, guildID string) error {
	p.calls = append(p.calls, "pause:"+guildID)
	return p.err
}

func (p *fakePlayer) Resume(ctx context.Context, guildID string) error {
	p.calls = append(p.calls, "resume:"+guildID)
	return p.err
}

func (p *fakePlayer) Skip(ctx context.Context, guildID string) (player.Outcome, error) {
	p.calls = append(p.calls, "skip:"+guildID)
	return p.skipped, p.err
}

func (p *fakePlayer) Stop(ctx context.Context, guildID string) error {
	p.calls = append(p.calls, "stop:"+guildID)
	return p.err
}

type fakeHistory []db.Play

func (h fakeHistory) RecentPlays(ctx context.Context, guildID string, limit int) ([]db.Play, error) {
	if limit < len(h) {
		return h[:limit], nil
	}
	return h, nil
}

func newTestAPI(t *testing.T, p Player, h History) *API {
	t.Helper()
	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer discord-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/users/@me/guilds" {
			json.NewEncoder(w).Encode([]DiscordGuild{{ID: testGuild, Name: "home"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(discord.Close)

	a := New(&config.Config{JWTSecret: "test-secret"}, p, h)
	a.discordAPI = discord.URL
	return a
}

func token(t *testing.T, a *API) string {
	t.Helper()
	tok, err := a.issueToken(&DiscordUser{ID: "42", Username: "someone"}, "discord-token")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(a *API, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	return w
}

func TestPlayerStatus(t *testing.T) {
	now := player.Track{Title: "song"}
	p := &fakePlayer{snapshot: player.Snapshot{State: player.StatePlaying, NowPlaying: &now, Queue: []player.Track{}}}
	a := newTestAPI(t, p, nil)

	w := do(a, "GET", "/api/public/guilds/"+testGuild+"/player", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != "playing" || body["guild_id"] != testGuild {
		t.Errorf("body = %v", body)
	}

	if w := do(a, "GET", "/api/public/guilds/abc/player", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid guild status = %d", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := fakeHistory{
		{Title: "a", StartedAt: time.Unix(2, 0)},
		{Title: "b", StartedAt: time.Unix(1, 0)},
	}
	a := newTestAPI(t, &fakePlayer{}, h)

	w := do(a, "GET", "/api/public/guilds/"+testGuild+"/history?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var plays []db.Play
	if err := json.NewDecoder(w.Body).Decode(&plays); err != nil {
		t.Fatal(err)
	}
	if len(plays) != 1 || plays[0].Title != "a" {
		t.Errorf("plays = %+v", plays)
	}

	if w := do(a, "GET", "/api/public/guilds/"+testGuild+"/history?limit=x", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}

	disabled := newTestAPI(t, &fakePlayer{}, nil)
	if w := do(disabled, "GET", "/api/public/guilds/"+testGuild+"/history", ""); w.Code != http.StatusNotFound {
		t.Errorf("disabled history status = %d", w.Code)
	}
}

func TestPlayerControlRequiresToken(t *testing.T) {
	a := newTestAPI(t, &fakePlayer{}, nil)

	if w := do(a, "POST", "/api/guilds/"+testGuild+"/player/pause", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", w.Code)
	}
	if w := do(a, "POST", "/api/guilds/"+testGuild+"/player/pause", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d", w.Code)
	}
}

func TestPlayerControl(t *testing.T) {
	p := &fakePlayer{}
	a := newTestAPI(t, p, nil)
	tok := token(t, a)

	for _, action := range []string{"pause", "resume", "skip", "stop"} {
		w := do(a, "POST", "/api/guilds/"+testGuild+"/player/"+action, tok)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, body %s", action, w.Code, w.Body.String())
		}
	}
	want := []string{"pause:" + testGuild, "resume:" + testGuild, "skip:" + testGuild, "stop:" + testGuild}
	if strings.Join(p.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v", p.calls)
	}

	if w := do(a, "POST", "/api/guilds/"+testGuild+"/player/dance", tok); w.Code != http.StatusNotFound {
		t.Errorf("unknown action status = %d", w.Code)
	}
	if w := do(a, "POST", "/api/guilds/1234/player/pause", tok); w.Code != http.StatusForbidden {
		t.Errorf("foreign guild status = %d", w.Code)
	}
}

func TestPlayerControlErrors(t *testing.T) {
	p := &fakePlayer{err: &player.Error{Op: "pause", Kind: player.KindStateConflict, Err: player.ErrNotPlaying}}
	a := newTestAPI(t, p, nil)
	tok := token(t, a)

	w := do(a, "POST", "/api/guilds/"+testGuild+"/player/pause", tok)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "Nothing is playing!") {
		t.Errorf("conflict = %d %s", w.Code, w.Body.String())
	}

	p.err = nil
	p.skipped = player.NothingToSkip
	w = do(a, "POST", "/api/guilds/"+testGuild+"/player/skip", tok)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "nothing to skip") {
		t.Errorf("nothing to skip = %d %s", w.Code, w.Body.String())
	}
}

func TestLoginReturnsState(t *testing.T) {
	a := newTestAPI(t, &fakePlayer{}, nil)
	w := do(a, "GET", "/api/auth/login", "")

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["state"] == "" || !strings.Contains(body["auth_url"], "state="+body["state"]) {
		t.Errorf("login body = %v", body)
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	a := newTestAPI(t, &fakePlayer{}, nil)

	for _, q := range []string{"code=abc", "code=abc&state=forged"} {
		w := do(a, "GET", "/api/auth/callback?"+q, "")
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "invalid state") {
			t.Errorf("%s: status = %d, body %s", q, w.Code, w.Body.String())
		}
	}

	state := a.sessions.newState()
	if !a.sessions.consumeState(state) {
		t.Fatalf("issued state rejected")
	}
	if a.sessions.consumeState(state) {
		t.Errorf("state accepted twice")
	}
}

func TestTokenKeepsAccessTokenServerSide(t *testing.T) {
	a := newTestAPI(t, &fakePlayer{}, nil)
	tok := token(t, a)

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d parts", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(payload), "discord-token") {
		t.Errorf("token payload exposes the Discord access token: %s", payload)
	}

	if w := do(a, "GET", "/api/user/guilds", tok); w.Code != http.StatusOK {
		t.Fatalf("guilds status = %d, body %s", w.Code, w.Body.String())
	}
	if w := do(a, "POST", "/api/auth/logout", tok); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	if w := do(a, "GET", "/api/user/guilds", tok); w.Code != http.StatusUnauthorized {
		t.Errorf("guilds after logout status = %d, want 401", w.Code)
	}
}
