// Package lavalink drives a Lavalink v4 node: REST player commands, track
// search and the websocket event stream.
package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/player"
	"golang.org/x/time/rate"
)

const (
	clientName       = "nkmzplayer/1.0"
	requestTimeout   = 10 * time.Second
	reconnectBackoff = 5 * time.Second
)

// ErrNotReady is returned by player commands issued before the node
// reported its session id.
var ErrNotReady = errors.New("lavalink node not ready")

type Config struct {
	Host         string
	Port         int
	Password     string
	Secure       bool
	SearchPrefix string
}

func (c Config) baseURL(scheme string) string {
	if c.Secure {
		scheme += "s"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// Listener receives node events. Events for one guild are delivered in order.
type Listener interface {
	OnTrackStart(player.TrackStart)
	OnTrackEnd(player.TrackEnd)
	OnTrackException(player.TrackException)
}

// StatusError is a non-2xx response from the node REST API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lavalink returned status %d: %s", e.Status, e.Message)
}

// Client implements player.Node against a single Lavalink node.
type Client struct {
	cfg      Config
	http     *http.Client
	voice    *Voice
	listener Listener
	limiter  *rate.Limiter
	events   *serialGroup
	log      zerolog.Logger

	mu        sync.RWMutex
	sessionID string
	// players holds the voice credentials sent for each guild with a node player.
	players map[string]player.Credentials
}

func NewClient(cfg Config, voice *Voice, listener Listener) *Client {
	if cfg.SearchPrefix == "" {
		cfg.SearchPrefix = "scsearch"
	}
	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: requestTimeout},
		voice:    voice,
		listener: listener,
		limiter:  rate.NewLimiter(rate.Every(reconnectBackoff), 1),
		events:   newSerialGroup(),
		log:      log.With().Str("module", "lavalink.node").Logger(),
		players:  make(map[string]player.Credentials),
	}
	voice.OnChange(c.voiceChanged)
	return c
}

func (c *Client) session() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sessionID == "" {
		return "", ErrNotReady
	}
	return c.sessionID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.baseURL("http")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.cfg.Password)
	req.Header.Set("User-Agent", clientName)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lavalink %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode lavalink response: %w", err)
	}
	return nil
}

// Search resolves query with the configured search prefix. URLs are loaded as is.
func (c *Client) Search(ctx context.Context, query string) ([]player.Track, error) {
	identifier := query
	if !strings.HasPrefix(query, "http://") && !strings.HasPrefix(query, "https://") {
		identifier = c.cfg.SearchPrefix + ":" + query
	}

	var res loadResult
	if err := c.do(ctx, http.MethodGet, "/v4/loadtracks?identifier="+url.QueryEscape(identifier), nil, &res); err != nil {
		return nil, err
	}

	var raw []apiTrack
	switch res.LoadType {
	case "track":
		var t apiTrack
		if err := json.Unmarshal(res.Data, &t); err != nil {
			return nil, fmt.Errorf("failed to decode track: %w", err)
		}
		raw = []apiTrack{t}
	case "search":
		if err := json.Unmarshal(res.Data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode search results: %w", err)
		}
	case "playlist":
		var pl playlistData
		if err := json.Unmarshal(res.Data, &pl); err != nil {
			return nil, fmt.Errorf("failed to decode playlist: %w", err)
		}
		raw = pl.Tracks
	case "empty":
		return nil, nil
	case "error":
		var ex exception
		if err := json.Unmarshal(res.Data, &ex); err != nil {
			return nil, errors.New("load failed")
		}
		return nil, fmt.Errorf("load failed: %s", ex.Message)
	default:
		return nil, fmt.Errorf("unknown load type %q", res.LoadType)
	}

	tracks := make([]player.Track, 0, len(raw))
	for _, t := range raw {
		tracks = append(tracks, t.toTrack())
	}
	return tracks, nil
}

func (c *Client) updatePlayer(ctx context.Context, guildID string, update playerUpdate) error {
	sid, err := c.session()
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", sid, guildID)
	return c.do(ctx, http.MethodPatch, path, update, nil)
}

// Play replaces the guild's current track with t.
func (c *Client) Play(ctx context.Context, guildID string, t player.Track) error {
	encoded := t.Encoded
	paused := false
	update := playerUpdate{
		Track:  &trackUpdate{Encoded: &encoded},
		Paused: &paused,
	}
	if t.RequesterID != "" {
		update.Track.UserData = &userData{RequesterID: t.RequesterID}
	}
	return c.updatePlayer(ctx, guildID, update)
}

func (c *Client) Pause(ctx context.Context, guildID string, paused bool) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Paused: &paused})
}

func (c *Client) Stop(ctx context.Context, guildID string) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Track: &trackUpdate{}})
}

// Connect hands the guild's voice credentials to the node, creating its player.
func (c *Client) Connect(ctx context.Context, guildID string, creds player.Credentials) error {
	if err := c.sendVoice(ctx, guildID, creds); err != nil {
		return err
	}
	c.mu.Lock()
	c.players[guildID] = creds
	c.mu.Unlock()
	return nil
}

func (c *Client) sendVoice(ctx context.Context, guildID string, creds player.Credentials) error {
	return c.updatePlayer(ctx, guildID, playerUpdate{Voice: &voiceState{
		Token:     creds.Token,
		Endpoint:  creds.Endpoint,
		SessionID: creds.SessionID,
	}})
}

// Disconnect destroys the guild's node player. A player the node does not
// know is already gone.
func (c *Client) Disconnect(ctx context.Context, guildID string) error {
	c.mu.Lock()
	delete(c.players, guildID)
	sid := c.sessionID
	c.mu.Unlock()
	c.voice.Forget(guildID)

	if sid == "" {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/v4/sessions/%s/players/%s", sid, guildID), nil, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) AwaitCredentials(ctx context.Context, guildID string) (player.Credentials, error) {
	return c.voice.Await(ctx, guildID)
}

// voiceChanged re-sends credentials for guilds whose player is live.
func (c *Client) voiceChanged(guildID string, creds player.Credentials) {
	c.mu.RLock()
	_, live := c.players[guildID]
	c.mu.RUnlock()
	if !live {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := c.sendVoice(ctx, guildID, creds); err != nil {
		c.log.Warn().Str("guild", guildID).Err(err).Msg("failed to forward voice server change")
		return
	}
	c.mu.Lock()
	if _, ok := c.players[guildID]; ok {
		c.players[guildID] = creds
	}
	c.mu.Unlock()
	c.log.Info().Str("guild", guildID).Msg("voice server changed, credentials forwarded")
}
