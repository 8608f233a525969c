package lavalink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/susu3304/nkmzplayer/internal/player"
)

// Run keeps the event websocket connected until ctx is cancelled.
// Reconnect attempts are rate limited.
func (c *Client) Run(ctx context.Context, userID string) error {
	c.voice.SetUserID(userID)

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
		err := c.listen(ctx, userID)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn().Err(err).Msg("node connection lost, reconnecting")
	}
}

func (c *Client) listen(ctx context.Context, userID string) error {
	headers := http.Header{}
	headers.Set("Authorization", c.cfg.Password)
	headers.Set("User-Id", userID)
	headers.Set("Client-Name", clientName)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.baseURL("ws")+"/v4/websocket", headers)
	if err != nil {
		return fmt.Errorf("failed to dial lavalink: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	defer func() {
		c.mu.Lock()
		c.sessionID = ""
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.handleMessage(data); err != nil {
			c.log.Warn().Err(err).Msg("bad frame from node")
		}
	}
}

func (c *Client) handleMessage(data []byte) error {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	switch msg.Op {
	case "ready":
		c.mu.Lock()
		c.sessionID = msg.SessionID
		lost := len(c.players)
		if !msg.Resumed {
			c.players = make(map[string]player.Credentials)
		}
		c.mu.Unlock()
		c.log.Info().Str("session", msg.SessionID).Bool("resumed", msg.Resumed).Msg("node ready")
		if !msg.Resumed && lost > 0 {
			c.log.Warn().Int("players", lost).Msg("node session replaced, players lost")
		}
	case "playerUpdate":
		// position reports are not tracked
	case "stats":
		c.log.Debug().Int("players", msg.Players).Int("playing", msg.PlayingPlayers).Msg("node stats")
	case "event":
		return c.handleEvent(msg)
	default:
		return fmt.Errorf("unknown op %q", msg.Op)
	}
	return nil
}

func (c *Client) handleEvent(msg message) error {
	if msg.GuildID == "" {
		return errors.New("event without guild")
	}
	var track player.Track
	if msg.Track != nil {
		track = msg.Track.toTrack()
	}
	guildID := msg.GuildID

	switch msg.Type {
	case "TrackStartEvent":
		c.events.Go(guildID, func() {
			c.listener.OnTrackStart(player.TrackStart{GuildID: guildID, Track: track})
		})
	case "TrackEndEvent":
		reason := player.EndReason(msg.Reason)
		c.events.Go(guildID, func() {
			c.listener.OnTrackEnd(player.TrackEnd{GuildID: guildID, Track: track, Reason: reason})
		})
	case "TrackExceptionEvent":
		text := "unknown error"
		if msg.Exception != nil {
			text = msg.Exception.Message
		}
		c.events.Go(guildID, func() {
			c.listener.OnTrackException(player.TrackException{GuildID: guildID, Track: track, Message: text})
		})
	case "TrackStuckEvent":
		text := fmt.Sprintf("track stuck for %dms", msg.ThresholdMs)
		c.events.Go(guildID, func() {
			c.listener.OnTrackException(player.TrackException{GuildID: guildID, Track: track, Message: text})
		})
	case "WebSocketClosedEvent":
		c.log.Warn().Str("guild", guildID).Int("code", msg.Code).Str("reason", msg.Reason).Bool("remote", msg.ByRemote).Msg("voice websocket closed")
	default:
		return fmt.Errorf("unknown event %q", msg.Type)
	}
	return nil
}
