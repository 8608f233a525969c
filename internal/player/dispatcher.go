package player

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	buttonPrefix    = "player"
	dispatchTimeout = 30 * time.Second
)

type TrackStart struct {
	GuildID string
	Track   Track
}

type TrackEnd struct {
	GuildID string
	Track   Track
	Reason  EndReason
}

type TrackException struct {
	GuildID string
	Track   Track
	Message string
}

type VoiceStateUpdate struct {
	GuildID   string
	UserID    string
	SessionID string
	ChannelID string
}

type VoiceServerUpdate struct {
	GuildID  string
	Endpoint string
	Token    string
}

type ButtonInteraction struct {
	GuildID   string
	ChannelID string
	MessageID string
	ButtonID  string
	UserID    string
}

// VoiceRelay assembles voice credentials from gateway events.
type VoiceRelay interface {
	VoiceStateUpdate(guildID, userID, sessionID, channelID string)
	VoiceServerUpdate(guildID, endpoint, token string)
}

// Dispatcher routes node callbacks and gateway events to sessions.
// Unroutable events are logged and dropped.
type Dispatcher struct {
	registry *Registry
	relay    VoiceRelay
	timeout  time.Duration
}

func NewDispatcher(registry *Registry, relay VoiceRelay) *Dispatcher {
	return &Dispatcher{registry: registry, relay: relay, timeout: dispatchTimeout}
}

func (d *Dispatcher) lookup(kind, guildID string) (*Session, bool) {
	s, ok := d.registry.Get(guildID)
	if !ok {
		log.Info().Str("module", "player.dispatch").Str("event", kind).Str("guild", guildID).Msg("no session for event, dropped")
	}
	return s, ok
}

func (d *Dispatcher) newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

func (d *Dispatcher) OnTrackStart(ev TrackStart) {
	s, ok := d.lookup("track_start", ev.GuildID)
	if !ok {
		return
	}
	ctx, cancel := d.newContext()
	defer cancel()
	s.OnTrackStart(ctx, ev.Track)
}

func (d *Dispatcher) OnTrackEnd(ev TrackEnd) {
	s, ok := d.lookup("track_end", ev.GuildID)
	if !ok {
		return
	}
	ctx, cancel := d.newContext()
	defer cancel()
	s.OnTrackEnd(ctx, ev.Track, ev.Reason)
}

func (d *Dispatcher) OnTrackException(ev TrackException) {
	s, ok := d.lookup("track_exception", ev.GuildID)
	if !ok {
		return
	}
	ctx, cancel := d.newContext()
	defer cancel()
	s.OnTrackException(ctx, ev.Track, ev.Message)
}

func (d *Dispatcher) OnVoiceStateUpdate(ev VoiceStateUpdate) {
	d.relay.VoiceStateUpdate(ev.GuildID, ev.UserID, ev.SessionID, ev.ChannelID)
}

func (d *Dispatcher) OnVoiceServerUpdate(ev VoiceServerUpdate) {
	d.relay.VoiceServerUpdate(ev.GuildID, ev.Endpoint, ev.Token)
}

// OnButton runs the control bound to a control surface button. The returned
// error is meant for the pressing user.
func (d *Dispatcher) OnButton(ctx context.Context, ev ButtonInteraction) (Outcome, error) {
	action, guildID, ok := ParseButtonID(ev.ButtonID)
	if !ok || guildID != ev.GuildID {
		log.Info().Str("module", "player.dispatch").Str("button", ev.ButtonID).Msg("unroutable button dropped")
		return Done, userInput("button", ErrStaleSurface)
	}
	s, ok := d.lookup("button", guildID)
	if !ok {
		return Done, userInput(string(action), ErrStaleSurface)
	}
	return s.Control(ctx, action, ev.MessageID)
}

// ButtonID binds a control action to a guild's session.
func ButtonID(action Action, guildID string) string {
	return fmt.Sprintf("%s:%s:%s", buttonPrefix, action, guildID)
}

func ParseButtonID(id string) (Action, string, bool) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] != buttonPrefix || parts[2] == "" {
		return "", "", false
	}
	switch a := Action(parts[1]); a {
	case ActionStop, ActionToggle, ActionSkip:
		return a, parts[2], true
	}
	return "", "", false
}

// IsButtonID reports whether id belongs to a control surface.
func IsButtonID(id string) bool {
	return strings.HasPrefix(id, buttonPrefix+":")
}
