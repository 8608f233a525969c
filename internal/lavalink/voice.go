package lavalink

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/player"
)

type voiceEntry struct {
	creds player.Credentials
	ready chan struct{}
	done  bool
}

// Voice assembles the voice credentials the node needs from the bot's own
// voice state and voice server gateway events.
type Voice struct {
	mu       sync.Mutex
	userID   string
	guilds   map[string]*voiceEntry
	onChange func(guildID string, creds player.Credentials)
}

func NewVoice() *Voice {
	return &Voice{guilds: make(map[string]*voiceEntry)}
}

// SetUserID sets the bot user whose voice states are tracked.
func (v *Voice) SetUserID(userID string) {
	v.mu.Lock()
	v.userID = userID
	v.mu.Unlock()
}

// OnChange registers fn to run when complete credentials change, as they do
// when Discord moves the guild to another voice server.
func (v *Voice) OnChange(fn func(guildID string, creds player.Credentials)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

func (v *Voice) entry(guildID string) *voiceEntry {
	e, ok := v.guilds[guildID]
	if !ok {
		e = &voiceEntry{ready: make(chan struct{})}
		v.guilds[guildID] = e
	}
	return e
}

func (v *Voice) VoiceStateUpdate(guildID, userID, sessionID, channelID string) {
	v.mu.Lock()
	if v.userID == "" || userID != v.userID {
		v.mu.Unlock()
		return
	}
	if channelID == "" {
		v.clear(guildID)
		v.mu.Unlock()
		log.Debug().Str("module", "lavalink.voice").Str("guild", guildID).Msg("left voice, credentials cleared")
		return
	}
	e := v.entry(guildID)
	e.creds.SessionID = sessionID
	e.creds.ChannelID = channelID
	notify := v.settle(e)
	creds, fn := e.creds, v.onChange
	v.mu.Unlock()

	if notify && fn != nil {
		fn(guildID, creds)
	}
}

func (v *Voice) VoiceServerUpdate(guildID, endpoint, token string) {
	v.mu.Lock()
	e := v.entry(guildID)
	e.creds.Endpoint = endpoint
	e.creds.Token = token
	notify := v.settle(e)
	creds, fn := e.creds, v.onChange
	v.mu.Unlock()

	if notify && fn != nil {
		fn(guildID, creds)
	}
}

// clear drops the guild's credentials. An entry that has not completed yet
// may have waiters blocked on its ready channel, so it is reset in place.
func (v *Voice) clear(guildID string) {
	e, ok := v.guilds[guildID]
	if !ok {
		return
	}
	if e.done {
		delete(v.guilds, guildID)
		return
	}
	e.creds = player.Credentials{}
}

// settle wakes waiters on first completion and reports whether an already
// complete entry changed.
func (v *Voice) settle(e *voiceEntry) bool {
	if !e.creds.Complete() {
		return false
	}
	if !e.done {
		e.done = true
		close(e.ready)
		return false
	}
	return true
}

// Await blocks until the guild's credentials are complete or ctx is done.
func (v *Voice) Await(ctx context.Context, guildID string) (player.Credentials, error) {
	v.mu.Lock()
	e := v.entry(guildID)
	ready := e.ready
	v.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return player.Credentials{}, ctx.Err()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return e.creds, nil
}

// Forget drops what is known about guildID.
func (v *Voice) Forget(guildID string) {
	v.mu.Lock()
	v.clear(guildID)
	v.mu.Unlock()
}
