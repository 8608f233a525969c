package player

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Registry maps guild ids to live sessions. It never reaches into a Session.
type Registry struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// GetOrCreate returns the guild's session, registering create() when there is none.
func (r *Registry) GetOrCreate(guildID string, create func() *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[guildID]; ok {
		return s, false
	}
	s := create()
	r.sessions[guildID] = s
	log.Debug().Str("module", "player.registry").Str("guild", guildID).Msg("created session")
	return s, true
}

// Remove drops guildID only while it still maps to s.
func (r *Registry) Remove(guildID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[guildID]; !ok || cur != s {
		return false
	}
	delete(r.sessions, guildID)
	log.Debug().Str("module", "player.registry").Str("guild", guildID).Msg("removed session")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Shutdown stops every live session in parallel.
func (r *Registry) Shutdown(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range r.Sessions() {
		g.Go(func() error {
			err := s.Stop(gctx)
			if errors.Is(err, ErrNotConnected) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
