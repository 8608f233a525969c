package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	stateLifetime = 10 * time.Minute
	maxPending    = 1024
	maxSessions   = 4096
)

// sessionStore keeps OAuth state values and Discord access tokens on the
// server. Issued JWTs carry only the token id.
type sessionStore struct {
	states *expirable.LRU[string, struct{}]
	tokens *expirable.LRU[string, string]
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		states: expirable.NewLRU[string, struct{}](maxPending, nil, stateLifetime),
		tokens: expirable.NewLRU[string, string](maxSessions, nil, tokenLifetime),
	}
}

func (s *sessionStore) newState() string {
	state := uuid.NewString()
	s.states.Add(state, struct{}{})
	return state
}

// consumeState reports whether state was issued and not used yet.
func (s *sessionStore) consumeState(state string) bool {
	if state == "" {
		return false
	}
	return s.states.Remove(state)
}

func (s *sessionStore) put(id, accessToken string) {
	s.tokens.Add(id, accessToken)
}

func (s *sessionStore) accessToken(id string) (string, bool) {
	return s.tokens.Get(id)
}

func (s *sessionStore) drop(id string) {
	s.tokens.Remove(id)
}
