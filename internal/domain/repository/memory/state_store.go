// Package memory implements the state store in process memory. It is a
// development backend: states do not survive a restart and are invisible to
// other replicas.
package memory

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
)

// StateStore keeps authorization states in a mutex-guarded map. Expired
// entries are dropped lazily on Consume.
type StateStore struct {
	mu     sync.Mutex
	states map[string]*models.AuthorizationState
	now    func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]*models.AuthorizationState),
		now:    time.Now,
	}
}

func (s *StateStore) Save(_ context.Context, state *models.AuthorizationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.states[state.State] = &copied
	return nil
}

// Consume removes and returns the state. Missing, already-consumed and
// expired states are indistinguishable to the caller.
func (s *StateStore) Consume(_ context.Context, state string) (*models.AuthorizationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.states[state]
	if !ok {
		return nil, domainErrors.ErrOAuthStateNotFound
	}
	delete(s.states, state)

	if stored.Expired(s.now()) {
		return nil, domainErrors.ErrOAuthStateNotFound
	}
	return stored, nil
}
