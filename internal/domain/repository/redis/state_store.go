// Package redis implements the state store on Redis, the production backend.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
)

const stateKeyPrefix = "oauth:state:"

// StateStore keeps authorization states as JSON values with a TTL. Consume
// uses GETDEL so each state is handed out at most once even under
// concurrent callbacks.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// Save stores the state until its expiry time. States without a future
// expiry are rejected rather than stored forever.
func (s *StateStore) Save(ctx context.Context, state *models.AuthorizationState) error {
	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization state already expired at %s", state.ExpiresAt)
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization state: %w", err)
	}

	if err := s.client.Set(ctx, stateKeyPrefix+state.State, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save authorization state: %w", err)
	}
	return nil
}

// Consume atomically removes and returns the state. A missing or expired
// state yields ErrOAuthStateNotFound.
func (s *StateStore) Consume(ctx context.Context, state string) (*models.AuthorizationState, error) {
	payload, err := s.client.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainErrors.ErrOAuthStateNotFound
		}
		return nil, fmt.Errorf("failed to consume authorization state: %w", err)
	}

	var out models.AuthorizationState
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization state: %w", err)
	}
	return &out, nil
}
