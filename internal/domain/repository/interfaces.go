// Package repository defines the data-access contracts the services depend
// on. Implementations live in the postgres, redis and memory subpackages.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/promoflow/auth-service/internal/domain/models"
)

// TxManager runs a function inside a database transaction. Repository calls
// made with the context it passes to fn join that transaction; the manager
// commits when fn returns nil and rolls back otherwise. Repositories never
// commit on their own.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository provides access to user records.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error)
	Search(ctx context.Context, query string, skip, limit int) ([]*models.User, error)
	SearchCount(ctx context.Context, query string) (int64, error)
	List(ctx context.Context, skip, limit int, filters map[string]any) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// CreateIfAbsent inserts the user unless a row with the same email
	// already exists. It reports whether a row was inserted; (nil, false,
	// nil) means the email is taken. The statement never raises on the
	// conflict, so it is safe inside an open transaction.
	CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.User, error)
	Count(ctx context.Context, filters map[string]any) (int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// UpsertLinkParams carries everything needed to insert or refresh an
// external account link for (UserID, Provider).
type UpsertLinkParams struct {
	UserID         uuid.UUID
	Provider       string
	ProviderUserID string
	ProviderEmail  string
	ProfileData    map[string]any
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
}

// OAuthAccountRepository provides access to external identity links.
type OAuthAccountRepository interface {
	// UpsertLink inserts a link for (user, provider) or updates the existing
	// one in place. The returned flag is true when a new row was inserted.
	// The write is race-safe under concurrent logins for the same pair.
	UpsertLink(ctx context.Context, p UpsertLinkParams) (*models.ExternalAccount, bool, error)
	GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ExternalAccount, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ExternalAccount, error)
	DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (bool, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// StateStore holds short-lived authorization states. Save writes one record
// with a TTL; Consume removes and returns it, so a second Consume for the
// same value fails with ErrOAuthStateNotFound.
type StateStore interface {
	Save(ctx context.Context, state *models.AuthorizationState) error
	Consume(ctx context.Context, state string) (*models.AuthorizationState, error)
}
