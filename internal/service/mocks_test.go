package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/domain/repository"
	"github.com/promoflow/auth-service/internal/infrastructure/security"
)

type mockUserRepository struct{ mock.Mock }

func (m *mockUserRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) GetByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	args := m.Called(ctx, provider, providerUserID)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) Search(ctx context.Context, query string, skip, limit int) ([]*models.User, error) {
	args := m.Called(ctx, query, skip, limit)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, skip, limit int, filters map[string]any) ([]*models.User, error) {
	args := m.Called(ctx, skip, limit, filters)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	args := m.Called(ctx, user)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockUserRepository) SearchCount(ctx context.Context, query string) (int64, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.User, error) {
	args := m.Called(ctx, id, fields)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) Count(ctx context.Context, filters map[string]any) (int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockOAuthAccountRepository struct{ mock.Mock }

func (m *mockOAuthAccountRepository) UpsertLink(ctx context.Context, p repository.UpsertLinkParams) (*models.ExternalAccount, bool, error) {
	args := m.Called(ctx, p)
	if a := args.Get(0); a != nil {
		return a.(*models.ExternalAccount), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockOAuthAccountRepository) GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ExternalAccount, error) {
	args := m.Called(ctx, provider, providerUserID)
	if a := args.Get(0); a != nil {
		return a.(*models.ExternalAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOAuthAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ExternalAccount, error) {
	args := m.Called(ctx, userID)
	if a := args.Get(0); a != nil {
		return a.([]*models.ExternalAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOAuthAccountRepository) DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (bool, error) {
	args := m.Called(ctx, userID, provider)
	return args.Bool(0), args.Error(1)
}

func (m *mockOAuthAccountRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// mockTxManager runs the function inline, mimicking a committed transaction
// unless fn fails.
type mockTxManager struct{}

func (m *mockTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockTokenCodec struct{ mock.Mock }

func (m *mockTokenCodec) IssuePair(subject, email, role string) (*models.TokenPair, error) {
	args := m.Called(subject, email, role)
	if p := args.Get(0); p != nil {
		return p.(*models.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTokenCodec) Verify(token, expectedType string) (*security.Claims, error) {
	args := m.Called(token, expectedType)
	if c := args.Get(0); c != nil {
		return c.(*security.Claims), args.Error(1)
	}
	return nil, args.Error(1)
}
