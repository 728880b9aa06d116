package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
)

func newUserService(users *mockUserRepository, accounts *mockOAuthAccountRepository) *UserService {
	return NewUserService(users, accounts, &mockTxManager{}, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestUserService_UpdateProfileOnlySetFields(t *testing.T) {
	users := &mockUserRepository{}
	svc := newUserService(users, &mockOAuthAccountRepository{})

	id := uuid.New()
	updated := activeUser("jane@example.com")
	users.On("Update", mock.Anything, id, map[string]any{
		"name":    "Jane D.",
		"company": "Promoflow",
	}).Return(updated, nil)

	got, err := svc.UpdateProfile(context.Background(), id, UpdateProfileParams{
		Name:    strPtr("Jane D."),
		Company: strPtr("Promoflow"),
	})
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	users.AssertExpectations(t)
}

func TestUserService_UpdateProfileEmptyPatch(t *testing.T) {
	users := &mockUserRepository{}
	svc := newUserService(users, &mockOAuthAccountRepository{})

	id := uuid.New()
	current := activeUser("jane@example.com")
	// An empty patch is a read, not a write.
	users.On("Update", mock.Anything, id, map[string]any{}).Return(current, nil)

	got, err := svc.UpdateProfile(context.Background(), id, UpdateProfileParams{})
	require.NoError(t, err)
	assert.Equal(t, current, got)
}

func TestUserService_ListDefaultsPagination(t *testing.T) {
	users := &mockUserRepository{}
	svc := newUserService(users, &mockOAuthAccountRepository{})

	page := []*models.User{activeUser("a@example.com")}
	users.On("List", mock.Anything, 0, 20, map[string]any{"is_active": true}).Return(page, nil)
	users.On("Count", mock.Anything, map[string]any{"is_active": true}).Return(int64(1), nil)

	got, err := svc.List(context.Background(), -5, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Skip)
	assert.Equal(t, 20, got.Limit)
	assert.Equal(t, int64(1), got.Total)
	assert.Len(t, got.Users, 1)
}

func TestUserService_ListWithQueryUsesSearch(t *testing.T) {
	users := &mockUserRepository{}
	svc := newUserService(users, &mockOAuthAccountRepository{})

	page := []*models.User{activeUser("jane@example.com")}
	users.On("Search", mock.Anything, "jane", 10, 50).Return(page, nil)
	users.On("SearchCount", mock.Anything, "jane").Return(int64(7), nil)

	got, err := svc.List(context.Background(), 10, 50, "jane")
	require.NoError(t, err)
	assert.Len(t, got.Users, 1)
	// Total reflects the search predicate, not the whole active table.
	assert.Equal(t, int64(7), got.Total)
	users.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

func TestUserService_DisconnectProvider(t *testing.T) {
	accounts := &mockOAuthAccountRepository{}
	svc := newUserService(&mockUserRepository{}, accounts)

	id := uuid.New()
	accounts.On("CountByUser", mock.Anything, id).Return(int64(2), nil)
	accounts.On("DeleteByUserAndProvider", mock.Anything, id, "github").Return(true, nil)

	require.NoError(t, svc.DisconnectProvider(context.Background(), id, "github"))
	accounts.AssertExpectations(t)
}

func TestUserService_DisconnectLastProviderRefused(t *testing.T) {
	accounts := &mockOAuthAccountRepository{}
	svc := newUserService(&mockUserRepository{}, accounts)

	id := uuid.New()
	accounts.On("CountByUser", mock.Anything, id).Return(int64(1), nil)

	err := svc.DisconnectProvider(context.Background(), id, "google")
	assert.ErrorIs(t, err, domainErrors.ErrLastProviderLink)
	accounts.AssertNotCalled(t, "DeleteByUserAndProvider", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_DisconnectMissingLink(t *testing.T) {
	accounts := &mockOAuthAccountRepository{}
	svc := newUserService(&mockUserRepository{}, accounts)

	id := uuid.New()
	accounts.On("CountByUser", mock.Anything, id).Return(int64(3), nil)
	accounts.On("DeleteByUserAndProvider", mock.Anything, id, "gitlab").Return(false, nil)

	err := svc.DisconnectProvider(context.Background(), id, "gitlab")
	assert.ErrorIs(t, err, domainErrors.ErrNotFound)
}
