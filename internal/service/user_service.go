package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/domain/repository"
)

// UpdateProfileParams carries a partial profile update. Nil fields are left
// untouched; there is no way to null out a field through this path.
type UpdateProfileParams struct {
	Name      *string
	AvatarURL *string
	Company   *string
	Phone     *string
	Locale    *string
	Timezone  *string
}

// UserList is one page of users plus the total count of active users.
type UserList struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

// UserService covers profile self-service and the admin user surface.
type UserService struct {
	users    repository.UserRepository
	accounts repository.OAuthAccountRepository
	tx       repository.TxManager
	logger   *zap.Logger
}

func NewUserService(
	users repository.UserRepository,
	accounts repository.OAuthAccountRepository,
	tx repository.TxManager,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:    users,
		accounts: accounts,
		tx:       tx,
		logger:   logger,
	}
}

// UpdateProfile applies the non-nil fields and returns the fresh record.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, p UpdateProfileParams) (*models.User, error) {
	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	set("name", p.Name)
	set("avatar_url", p.AvatarURL)
	set("company", p.Company)
	set("phone", p.Phone)
	set("locale", p.Locale)
	set("timezone", p.Timezone)

	return s.users.Update(ctx, userID, fields)
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.Get(ctx, id)
}

// List returns a page of active users, optionally narrowed by a free-text
// query over name, email and company.
func (s *UserService) List(ctx context.Context, skip, limit int, query string) (*UserList, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	var (
		users []*models.User
		total int64
		err   error
	)
	if query != "" {
		// Total must count the same predicate the page was cut from.
		if users, err = s.users.Search(ctx, query, skip, limit); err != nil {
			return nil, err
		}
		total, err = s.users.SearchCount(ctx, query)
	} else {
		if users, err = s.users.List(ctx, skip, limit, map[string]any{"is_active": true}); err != nil {
			return nil, err
		}
		total, err = s.users.Count(ctx, map[string]any{"is_active": true})
	}
	if err != nil {
		return nil, err
	}

	return &UserList{Users: users, Total: total, Skip: skip, Limit: limit}, nil
}

// Deactivate soft-deletes a user. Their provider links stay in place so a
// later reactivation restores the account intact.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deactivated", zap.String("user_id", id.String()))
	return nil
}

// LinkedProviders lists the user's external account links.
func (s *UserService) LinkedProviders(ctx context.Context, userID uuid.UUID) ([]*models.ExternalAccount, error) {
	return s.accounts.ListByUser(ctx, userID)
}

// DisconnectProvider removes one provider link. The last remaining link is
// protected: removing it would leave the account with no way to sign in.
func (s *UserService) DisconnectProvider(ctx context.Context, userID uuid.UUID, provider string) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		count, err := s.accounts.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return domainErrors.ErrLastProviderLink
		}

		deleted, err := s.accounts.DeleteByUserAndProvider(ctx, userID, provider)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: no %s link", domainErrors.ErrNotFound, provider)
		}

		s.logger.Info("provider disconnected",
			zap.String("user_id", userID.String()),
			zap.String("provider", provider))
		return nil
	})
}
