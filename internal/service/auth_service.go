package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/domain/repository"
	"github.com/promoflow/auth-service/internal/infrastructure/security"
)

// TokenCodec issues and verifies the service's own token pairs.
type TokenCodec interface {
	IssuePair(subject, email, role string) (*models.TokenPair, error)
	Verify(token, expectedType string) (*security.Claims, error)
}

// AuthService reconciles verified external identities with local users and
// manages the session token lifecycle. Email is the merge key: logins from
// different providers with the same email land on one user.
type AuthService struct {
	users    repository.UserRepository
	accounts repository.OAuthAccountRepository
	tx       repository.TxManager
	tokens   TokenCodec
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	accounts repository.OAuthAccountRepository,
	tx repository.TxManager,
	tokens TokenCodec,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		accounts: accounts,
		tx:       tx,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile finds or creates the user for the profile's email, upserts the
// provider link and records the login, all in one transaction. Tokens are
// minted only after the transaction commits, so a failed reconciliation
// never hands out credentials.
func (s *AuthService) Reconcile(ctx context.Context, profile *models.ExternalProfile, provTokens *models.ProviderTokens) (*models.AuthResult, error) {
	var user *models.User
	var created bool

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, created, err = s.findOrCreateUser(ctx, profile)
		if err != nil {
			return err
		}

		params := repository.UpsertLinkParams{
			UserID:         user.ID,
			Provider:       profile.Provider,
			ProviderUserID: profile.ExternalID,
			ProviderEmail:  profile.Email,
			ProfileData:    profile.Raw,
		}
		if provTokens != nil {
			params.AccessToken = provTokens.AccessToken
			params.RefreshToken = provTokens.RefreshToken
			params.TokenExpiresAt = provTokens.ExpiresAt
		}
		if _, _, err := s.accounts.UpsertLink(ctx, params); err != nil {
			return err
		}

		user, err = s.users.Update(ctx, user.ID, s.loginFields(user, profile))
		return err
	})
	if err != nil {
		// A uniqueness conflict here means the provider account is already
		// linked to a different local user. Like every other login failure
		// it surfaces as the generic authentication error; the cause stays
		// in the logs.
		if errors.Is(err, domainErrors.ErrDuplicateValue) {
			s.logger.Warn("conflicting identity link",
				zap.String("provider", profile.Provider),
				zap.String("provider_user_id", profile.ExternalID),
				zap.Error(err))
			return nil, domainErrors.ErrAuthentication
		}
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login reconciled",
		zap.String("user_id", user.ID.String()),
		zap.String("provider", profile.Provider),
		zap.Bool("created", created))
	return &models.AuthResult{User: user, Tokens: pair}, nil
}

// loginFields records the login and backfills profile data the local record
// is missing. Locally-set values are never overwritten by the provider.
func (s *AuthService) loginFields(user *models.User, profile *models.ExternalProfile) map[string]any {
	fields := map[string]any{
		"last_login_at": s.now(),
	}
	if profile.EmailVerified && !user.EmailVerified {
		fields["email_verified"] = true
	}
	if user.Name == nil && profile.Name != "" {
		fields["name"] = profile.Name
	}
	if user.AvatarURL == nil && profile.Picture != "" {
		fields["avatar_url"] = profile.Picture
	}
	return fields
}

// findOrCreateUser resolves the profile's email to a user. The insert uses
// a do-nothing conflict arm, so losing a concurrent first-login race never
// fails a statement mid-transaction; the loser just re-reads the winner's
// row.
func (s *AuthService) findOrCreateUser(ctx context.Context, profile *models.ExternalProfile) (*models.User, bool, error) {
	user, err := s.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domainErrors.ErrUserNotFound) {
		return nil, false, err
	}

	created, inserted, err := s.users.CreateIfAbsent(ctx, models.NewUserFromProfile(profile))
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return created, true, nil
	}

	user, err = s.users.GetByEmail(ctx, profile.Email)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			// The email row exists but is deactivated.
			return nil, false, fmt.Errorf("%w: %s", domainErrors.ErrUserInactive, profile.Email)
		}
		return nil, false, err
	}
	return user, false, nil
}

// RefreshTokens exchanges a valid refresh token for a fresh pair. The
// subject must still resolve to an active user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", domainErrors.ErrInvalidToken)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return nil, domainErrors.ErrAuthentication
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domainErrors.ErrUserInactive
	}

	return s.tokens.IssuePair(user.ID.String(), user.Email, user.Role)
}

// CurrentUser loads the active user behind an access token's subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domainErrors.ErrUserInactive
	}
	return user, nil
}
