package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/domain/repository"
)

var oauthAccountColumns = []string{
	"id", "user_id", "provider", "provider_user_id", "provider_email",
	"profile_data", "access_token", "refresh_token", "token_expires_at",
	"created_at", "updated_at",
}

func scanOAuthAccount(row pgx.Row) (*models.ExternalAccount, error) {
	a := &models.ExternalAccount{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID, &a.ProviderEmail,
		&a.ProfileData, &a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// OAuthAccountRepositoryPostgres implements repository.OAuthAccountRepository.
type OAuthAccountRepositoryPostgres struct {
	*Repository[models.ExternalAccount]
	pool *pgxpool.Pool
}

func NewOAuthAccountRepositoryPostgres(pool *pgxpool.Pool) *OAuthAccountRepositoryPostgres {
	return &OAuthAccountRepositoryPostgres{
		Repository: NewRepository(pool, Mapping[models.ExternalAccount]{
			Table:        "oauth_accounts",
			Columns:      oauthAccountColumns,
			HasUpdatedAt: true,
			Scan:         scanOAuthAccount,
			Values: func(a *models.ExternalAccount) map[string]any {
				return map[string]any{
					"id":               a.ID,
					"user_id":          a.UserID,
					"provider":         a.Provider,
					"provider_user_id": a.ProviderUserID,
					"provider_email":   a.ProviderEmail,
					"profile_data":     a.ProfileData,
					"access_token":     a.AccessToken,
					"refresh_token":    a.RefreshToken,
					"token_expires_at": a.TokenExpiresAt,
				}
			},
		}),
		pool: pool,
	}
}

// UpsertLink inserts the link for (user, provider) or refreshes the existing
// one in a single conflict-handling statement, so concurrent logins for the
// same pair cannot produce duplicate rows. A missing provider refresh token
// keeps the cached one (providers only return it on forced consent).
func (r *OAuthAccountRepositoryPostgres) UpsertLink(ctx context.Context, p repository.UpsertLinkParams) (*models.ExternalAccount, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO oauth_accounts (
			id, user_id, provider, provider_user_id, provider_email,
			profile_data, access_token, refresh_token, token_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			provider_email   = EXCLUDED.provider_email,
			profile_data     = EXCLUDED.profile_data,
			access_token     = EXCLUDED.access_token,
			refresh_token    = COALESCE(EXCLUDED.refresh_token, oauth_accounts.refresh_token),
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at       = now()
		RETURNING %s, (xmax = 0) AS inserted
	`, strings.Join(oauthAccountColumns, ", "))

	a := &models.ExternalAccount{}
	var inserted bool
	err := querierFrom(ctx, r.pool).QueryRow(ctx, query,
		uuid.New(), p.UserID, p.Provider, p.ProviderUserID,
		nullString(p.ProviderEmail), p.ProfileData,
		nullString(p.AccessToken), nullString(p.RefreshToken), nullTime(p.TokenExpiresAt),
	).Scan(
		&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID, &a.ProviderEmail,
		&a.ProfileData, &a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt,
		&a.CreatedAt, &a.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, mapPgError("failed to upsert oauth account", err)
	}
	return a, inserted, nil
}

// GetByProviderUserID finds the link for a provider-assigned subject id.
func (r *OAuthAccountRepositoryPostgres) GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ExternalAccount, error) {
	return r.GetBy(ctx, map[string]any{
		"provider":         provider,
		"provider_user_id": providerUserID,
	})
}

// ListByUser returns all links owned by a user, ordered by provider name.
func (r *OAuthAccountRepositoryPostgres) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ExternalAccount, error) {
	return r.Repository.List(ctx, 0, 0, "provider", map[string]any{"user_id": userID})
}

// DeleteByUserAndProvider disconnects one provider from a user.
func (r *OAuthAccountRepositoryPostgres) DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (bool, error) {
	query := `DELETE FROM oauth_accounts WHERE user_id = $1 AND provider = $2`
	tag, err := querierFrom(ctx, r.pool).Exec(ctx, query, userID, provider)
	if err != nil {
		return false, fmt.Errorf("failed to delete oauth account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountByUser returns the number of links a user has.
func (r *OAuthAccountRepositoryPostgres) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.Count(ctx, map[string]any{"user_id": userID})
}

var _ repository.OAuthAccountRepository = (*OAuthAccountRepositoryPostgres)(nil)

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
