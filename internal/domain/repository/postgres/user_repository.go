package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/domain/repository"
)

var userColumns = []string{
	"id", "email", "email_verified", "name", "avatar_url", "company", "phone",
	"locale", "timezone", "role", "is_active", "metadata",
	"created_at", "updated_at", "last_login_at",
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.EmailVerified, &u.Name, &u.AvatarURL, &u.Company, &u.Phone,
		&u.Locale, &u.Timezone, &u.Role, &u.IsActive, &u.Metadata,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func userValues(u *models.User) map[string]any {
	return map[string]any{
		"id":             u.ID,
		"email":          u.Email,
		"email_verified": u.EmailVerified,
		"name":           u.Name,
		"avatar_url":     u.AvatarURL,
		"company":        u.Company,
		"phone":          u.Phone,
		"locale":         u.Locale,
		"timezone":       u.Timezone,
		"role":           u.Role,
		"is_active":      u.IsActive,
		"metadata":       u.Metadata,
	}
}

// UserRepositoryPostgres implements repository.UserRepository.
type UserRepositoryPostgres struct {
	*Repository[models.User]
	pool *pgxpool.Pool
}

func NewUserRepositoryPostgres(pool *pgxpool.Pool) *UserRepositoryPostgres {
	return &UserRepositoryPostgres{
		Repository: NewRepository(pool, Mapping[models.User]{
			Table:        "users",
			Columns:      userColumns,
			HasUpdatedAt: true,
			Scan:         scanUser,
			Values:       userValues,
		}),
		pool: pool,
	}
}

// Get narrows the generic not-found error to ErrUserNotFound.
func (r *UserRepositoryPostgres) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := r.Repository.Get(ctx, id)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, domainErrors.ErrUserNotFound
	}
	return u, err
}

// GetByEmail returns the active user with the given email. Email is the
// merge key across identity providers.
func (r *UserRepositoryPostgres) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.GetBy(ctx, map[string]any{"email": email, "is_active": true})
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, domainErrors.ErrUserNotFound
	}
	return u, err
}

// CreateIfAbsent inserts the user unless the email is already taken. The
// conflict arm does nothing rather than raising, so a lost race inside an
// open transaction does not poison it; (nil, false, nil) signals the
// caller to re-read the winner's row.
func (r *UserRepositoryPostgres) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	cols, placeholders, args, err := r.insertClause(user)
	if err != nil {
		return nil, false, err
	}

	query := fmt.Sprintf(`
		INSERT INTO users (%s) VALUES (%s)
		ON CONFLICT (email) DO NOTHING
		RETURNING %s
	`, cols, placeholders, strings.Join(userColumns, ", "))

	created, err := scanUser(querierFrom(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, mapPgError("failed to create user", err)
	}
	return created, true, nil
}

// GetByExternalIdentity resolves a user through their provider link.
func (r *UserRepositoryPostgres) GetByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	cols := make([]string, len(userColumns))
	for i, c := range userColumns {
		cols[i] = "u." + c
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM users u
		JOIN oauth_accounts oa ON oa.user_id = u.id
		WHERE oa.provider = $1 AND oa.provider_user_id = $2 AND u.is_active = true
	`, strings.Join(cols, ", "))

	u, err := scanUser(querierFrom(ctx, r.pool).QueryRow(ctx, query, provider, providerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by external identity: %w", err)
	}
	return u, nil
}

// Search does a case-insensitive substring match across name, email and
// company, newest first.
func (r *UserRepositoryPostgres) Search(ctx context.Context, query string, skip, limit int) ([]*models.User, error) {
	pattern := "%" + query + "%"
	sql := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE is_active = true
		  AND (name ILIKE $1 OR email ILIKE $1 OR company ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, strings.Join(userColumns, ", "))

	rows, err := querierFrom(ctx, r.pool).Query(ctx, sql, pattern, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// SearchCount counts the rows Search would match, for the pagination
// envelope.
func (r *UserRepositoryPostgres) SearchCount(ctx context.Context, query string) (int64, error) {
	pattern := "%" + query + "%"
	sql := `
		SELECT COUNT(*)
		FROM users
		WHERE is_active = true
		  AND (name ILIKE $1 OR email ILIKE $1 OR company ILIKE $1)
	`
	var count int64
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, sql, pattern).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count user search: %w", err)
	}
	return count, nil
}

// List returns users newest first with the generic filter semantics.
func (r *UserRepositoryPostgres) List(ctx context.Context, skip, limit int, filters map[string]any) ([]*models.User, error) {
	return r.Repository.List(ctx, skip, limit, "-created_at", filters)
}

// Deactivate soft-deletes a user. Rows are never removed from the table.
func (r *UserRepositoryPostgres) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true`
	tag, err := querierFrom(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepositoryPostgres)(nil)
