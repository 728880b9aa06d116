package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
)

func newTestRepo() *Repository[models.User] {
	return NewRepository[models.User](nil, Mapping[models.User]{
		Table:        "users",
		Columns:      userColumns,
		HasUpdatedAt: true,
		Scan:         scanUser,
		Values:       userValues,
	})
}

func TestWhereClause(t *testing.T) {
	r := newTestRepo()

	where, args, err := r.whereClause(map[string]any{
		"is_active": true,
		"email":     "a@b.com",
	}, 1)
	require.NoError(t, err)

	// Keys are sorted, so the clause is deterministic.
	assert.Equal(t, " WHERE email = $1 AND is_active = $2", where)
	assert.Equal(t, []any{"a@b.com", true}, args)
}

func TestWhereClauseEmpty(t *testing.T) {
	r := newTestRepo()

	where, args, err := r.whereClause(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestWhereClauseStartIndex(t *testing.T) {
	r := newTestRepo()

	where, _, err := r.whereClause(map[string]any{"email": "a@b.com"}, 3)
	require.NoError(t, err)
	assert.Equal(t, " WHERE email = $3", where)
}

func TestWhereClauseRejectsUnknownColumn(t *testing.T) {
	r := newTestRepo()

	// Filter keys are validated against the column list, so caller input
	// can never reach the SQL text.
	_, _, err := r.whereClause(map[string]any{"email; DROP TABLE users": "x"}, 1)
	assert.Error(t, err)
}

func TestOrderClause(t *testing.T) {
	r := newTestRepo()

	asc, err := r.orderClause("email")
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY email ASC", asc)

	desc, err := r.orderClause("-created_at")
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY created_at DESC", desc)

	none, err := r.orderClause("")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = r.orderClause("no_such_column")
	assert.Error(t, err)
}

func TestMapPgError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}
	err := mapPgError("failed to create users", unique)
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateValue)
	assert.Contains(t, err.Error(), "idx_users_email")

	fk := &pgconn.PgError{Code: "23503"}
	assert.ErrorIs(t, mapPgError("failed", fk), domainErrors.ErrNotFound)

	plain := errors.New("connection refused")
	mapped := mapPgError("failed", plain)
	assert.ErrorIs(t, mapped, plain)
	assert.NotErrorIs(t, mapped, domainErrors.ErrDuplicateValue)
}

func TestIsNil(t *testing.T) {
	var typedNil *string
	var nilMap map[string]any
	s := "x"

	assert.True(t, isNil(nil))
	assert.True(t, isNil(typedNil))
	assert.True(t, isNil(nilMap))
	assert.False(t, isNil(&s))
	assert.False(t, isNil("x"))
	assert.False(t, isNil(0))
	assert.False(t, isNil(map[string]any{}))
}

func TestScanUserMapsNoRows(t *testing.T) {
	// pgx.ErrNoRows passes through scan untouched so callers can translate
	// it to the domain error.
	_, err := scanUser(errRow{pgx.ErrNoRows})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }
