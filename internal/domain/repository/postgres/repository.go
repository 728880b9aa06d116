// Package postgres implements the repository contracts over pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
)

// Mapping describes how one entity type maps onto its table.
type Mapping[T any] struct {
	Table string
	// Columns is the full select list, in scan order.
	Columns []string
	// HasUpdatedAt makes Update refresh the updated_at column.
	HasUpdatedAt bool
	// Scan reads one row in Columns order.
	Scan func(row pgx.Row) (*T, error)
	// Values maps an entity onto its insertable columns. Nil values are
	// omitted from the insert so database defaults apply.
	Values func(entity *T) map[string]any
}

// Repository provides generic CRUD over one table. All operations resolve
// the caller's transaction from the context and never commit on their own.
type Repository[T any] struct {
	pool   *pgxpool.Pool
	m      Mapping[T]
	cols   string
	colSet map[string]struct{}
}

func NewRepository[T any](pool *pgxpool.Pool, m Mapping[T]) *Repository[T] {
	colSet := make(map[string]struct{}, len(m.Columns))
	for _, c := range m.Columns {
		colSet[c] = struct{}{}
	}
	return &Repository[T]{
		pool:   pool,
		m:      m,
		cols:   strings.Join(m.Columns, ", "),
		colSet: colSet,
	}
}

func (r *Repository[T]) db(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

// Get returns the entity with the given id, or ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, r.cols, r.m.Table)
	entity, err := r.m.Scan(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s by id: %w", r.m.Table, err)
	}
	return entity, nil
}

// GetBy returns the first entity matching all equality filters, or ErrNotFound.
func (r *Repository[T]) GetBy(ctx context.Context, filters map[string]any) (*T, error) {
	where, args, err := r.whereClause(filters, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s%s LIMIT 1`, r.cols, r.m.Table, where)
	entity, err := r.m.Scan(r.db(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s by filters: %w", r.m.Table, err)
	}
	return entity, nil
}

// List returns entities matching the filters, with offset/limit pagination.
// orderBy names a column, with a "-" prefix for descending order.
func (r *Repository[T]) List(ctx context.Context, skip, limit int, orderBy string, filters map[string]any) ([]*T, error) {
	where, args, err := r.whereClause(filters, 1)
	if err != nil {
		return nil, err
	}
	order, err := r.orderClause(orderBy)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s%s`, r.cols, r.m.Table, where, order)
	n := len(args)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", n+1)
		args = append(args, limit)
		n++
	}
	if skip > 0 {
		query += fmt.Sprintf(" OFFSET $%d", n+1)
		args = append(args, skip)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.m.Table, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		entity, err := r.m.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.m.Table, err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", r.m.Table, err)
	}
	return out, nil
}

// insertClause builds the column list, placeholders and args for an insert.
// Nil values are omitted so database defaults apply; columns come out
// sorted for deterministic SQL.
func (r *Repository[T]) insertClause(entity *T) (colList, placeholderList string, args []any, err error) {
	values := r.m.Values(entity)

	cols := make([]string, 0, len(values))
	for c, v := range values {
		if isNil(v) {
			continue
		}
		if _, ok := r.colSet[c]; !ok {
			return "", "", nil, fmt.Errorf("unknown column %q for table %s", c, r.m.Table)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args = make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[c]
	}
	return strings.Join(cols, ", "), strings.Join(placeholders, ", "), args, nil
}

// Create inserts the entity and returns it with database-populated columns.
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	cols, placeholders, args, err := r.insertClause(entity)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		r.m.Table, cols, placeholders, r.cols)

	created, err := r.m.Scan(r.db(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError(fmt.Sprintf("failed to create %s", r.m.Table), err)
	}
	return created, nil
}

// Update applies a partial update and returns the refreshed entity, or
// ErrNotFound when the id does not exist. Nil values are dropped, so a
// nullable column cannot be reset to NULL through this path.
func (r *Repository[T]) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*T, error) {
	cols := make([]string, 0, len(fields))
	for c, v := range fields {
		if isNil(v) {
			continue
		}
		if _, ok := r.colSet[c]; !ok {
			return nil, fmt.Errorf("unknown column %q for table %s", c, r.m.Table)
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return r.Get(ctx, id)
	}
	sort.Strings(cols)

	set := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		set = append(set, fmt.Sprintf("%s = $%d", c, i+1))
		args = append(args, fields[c])
	}
	if r.m.HasUpdatedAt {
		set = append(set, "updated_at = now()")
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`,
		r.m.Table, strings.Join(set, ", "), len(args), r.cols)

	updated, err := r.m.Scan(r.db(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Sprintf("failed to update %s", r.m.Table), err)
	}
	return updated, nil
}

// Delete removes the row and reports whether one was removed.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.m.Table)
	tag, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", r.m.Table, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Count returns the number of rows matching the filters.
func (r *Repository[T]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	where, args, err := r.whereClause(filters, 1)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.m.Table, where)
	var count int64
	if err := r.db(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.m.Table, err)
	}
	return count, nil
}

// Exists reports whether a row with the given id exists.
func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.m.Table)
	var exists bool
	if err := r.db(ctx).QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", r.m.Table, err)
	}
	return exists, nil
}

// whereClause builds an ANDed equality filter. Keys are validated against
// the column set and sorted so generated SQL is deterministic.
func (r *Repository[T]) whereClause(filters map[string]any, startIdx int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		if _, ok := r.colSet[k]; !ok {
			return "", nil, fmt.Errorf("unknown column %q in filter for table %s", k, r.m.Table)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		conditions[i] = fmt.Sprintf("%s = $%d", k, startIdx+i)
		args[i] = filters[k]
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// orderClause turns "field" / "-field" into an ORDER BY clause.
func (r *Repository[T]) orderClause(orderBy string) (string, error) {
	if orderBy == "" {
		return "", nil
	}
	direction := "ASC"
	col := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		col = orderBy[1:]
	}
	if _, ok := r.colSet[col]; !ok {
		return "", fmt.Errorf("unknown column %q in order for table %s", col, r.m.Table)
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, direction), nil
}

// mapPgError translates constraint violations to domain errors.
func mapPgError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s (constraint %s): %w", msg, pgErr.ConstraintName, domainErrors.ErrDuplicateValue)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s (constraint %s): %w", msg, pgErr.ConstraintName, domainErrors.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// isNil reports whether v is nil, including typed nil pointers.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
