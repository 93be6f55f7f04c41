package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const valueColumns = `scope_type, scope_id, key, value, locked, updated_by, updated_at`

func scanValue(row pgx.Row) (*Value, error) {
	var v Value
	var scopeType string
	var raw []byte
	err := row.Scan(&scopeType, &v.Scope.ID, &v.Key, &raw, &v.Locked, &v.UpdatedBy, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrValueNotFound
		}
		return nil, fmt.Errorf("scanning setting row: %w", err)
	}
	v.Scope.Type = scope.Type(scopeType)
	v.Raw = raw
	return &v, nil
}

// ListForChain returns the values stored on any level of chain.
func (r *PostgresRepository) ListForChain(ctx context.Context, schema string, chain scope.Chain) ([]Value, error) {
	if len(chain) == 0 {
		return []Value{}, nil
	}

	var conditions []string
	var args []any
	argIdx := 1
	for _, ref := range chain {
		conditions = append(conditions, fmt.Sprintf("(scope_type = $%d AND scope_id = $%d)", argIdx, argIdx+1))
		args = append(args, string(ref.Type), ref.ID)
		argIdx += 2
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`,
		valueColumns, tenant.Table(schema, "scoped_settings"), strings.Join(conditions, " OR "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	values := []Value{}
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, err
		}
		values = append(values, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setting rows: %w", err)
	}
	return values, nil
}

// Get returns the value stored on ref for key.
func (r *PostgresRepository) Get(ctx context.Context, schema string, ref scope.Ref, key string) (*Value, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE scope_type = $1 AND scope_id = $2 AND key = $3`,
		valueColumns, tenant.Table(schema, "scoped_settings"))
	return scanValue(r.pool.QueryRow(ctx, query, string(ref.Type), ref.ID, key))
}

// Upsert inserts or replaces the value of v.Key on v.Scope.
func (r *PostgresRepository) Upsert(ctx context.Context, schema string, v *Value) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (scope_type, scope_id, key, value, locked, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scope_type, scope_id, key)
		DO UPDATE SET value = EXCLUDED.value, locked = EXCLUDED.locked,
		              updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING updated_at`, tenant.Table(schema, "scoped_settings"))

	err := r.pool.QueryRow(ctx, query,
		string(v.Scope.Type), v.Scope.ID, v.Key, string(v.Raw), v.Locked, v.UpdatedBy,
	).Scan(&v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting setting: %w", err)
	}
	return nil
}

// Delete removes the value of key on ref.
func (r *PostgresRepository) Delete(ctx context.Context, schema string, ref scope.Ref, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE scope_type = $1 AND scope_id = $2 AND key = $3`,
		tenant.Table(schema, "scoped_settings"))

	result, err := r.pool.Exec(ctx, query, string(ref.Type), ref.ID, key)
	if err != nil {
		return fmt.Errorf("deleting setting: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrValueNotFound
	}
	return nil
}
