package blocklist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

// entryColumns is the ordered list of columns scanned from blocklist_entries.
const entryColumns = `id, scope_type, scope_id, name, pattern, pattern_type, severity, action,
	category, inherit, force_use, is_active, description, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var scopeType, patternType, severity, action string
	err := row.Scan(
		&e.ID, &scopeType, &e.Scope.ID, &e.Name, &e.Pattern,
		&patternType, &severity, &action,
		&e.Category, &e.Inherit, &e.ForceUse, &e.IsActive, &e.Description,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("scanning blocklist entry row: %w", err)
	}
	e.Scope.Type = scope.Type(scopeType)
	e.PatternType = PatternType(patternType)
	e.Severity = Severity(severity)
	e.Action = Action(action)
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blocklist entry rows: %w", err)
	}
	return entries, nil
}

// chainCondition renders "(scope_type = $n AND scope_id = $n+1) OR ..." for every level of chain.
func chainCondition(chain scope.Chain, argIdx int) (string, []any) {
	conditions := make([]string, 0, len(chain))
	args := make([]any, 0, 2*len(chain))
	for _, ref := range chain {
		conditions = append(conditions, fmt.Sprintf("(scope_type = $%d AND scope_id = $%d)", argIdx, argIdx+1))
		args = append(args, string(ref.Type), ref.ID)
		argIdx += 2
	}
	return "(" + strings.Join(conditions, " OR ") + ")", args
}

// Create inserts a new blocklist entry.
func (r *PostgresRepository) Create(ctx context.Context, schema string, e *Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (scope_type, scope_id, name, pattern, pattern_type, severity, action,
		                category, inherit, force_use, is_active, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`, tenant.Table(schema, "blocklist_entries"))

	err := r.pool.QueryRow(ctx, query,
		string(e.Scope.Type), e.Scope.ID, e.Name, e.Pattern, string(e.PatternType),
		string(e.Severity), string(e.Action), e.Category,
		e.Inherit, e.ForceUse, e.IsActive, e.Description,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePattern
		}
		return fmt.Errorf("inserting blocklist entry: %w", err)
	}
	return nil
}

// GetByID retrieves a single entry by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, schema string, id uuid.UUID) (*Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, entryColumns, tenant.Table(schema, "blocklist_entries"))
	return scanEntry(r.pool.QueryRow(ctx, query, id))
}

// ListByScope retrieves the entries owned by ref, oldest first.
func (r *PostgresRepository) ListByScope(ctx context.Context, schema string, ref scope.Ref) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE scope_type = $1 AND scope_id = $2 ORDER BY created_at ASC, id ASC`,
		entryColumns, tenant.Table(schema, "blocklist_entries"))

	rows, err := r.pool.Query(ctx, query, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("listing blocklist entries: %w", err)
	}
	return collectEntries(rows)
}

// ListForChain retrieves the entries owned by any level of chain.
func (r *PostgresRepository) ListForChain(ctx context.Context, schema string, chain scope.Chain) ([]Entry, error) {
	if len(chain) == 0 {
		return []Entry{}, nil
	}
	cond, args := chainCondition(chain, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at ASC, id ASC`,
		entryColumns, tenant.Table(schema, "blocklist_entries"), cond)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing blocklist entries for chain: %w", err)
	}
	return collectEntries(rows)
}

// Update modifies non-nil fields on an entry. Returns the updated entry.
func (r *PostgresRepository) Update(ctx context.Context, schema string, id uuid.UUID, fields UpdateFields) (*Entry, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if fields.Name != nil {
		set("name", *fields.Name)
	}
	if fields.Pattern != nil {
		set("pattern", *fields.Pattern)
	}
	if fields.PatternType != nil {
		set("pattern_type", string(*fields.PatternType))
	}
	if fields.Severity != nil {
		set("severity", string(*fields.Severity))
	}
	if fields.Action != nil {
		set("action", string(*fields.Action))
	}
	if fields.Category != nil {
		set("category", *fields.Category)
	}
	if fields.Inherit != nil {
		set("inherit", *fields.Inherit)
	}
	if fields.ForceUse != nil {
		set("force_use", *fields.ForceUse)
	}
	if fields.IsActive != nil {
		set("is_active", *fields.IsActive)
	}
	if fields.Description != nil {
		set("description", *fields.Description)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, schema, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		tenant.Table(schema, "blocklist_entries"), strings.Join(setClauses, ", "), argIdx, entryColumns)

	e, err := scanEntry(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicatePattern
		}
		if errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating blocklist entry: %w", err)
	}
	return e, nil
}

// Delete removes an entry and, by cascade, its overrides.
func (r *PostgresRepository) Delete(ctx context.Context, schema string, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tenant.Table(schema, "blocklist_entries"))

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting blocklist entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListOverrides retrieves the overrides attached to any level of chain.
func (r *PostgresRepository) ListOverrides(ctx context.Context, schema string, chain scope.Chain) ([]Override, error) {
	if len(chain) == 0 {
		return []Override{}, nil
	}
	cond, args := chainCondition(chain, 1)
	query := fmt.Sprintf(`SELECT entry_id, scope_type, scope_id, disabled, updated_at FROM %s WHERE %s`,
		tenant.Table(schema, "blocklist_entry_overrides"), cond)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing blocklist overrides: %w", err)
	}
	defer rows.Close()

	overrides := []Override{}
	for rows.Next() {
		var o Override
		var scopeType string
		if err := rows.Scan(&o.EntryID, &scopeType, &o.Scope.ID, &o.Disabled, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning blocklist override row: %w", err)
		}
		o.Scope.Type = scope.Type(scopeType)
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blocklist override rows: %w", err)
	}
	return overrides, nil
}

// SetOverride inserts or replaces the override of o.EntryID on o.Scope.
func (r *PostgresRepository) SetOverride(ctx context.Context, schema string, o *Override) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (entry_id, scope_type, scope_id, disabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entry_id, scope_type, scope_id)
		DO UPDATE SET disabled = EXCLUDED.disabled, updated_at = NOW()
		RETURNING updated_at`, tenant.Table(schema, "blocklist_entry_overrides"))

	err := r.pool.QueryRow(ctx, query, o.EntryID, string(o.Scope.Type), o.Scope.ID, o.Disabled).Scan(&o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrEntryNotFound
		}
		return fmt.Errorf("upserting blocklist override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override of entryID on ref.
func (r *PostgresRepository) DeleteOverride(ctx context.Context, schema string, entryID uuid.UUID, ref scope.Ref) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE entry_id = $1 AND scope_type = $2 AND scope_id = $3`,
		tenant.Table(schema, "blocklist_entry_overrides"))

	result, err := r.pool.Exec(ctx, query, entryID, string(ref.Type), ref.ID)
	if err != nil {
		return fmt.Errorf("deleting blocklist override: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
