package auditlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creatorhub/creatorhub/internal/db"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &PostgresStore{pool: pool}
}

// InsertChange inserts a change log record.
func (s *PostgresStore) InsertChange(ctx context.Context, schema string, c *ChangeLog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (operator_id, operator_name, object_type, object_id, action,
		                before_value, after_value, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, occurred_at`, tenant.Table(schema, "change_logs"))

	err := s.pool.QueryRow(ctx, query,
		c.OperatorID, c.OperatorName, c.ObjectType, c.ObjectID, c.Action,
		nullableJSON(c.Before), nullableJSON(c.After), c.RequestID,
	).Scan(&c.ID, &c.OccurredAt)
	if err != nil {
		return fmt.Errorf("inserting change log: %w", err)
	}
	return nil
}

// InsertTechEvent inserts a tech event record.
func (s *PostgresStore) InsertTechEvent(ctx context.Context, schema string, e *TechEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (level, event_type, scope, message, payload, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, occurred_at`, tenant.Table(schema, "tech_event_logs"))

	err := s.pool.QueryRow(ctx, query,
		e.Level, e.EventType, e.Scope, e.Message, nullableJSON(e.Payload), e.RequestID,
	).Scan(&e.ID, &e.OccurredAt)
	if err != nil {
		return fmt.Errorf("inserting tech event: %w", err)
	}
	return nil
}

// InsertIntegration inserts an integration log record. Bodies are truncated to MaxBodySize.
func (s *PostgresStore) InsertIntegration(ctx context.Context, schema string, l *IntegrationLog) error {
	l.RequestBody = Truncate(l.RequestBody, MaxBodySize)
	l.ResponseBody = Truncate(l.ResponseBody, MaxBodySize)

	query := fmt.Sprintf(`
		INSERT INTO %s (integration, direction, method, endpoint, status_code, duration_ms,
		                request_body, response_body, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, occurred_at`, tenant.Table(schema, "integration_logs"))

	err := s.pool.QueryRow(ctx, query,
		l.Integration, l.Direction, l.Method, l.Endpoint, l.StatusCode, l.DurationMS,
		l.RequestBody, l.ResponseBody, l.Error,
	).Scan(&l.ID, &l.OccurredAt)
	if err != nil {
		return fmt.Errorf("inserting integration log: %w", err)
	}
	return nil
}

// ListChanges retrieves a paginated, filtered list of change logs, newest first.
func (s *PostgresStore) ListChanges(ctx context.Context, schema string, filter Filter) (*Page[ChangeLog], error) {
	filter.Level = nil
	columns := `id, occurred_at, operator_id, operator_name, object_type, object_id, action,
		before_value, after_value, request_id`

	return listPage(ctx, s.pool, tenant.Table(schema, "change_logs"), columns, "object_type", filter,
		func(rows pgx.Rows) (ChangeLog, error) {
			var c ChangeLog
			var before, after []byte
			err := rows.Scan(&c.ID, &c.OccurredAt, &c.OperatorID, &c.OperatorName,
				&c.ObjectType, &c.ObjectID, &c.Action, &before, &after, &c.RequestID)
			c.Before, c.After = before, after
			return c, err
		})
}

// ListTechEvents retrieves a paginated, filtered list of tech events, newest first.
func (s *PostgresStore) ListTechEvents(ctx context.Context, schema string, filter Filter) (*Page[TechEvent], error) {
	columns := `id, occurred_at, level, event_type, scope, message, payload, request_id`

	return listPage(ctx, s.pool, tenant.Table(schema, "tech_event_logs"), columns, "event_type", filter,
		func(rows pgx.Rows) (TechEvent, error) {
			var e TechEvent
			var payload []byte
			err := rows.Scan(&e.ID, &e.OccurredAt, &e.Level, &e.EventType, &e.Scope,
				&e.Message, &payload, &e.RequestID)
			e.Payload = payload
			return e, err
		})
}

// ListIntegrations retrieves a paginated, filtered list of integration logs, newest first.
func (s *PostgresStore) ListIntegrations(ctx context.Context, schema string, filter Filter) (*Page[IntegrationLog], error) {
	filter.Level = nil
	columns := `id, occurred_at, integration, direction, method, endpoint, status_code,
		duration_ms, request_body, response_body, error`

	return listPage(ctx, s.pool, tenant.Table(schema, "integration_logs"), columns, "integration", filter,
		func(rows pgx.Rows) (IntegrationLog, error) {
			var l IntegrationLog
			err := rows.Scan(&l.ID, &l.OccurredAt, &l.Integration, &l.Direction, &l.Method,
				&l.Endpoint, &l.StatusCode, &l.DurationMS, &l.RequestBody, &l.ResponseBody, &l.Error)
			return l, err
		})
}

// Prune deletes expired tech event and integration records in one transaction.
func (s *PostgresStore) Prune(ctx context.Context, schema string, before time.Time) (map[string]int64, error) {
	pruned := make(map[string]int64, 2)

	err := db.ExecTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"tech_event_logs", "integration_logs"} {
			query := fmt.Sprintf(`DELETE FROM %s WHERE occurred_at < $1`, tenant.Table(schema, table))
			result, err := tx.Exec(ctx, query, before)
			if err != nil {
				return fmt.Errorf("pruning %s: %w", table, err)
			}
			pruned[table] = result.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pruned, nil
}

// listPage runs the count and page queries shared by all three logs.
func listPage[T any](
	ctx context.Context,
	pool *pgxpool.Pool,
	table, columns, kindColumn string,
	filter Filter,
	scan func(pgx.Rows) (T, error),
) (*Page[T], error) {
	filter.Normalize()

	whereClause, args := buildWhere(filter, kindColumn)
	argIdx := len(args) + 1

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, whereClause)
	var total int
	if err := pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting log records: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit

	dataQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, columns, table, whereClause, argIdx, argIdx+1)

	args = append(args, filter.Limit, offset)

	rows, err := pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("listing log records: %w", err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log rows: %w", err)
	}

	return &Page[T]{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// buildWhere renders the filter as a WHERE clause with positional arguments.
func buildWhere(filter Filter, kindColumn string) (string, []any) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}
	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", kindColumn, argIdx))
		args = append(args, *filter.Kind)
		argIdx++
	}
	if filter.Level != nil {
		conditions = append(conditions, fmt.Sprintf("level = $%d", argIdx))
		args = append(args, *filter.Level)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// nullableJSON maps an empty document to SQL NULL.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
