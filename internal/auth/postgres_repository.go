package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements ClientRepository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new ClientRepository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) ClientRepository {
	return &PostgresRepository{pool: pool}
}

const clientColumns = `c.id, c.tenant_id, t.code, c.name, c.api_key_prefix, c.api_key_hash,
	c.created_at, c.revoked_at`

func scanClients(rows pgx.Rows) ([]Client, error) {
	defer rows.Close()

	clients := []Client{}
	for rows.Next() {
		var c Client
		err := rows.Scan(
			&c.ID, &c.TenantID, &c.TenantCode, &c.Name,
			&c.ApiKeyPrefix, &c.ApiKeyHash,
			&c.CreatedAt, &c.RevokedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning api client row: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api client rows: %w", err)
	}
	return clients, nil
}

// Create inserts a new API client record.
func (r *PostgresRepository) Create(ctx context.Context, c *Client) error {
	query := `
		INSERT INTO api_clients (tenant_id, name, api_key_prefix, api_key_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		c.TenantID,
		c.Name,
		c.ApiKeyPrefix,
		c.ApiKeyHash,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("inserting api client: unknown tenant %s", c.TenantID)
		}
		return fmt.Errorf("inserting api client: %w", err)
	}

	return nil
}

// GetByID retrieves a single API client by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM api_clients c
		JOIN tenants t ON t.id = c.tenant_id
		WHERE c.id = $1`

	var c Client
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.TenantID, &c.TenantCode, &c.Name,
		&c.ApiKeyPrefix, &c.ApiKeyHash,
		&c.CreatedAt, &c.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("querying api client: %w", err)
	}

	return &c, nil
}

// FindByPrefix returns active clients of active tenants matching the given API key prefix.
func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM api_clients c
		JOIN tenants t ON t.id = c.tenant_id
		WHERE c.api_key_prefix = $1 AND c.revoked_at IS NULL AND t.is_active`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding api clients by prefix: %w", err)
	}
	return scanClients(rows)
}

// ListByTenant retrieves the API clients of a tenant, oldest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM api_clients c
		JOIN tenants t ON t.id = c.tenant_id
		WHERE c.tenant_id = $1
		ORDER BY c.created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing api clients: %w", err)
	}
	return scanClients(rows)
}

// Revoke sets revoked_at on a client. Returns ErrClientNotFound if the client
// does not exist, and ErrClientRevoked if already revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE api_clients
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoking api client: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM api_clients WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking api client existence: %w", err)
		}
		if !exists {
			return ErrClientNotFound
		}
		return ErrClientRevoked
	}

	return nil
}
