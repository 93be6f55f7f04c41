package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creatorhub/creatorhub/internal/tenant"
)

// PostgresDirectory implements Directory over the subsidiaries and talents tables.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewDirectory creates a Directory backed by the given connection pool.
func NewDirectory(pool *pgxpool.Pool) Directory {
	return &PostgresDirectory{pool: pool}
}

// SubsidiaryExists reports whether the subsidiary exists in the tenant schema.
func (d *PostgresDirectory) SubsidiaryExists(ctx context.Context, schema string, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, tenant.Table(schema, "subsidiaries"))

	var exists bool
	if err := d.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking subsidiary existence: %w", err)
	}
	return exists, nil
}

// TalentSubsidiary returns the talent's subsidiary id.
func (d *PostgresDirectory) TalentSubsidiary(ctx context.Context, schema string, talentID uuid.UUID) (*uuid.UUID, error) {
	query := fmt.Sprintf(`SELECT subsidiary_id FROM %s WHERE id = $1`, tenant.Table(schema, "talents"))

	var subID *uuid.UUID
	if err := d.pool.QueryRow(ctx, query, talentID).Scan(&subID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScopeNotFound
		}
		return nil, fmt.Errorf("querying talent: %w", err)
	}
	return subID, nil
}
