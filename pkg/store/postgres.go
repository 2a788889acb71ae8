package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultStateTable matches the schema shipped in pkg/pg migrations.
const defaultStateTable = "entity_states"

// Postgres implements EntityStore over a pgx connection pool. The
// compare-and-write is a single conditional statement, so atomicity comes
// from the database rather than from any engine-side locking.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures the Postgres store.
type PostgresOption func(*Postgres)

// WithStateTable overrides the table name, for hosts with their own schema
// conventions.
func WithStateTable(table string) PostgresOption {
	return func(p *Postgres) {
		if table != "" {
			p.table = table
		}
	}
}

// NewPostgres creates a Postgres-backed entity store.
func NewPostgres(pool *pgxpool.Pool, opts ...PostgresOption) (*Postgres, error) {
	if pool == nil {
		return nil, errors.New("store: pgx pool cannot be nil")
	}
	p := &Postgres{pool: pool, table: defaultStateTable}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Postgres) ReadState(ctx context.Context, ref Ref, attribute string) (string, bool, error) {
	query := fmt.Sprintf(
		`SELECT value FROM %s WHERE entity_type = $1 AND entity_id = $2 AND attribute = $3`,
		p.table)

	var value string
	err := p.pool.QueryRow(ctx, query, ref.Type, ref.ID, attribute).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: read %s.%s: %w", ref, attribute, err)
	}
	return value, true, nil
}

func (p *Postgres) ConditionalWrite(ctx context.Context, ref Ref, attribute, expected, value string) (bool, error) {
	if expected == "" {
		// First write for this field. ON CONFLICT DO NOTHING makes two
		// racing initial writes resolve to exactly one winner.
		query := fmt.Sprintf(
			`INSERT INTO %s (entity_type, entity_id, attribute, value, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (entity_type, entity_id, attribute) DO NOTHING`,
			p.table)
		tag, err := p.pool.Exec(ctx, query, ref.Type, ref.ID, attribute, value)
		if err != nil {
			return false, fmt.Errorf("store: initial write %s.%s: %w", ref, attribute, err)
		}
		return tag.RowsAffected() == 1, nil
	}

	query := fmt.Sprintf(
		`UPDATE %s SET value = $1, updated_at = now()
		 WHERE entity_type = $2 AND entity_id = $3 AND attribute = $4 AND value = $5`,
		p.table)
	tag, err := p.pool.Exec(ctx, query, value, ref.Type, ref.ID, attribute, expected)
	if err != nil {
		return false, fmt.Errorf("store: conditional write %s.%s: %w", ref, attribute, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) Exists(ctx context.Context, ref Ref) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE entity_type = $1 AND entity_id = $2)`,
		p.table)

	var exists bool
	if err := p.pool.QueryRow(ctx, query, ref.Type, ref.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: exists %s: %w", ref, err)
	}
	return exists, nil
}
