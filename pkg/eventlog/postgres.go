package eventlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores entries in a transition log table. The expected schema is
// created by the pg package migrations.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures Postgres storage.
type PostgresOption func(*Postgres)

// WithLogTable overrides the default "transition_log" table name.
func WithLogTable(table string) PostgresOption {
	return func(p *Postgres) {
		if table != "" {
			p.table = table
		}
	}
}

// NewPostgres creates a Postgres storage backed by the given pool.
func NewPostgres(pool *pgxpool.Pool, opts ...PostgresOption) *Postgres {
	p := &Postgres{pool: pool, table: "transition_log"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Append inserts the entry. Entries are never updated or deleted.
func (p *Postgres) Append(ctx context.Context, entry Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, entity_type, entity_id, attribute, from_state, to_state, event, context, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, p.table)

	_, err := p.pool.Exec(ctx, query,
		entry.ID, entry.EntityType, entry.EntityID, entry.Attribute,
		entry.From, entry.To, entry.Event, entry.Context, entry.Meta, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("eventlog: append entry: %w", err)
	}
	return nil
}

// Query returns the key's entries ordered by occurrence.
func (p *Postgres) Query(ctx context.Context, key Key) ([]Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, entity_type, entity_id, attribute, from_state, to_state, event, context, meta, occurred_at
		FROM %s
		WHERE entity_type = $1 AND entity_id = $2 AND attribute = $3
		ORDER BY occurred_at, id`, p.table)

	rows, err := p.pool.Query(ctx, query, key.EntityType, key.EntityID, key.Attribute)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Attribute,
			&e.From, &e.To, &e.Event, &e.Context, &e.Meta, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: iterate entries: %w", err)
	}
	return entries, nil
}
