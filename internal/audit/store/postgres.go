package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/vault-demo-go/internal/audit"
)

// Postgres persists audit events to an audit_events table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new postgres-backed audit store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const insertEvent = `
	INSERT INTO audit_events (event_id, kind, item_id, occurred_at, client_ip, user_agent)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (event_id) DO NOTHING
`

func (p *Postgres) SaveItemWritten(ctx context.Context, event *audit.ItemWrittenEvent) error {
	_, err := p.pool.Exec(ctx, insertEvent,
		event.EventID,
		event.Op,
		event.ItemID,
		event.WrittenAt,
		nullable(event.ClientIP),
		nullable(event.UserAgent),
	)

	return err
}

func (p *Postgres) SaveItemDeleted(ctx context.Context, event *audit.ItemDeletedEvent) error {
	_, err := p.pool.Exec(ctx, insertEvent,
		event.EventID,
		"delete",
		event.ItemID,
		event.DeletedAt,
		nullable(event.ClientIP),
		nullable(event.UserAgent),
	)

	return err
}

func (p *Postgres) SaveItemExpired(ctx context.Context, event *audit.ItemExpiredEvent) error {
	_, err := p.pool.Exec(ctx, insertEvent,
		event.EventID,
		"expire",
		event.ItemID,
		event.SweptAt,
		nil,
		nil,
	)

	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
