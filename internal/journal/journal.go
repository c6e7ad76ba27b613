// Package journal records pushed events in Postgres so a farmer's recent
// activity can be inspected after an outage. The realtime client has no
// replay, so this is the listener's only record of what arrived.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	realtime "github.com/coldfarms/realtime"
)

const schema = `
CREATE TABLE IF NOT EXISTS realtime_events (
	id          BIGSERIAL PRIMARY KEY,
	event_type  TEXT        NOT NULL,
	payload     JSONB,
	farmer_id   TEXT        NOT NULL DEFAULT '',
	received_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS realtime_events_type_idx ON realtime_events (event_type, received_at DESC);
`

// Entry is one recorded event.
type Entry struct {
	ID         int64
	Type       string
	Payload    json.RawMessage
	FarmerID   string
	ReceivedAt time.Time
}

// Journal appends events to the realtime_events table.
type Journal struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open connects to Postgres using a lib/pq DSN.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Journal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an existing database handle.
func New(db *sql.DB, logger zerolog.Logger) *Journal {
	return &Journal{
		db:     db,
		logger: logger.With().Str("component", "journal").Logger(),
		now:    time.Now,
	}
}

// EnsureSchema creates the events table if it does not exist.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record stores one event.
func (j *Journal) Record(ctx context.Context, msg *realtime.Message, farmerID string) error {
	// lib/pq sends []byte as bytea, which JSONB rejects; pass text instead.
	var payload any
	if len(msg.Data) > 0 {
		payload = string(msg.Data)
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO realtime_events (event_type, payload, farmer_id, received_at) VALUES ($1, $2, $3, $4)`,
		msg.Type, payload, farmerID, j.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", msg.Type, err)
	}

	j.logger.Debug().Str("type", msg.Type).Msg("event recorded")
	return nil
}

// Handler adapts Record to a realtime.HandlerFunc for farmerID.
func (j *Journal) Handler(ctx context.Context, farmerID string) realtime.HandlerFunc {
	return func(msg *realtime.Message) error {
		return j.Record(ctx, msg, farmerID)
	}
}

// Recent returns the newest events of eventType, newest first.
// An empty eventType returns events of every type.
func (j *Journal) Recent(ctx context.Context, eventType string, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, event_type, payload, farmer_id, received_at FROM realtime_events
		 WHERE ($1 = '' OR event_type = $1)
		 ORDER BY received_at DESC, id DESC
		 LIMIT $2`,
		eventType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Type, &payload, &e.FarmerID, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = payload
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return entries, nil
}

// Close closes the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
