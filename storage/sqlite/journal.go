// Package sqlite keeps a journal of every published semantic event in a
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nathoo/taleforge/engine/events"
	"github.com/nathoo/taleforge/types"
)

var _ events.Handler = (*Journal)(nil).Append

// Journal appends events to the events table. Each journal writes under
// one session name so several playthroughs can share a database.
type Journal struct {
	db      *sql.DB
	session string
}

// Entry is one journaled event.
type Entry struct {
	ID       string
	Session  string
	Turn     int
	Type     string
	Action   string
	Time     time.Time
	Entities []types.EntityID
	Payload  map[string]any
}

// Open connects to dsn ("sqlite://path" or "sqlite://:memory:") and
// ensures the schema exists.
func Open(ctx context.Context, dsn, session string) (*Journal, error) {
	driverDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One connection keeps :memory: databases alive and writes ordered.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	j := &Journal{db: db, session: session}
	if err := j.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id         TEXT PRIMARY KEY,
			session    TEXT NOT NULL,
			turn       INTEGER NOT NULL,
			type       TEXT NOT NULL,
			action     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			entities   TEXT NOT NULL DEFAULT '[]',
			payload    TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_turn ON events (session, turn)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events (type)`,
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

// Append writes one turn's events in a single transaction. It satisfies
// events.Handler.
func (j *Journal) Append(turn int, evs []types.SemanticEvent) error {
	if len(evs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, session, turn, type, action, created_at, entities, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range evs {
		entities, err := json.Marshal(ev.Entities)
		if err != nil {
			return fmt.Errorf("encoding entities of %s: %w", ev.ID, err)
		}
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("encoding payload of %s: %w", ev.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			ev.ID, j.session, turn, ev.Type, ev.Action,
			ev.Timestamp.UTC().Format(time.RFC3339Nano), string(entities), string(payload),
		); err != nil {
			return fmt.Errorf("inserting event %s: %w", ev.ID, err)
		}
	}
	return tx.Commit()
}

// Events returns the session's events from turn onwards, oldest first.
// IDs sort in creation order, so they break ties within a turn.
func (j *Journal) Events(ctx context.Context, fromTurn int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, turn, type, action, created_at, entities, payload
		FROM events
		WHERE session = ? AND turn >= ?
		ORDER BY turn, id`, j.session, fromTurn)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			created           string
			entities, payload string
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Turn, &e.Type, &e.Action, &created, &entities, &payload); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if e.Time, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("event %s: parsing time: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(entities), &e.Entities); err != nil {
			return nil, fmt.Errorf("event %s: decoding entities: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %s: decoding payload: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Sessions lists the sessions recorded in the database.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT session FROM events ORDER BY session`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
