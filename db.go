package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/Zachkp/globe-portfolio/internal/globe"
)

const schema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,  -- never the raw IP
	user_agent TEXT,
	path TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp);

CREATE TABLE IF NOT EXISTS globe_sessions (
	id TEXT PRIMARY KEY,
	hashed_client TEXT,
	width REAL NOT NULL,
	height REAL NOT NULL,
	started_at DATETIME NOT NULL,
	ended_at DATETIME NOT NULL,
	drags INTEGER NOT NULL DEFAULT 0,
	ticks INTEGER NOT NULL DEFAULT 0,
	reason TEXT
);
CREATE INDEX IF NOT EXISTS idx_globe_sessions_ended ON globe_sessions(ended_at);
`

// openDB opens the analytics database and creates its tables. SQLite only
// allows one writer, so the pool is limited to a single connection.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func (a *app) trackVisitor(ip, userAgent, path string) {
	_, err := a.db.Exec(`
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, a.hashIP(ip), userAgent, path, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("error recording visitor")
	}
}

// recordGlobeSession stores the summary of an unmounted globe. Only the
// hashed client and counters are kept, never widget state.
func (a *app) recordGlobeSession(sum globe.SessionSummary) {
	_, err := a.db.Exec(`
		INSERT INTO globe_sessions (id, hashed_client, width, height, started_at, ended_at, drags, ticks, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sum.ID, sum.ClientHash, sum.Viewport.Width, sum.Viewport.Height,
		sum.Started.UTC(), sum.Ended.UTC(), sum.Drags, sum.Ticks, sum.Reason)
	if err != nil {
		log.Error().Err(err).Str("session", sum.ID).Msg("error recording globe session")
	}
}

// startupCleanup runs the privacy cleanup once, outside startup's path.
func (a *app) startupCleanup() {
	a.background(func() {
		if _, err := a.cleanupOldData(context.Background()); err != nil {
			log.Error().Err(err).Msg("startup privacy cleanup failed")
		}
	})
}

// cleanupOldData removes analytics older than 12 months.
func (a *app) cleanupOldData(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(-1, 0, 0)
	var total int64
	for _, q := range []string{
		`DELETE FROM visitors WHERE timestamp < ?`,
		`DELETE FROM globe_sessions WHERE ended_at < ?`,
	} {
		res, err := a.db.ExecContext(ctx, q, cutoff)
		if err != nil {
			return total, fmt.Errorf("privacy cleanup: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if total > 0 {
		log.Info().Int64("rows", total).Msg("privacy cleanup: removed records older than 12 months")
	}
	return total, nil
}
