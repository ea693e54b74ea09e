package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE live_session_status AS ENUM ('running', 'completed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS live_sessions (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		dir TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status live_session_status NOT NULL DEFAULT 'running',
		stop_reason TEXT NOT NULL DEFAULT '',
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		audio_bytes BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS live_utterances (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id TEXT NOT NULL REFERENCES live_sessions(id) ON DELETE CASCADE,
		start_sec DOUBLE PRECISION NOT NULL,
		end_sec DOUBLE PRECISION NOT NULL,
		content TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_live_utterances_session ON live_utterances (session_id, start_sec)`,
	`CREATE TABLE IF NOT EXISTS live_sentiments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id TEXT NOT NULL REFERENCES live_sessions(id) ON DELETE CASCADE,
		sentiment TEXT NOT NULL,
		emotion TEXT NOT NULL,
		start_sec DOUBLE PRECISION NOT NULL,
		end_sec DOUBLE PRECISION NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS live_final_transcripts (
		session_id TEXT PRIMARY KEY REFERENCES live_sessions(id) ON DELETE CASCADE,
		document JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
