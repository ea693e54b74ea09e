package repository

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresJournal struct {
	pool *pgxpool.Pool
}

func NewPostgresJournal(pool *pgxpool.Pool) repository.Journal {
	return &PostgresJournal{pool: pool}
}

func (j *PostgresJournal) StartSession(ctx context.Context, input repository.StartSessionInput) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO live_sessions (id, source_url, dir, started_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET source_url = EXCLUDED.source_url, dir = EXCLUDED.dir,
		 started_at = EXCLUDED.started_at, status = EXCLUDED.status`,
		input.SessionID, input.SourceURL, input.Dir, input.StartedAt, string(repository.SessionStatusRunning))
	return err
}

func (j *PostgresJournal) CompleteSession(ctx context.Context, input repository.CompleteSessionInput) error {
	_, err := j.pool.Exec(ctx,
		`UPDATE live_sessions
		 SET status = $2, ended_at = $3, stop_reason = $4, duration_seconds = $5, audio_bytes = $6
		 WHERE id = $1`,
		input.SessionID, string(repository.SessionStatusCompleted), input.EndedAt, input.StopReason, input.DurationSeconds, input.AudioBytes)
	return err
}

func (j *PostgresJournal) Bind(sessionID string) repository.Recorder {
	return &postgresRecorder{pool: j.pool, sessionID: sessionID}
}

type postgresRecorder struct {
	pool      *pgxpool.Pool
	sessionID string
}

func (r *postgresRecorder) AppendUtterance(ctx context.Context, u repository.Utterance) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO live_utterances (session_id, start_sec, end_sec, content, language)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.sessionID, u.Start, u.End, strings.TrimSpace(u.Text), u.Language)
	return err
}

func (r *postgresRecorder) AppendSentiment(ctx context.Context, s repository.SentimentRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO live_sentiments (session_id, sentiment, emotion, start_sec, end_sec, content)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.sessionID, s.Sentiment, s.Emotion, s.Start, s.End, strings.TrimSpace(s.Text))
	return err
}

func (r *postgresRecorder) WriteFinalTranscript(ctx context.Context, doc []byte) error {
	if !json.Valid(doc) {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO live_final_transcripts (session_id, document)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (session_id) DO UPDATE SET document = EXCLUDED.document`,
		r.sessionID, string(doc))
	return err
}

// Shutdown releases the pool when the injector shuts down.
func (j *PostgresJournal) Shutdown() {
	j.pool.Close()
}
