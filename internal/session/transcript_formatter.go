package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/webhook"
)

// transcriptCollector keeps what the webhook needs in memory. It sits behind
// the tee like any other mirror.
type transcriptCollector struct {
	mu         sync.Mutex
	lines      []string
	sentiments int
	final      []byte
}

func (c *transcriptCollector) AppendUtterance(_ context.Context, u repository.Utterance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, repository.UtteranceLine(u))
	return nil
}

func (c *transcriptCollector) AppendSentiment(_ context.Context, _ repository.SentimentRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentiments++
	return nil
}

func (c *transcriptCollector) WriteFinalTranscript(_ context.Context, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.final = append([]byte(nil), doc...)
	return nil
}

type sessionReport struct {
	SessionID string
	SourceURL string
	SaveDir   string
	StartedAt time.Time
	EndedAt   time.Time
	Stats     Stats
}

func (c *transcriptCollector) buildTranscriptWebhookPayload(r sessionReport) webhook.TranscriptWebhookPayload {
	c.mu.Lock()
	defer c.mu.Unlock()

	durationSeconds := r.EndedAt.Sub(r.StartedAt).Seconds()
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	var final json.RawMessage
	if json.Valid(c.final) {
		final = json.RawMessage(c.final)
	}

	return webhook.TranscriptWebhookPayload{
		SchemaVersion:   webhook.TranscriptWebhookSchemaVersion,
		SessionID:       r.SessionID,
		SourceURL:       r.SourceURL,
		StartAt:         r.StartedAt.UTC().Format(time.RFC3339),
		EndAt:           r.EndedAt.UTC().Format(time.RFC3339),
		DurationSeconds: durationSeconds,
		StopReason:      string(r.Stats.StopReason),
		SaveDir:         r.SaveDir,
		UtteranceCount:  len(c.lines),
		SentimentCount:  c.sentiments,
		Transcript:      append([]string(nil), c.lines...),
		FinalTranscript: final,
	}
}

func summaryLine(s Stats) string {
	streamed := time.Duration(s.AudioBytes) * time.Second / audio.BytesPerSecond
	return fmt.Sprintf(messageSummary, formatElapsedHMS(streamed), s.Utterances, s.Sentiments, stopReasonDetail(s.StopReason))
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
