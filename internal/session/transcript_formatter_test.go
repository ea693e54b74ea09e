package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/webhook"
)

func TestBuildTranscriptWebhookPayload(t *testing.T) {
	ctx := context.Background()
	c := &transcriptCollector{}
	_ = c.AppendUtterance(ctx, repository.Utterance{Start: 65.5, End: 70.125, Text: " hello "})
	_ = c.AppendUtterance(ctx, repository.Utterance{Start: 71, End: 72, Text: "again"})
	_ = c.AppendSentiment(ctx, repository.SentimentRecord{Sentiment: "positive"})
	_ = c.WriteFinalTranscript(ctx, []byte(`{"type":"post_final_transcript"}`))

	startedAt := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	payload := c.buildTranscriptWebhookPayload(sessionReport{
		SessionID: "abc",
		SourceURL: "https://example.com/live",
		SaveDir:   "/data/session_abc",
		StartedAt: startedAt,
		EndedAt:   startedAt.Add(90 * time.Second),
		Stats:     Stats{StopReason: StopReasonInterrupted},
	})

	if payload.SchemaVersion != webhook.TranscriptWebhookSchemaVersion {
		t.Fatalf("unexpected schema version: %s", payload.SchemaVersion)
	}
	if payload.StartAt != "2026-02-28T12:00:00Z" || payload.EndAt != "2026-02-28T12:01:30Z" {
		t.Fatalf("unexpected period: %s - %s", payload.StartAt, payload.EndAt)
	}
	if payload.DurationSeconds != 90 {
		t.Fatalf("unexpected duration: %v", payload.DurationSeconds)
	}
	if payload.UtteranceCount != 2 || payload.SentimentCount != 1 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
	if payload.Transcript[0] != "01:05.500 --> 01:10.125 | hello" {
		t.Fatalf("unexpected first line: %q", payload.Transcript[0])
	}
	if string(payload.FinalTranscript) != `{"type":"post_final_transcript"}` {
		t.Fatalf("unexpected final transcript: %s", payload.FinalTranscript)
	}
	if payload.StopReason != "interrupted" {
		t.Fatalf("unexpected stop reason: %s", payload.StopReason)
	}
}

func TestBuildTranscriptWebhookPayload_WithoutFinal(t *testing.T) {
	c := &transcriptCollector{}
	now := time.Now()
	payload := c.buildTranscriptWebhookPayload(sessionReport{StartedAt: now, EndedAt: now.Add(-time.Second)})
	if payload.FinalTranscript != nil {
		t.Fatal("expected no final transcript")
	}
	if payload.DurationSeconds != 0 {
		t.Fatalf("expected clamped duration, got %v", payload.DurationSeconds)
	}
}

func TestSummaryLine(t *testing.T) {
	line := summaryLine(Stats{AudioBytes: 32000 * 75, Utterances: 3, Sentiments: 1, StopReason: StopReasonSourceEnded})
	if !strings.Contains(line, "00:01:15") {
		t.Fatalf("expected streamed duration in summary: %s", line)
	}
	if !strings.Contains(line, "3 utterances") || !strings.Contains(line, "source ended") {
		t.Fatalf("unexpected summary: %s", line)
	}
}

func TestFormatElapsedHMS(t *testing.T) {
	if got := formatElapsedHMS(3*time.Hour + 4*time.Minute + 5*time.Second); got != "03:04:05" {
		t.Fatalf("unexpected format: %s", got)
	}
}
