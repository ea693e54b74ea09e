package webhook

import (
	"context"
	"encoding/json"
)

const TranscriptWebhookSchemaVersion = "2026-10-19"

type TranscriptWebhookPayload struct {
	SchemaVersion   string          `json:"schema_version"`
	SessionID       string          `json:"session_id"`
	SourceURL       string          `json:"source_url"`
	StartAt         string          `json:"start_at"`
	EndAt           string          `json:"end_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	StopReason      string          `json:"stop_reason"`
	SaveDir         string          `json:"save_dir"`
	UtteranceCount  int             `json:"utterance_count"`
	SentimentCount  int             `json:"sentiment_count"`
	Transcript      []string        `json:"transcript"`
	FinalTranscript json.RawMessage `json:"final_transcript,omitempty"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptWebhookPayload) error
}
