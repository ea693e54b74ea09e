package repository

import (
	"context"
	"log/slog"
)

// Tee writes every result to the primary store and then to each mirror.
// Only primary errors are returned; mirror errors are logged.
type Tee struct {
	Store
	mirrors []Recorder
}

func NewTee(primary Store, mirrors ...Recorder) *Tee {
	return &Tee{Store: primary, mirrors: mirrors}
}

func (t *Tee) AppendUtterance(ctx context.Context, u Utterance) error {
	err := t.Store.AppendUtterance(ctx, u)
	for _, m := range t.mirrors {
		if merr := m.AppendUtterance(ctx, u); merr != nil {
			slog.Warn("failed to mirror utterance", "error", merr)
		}
	}
	return err
}

func (t *Tee) AppendSentiment(ctx context.Context, s SentimentRecord) error {
	err := t.Store.AppendSentiment(ctx, s)
	for _, m := range t.mirrors {
		if merr := m.AppendSentiment(ctx, s); merr != nil {
			slog.Warn("failed to mirror sentiment", "error", merr)
		}
	}
	return err
}

func (t *Tee) WriteFinalTranscript(ctx context.Context, doc []byte) error {
	err := t.Store.WriteFinalTranscript(ctx, doc)
	for _, m := range t.mirrors {
		if merr := m.WriteFinalTranscript(ctx, doc); merr != nil {
			slog.Warn("failed to mirror final transcript", "error", merr)
		}
	}
	return err
}

// NopJournal is used when no database is configured.
type NopJournal struct{}

func (NopJournal) StartSession(context.Context, StartSessionInput) error       { return nil }
func (NopJournal) CompleteSession(context.Context, CompleteSessionInput) error { return nil }
func (NopJournal) Bind(string) Recorder                                        { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) AppendUtterance(context.Context, Utterance) error       { return nil }
func (nopRecorder) AppendSentiment(context.Context, SentimentRecord) error { return nil }
func (nopRecorder) WriteFinalTranscript(context.Context, []byte) error     { return nil }
