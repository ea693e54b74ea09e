package repository

import (
	"context"
	"errors"
	"testing"
)

type recordingStore struct {
	utterances []Utterance
	sentiments []SentimentRecord
	finals     [][]byte
	err        error
}

func (s *recordingStore) AppendUtterance(_ context.Context, u Utterance) error {
	s.utterances = append(s.utterances, u)
	return s.err
}

func (s *recordingStore) AppendSentiment(_ context.Context, r SentimentRecord) error {
	s.sentiments = append(s.sentiments, r)
	return s.err
}

func (s *recordingStore) WriteFinalTranscript(_ context.Context, doc []byte) error {
	s.finals = append(s.finals, doc)
	return s.err
}

func (s *recordingStore) WriteAudio(_ []byte) error { return nil }
func (s *recordingStore) Location() string          { return "/tmp/session" }
func (s *recordingStore) FellBack() bool            { return false }
func (s *recordingStore) Close() error              { return nil }

func TestTee_WritesPrimaryAndMirrors(t *testing.T) {
	primary := &recordingStore{}
	mirror := &recordingStore{}
	tee := NewTee(primary, mirror)
	ctx := context.Background()

	if err := tee.AppendUtterance(ctx, Utterance{Text: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tee.AppendSentiment(ctx, SentimentRecord{Sentiment: "positive"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tee.WriteFinalTranscript(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, s := range map[string]*recordingStore{"primary": primary, "mirror": mirror} {
		if len(s.utterances) != 1 || len(s.sentiments) != 1 || len(s.finals) != 1 {
			t.Fatalf("%s store did not receive all results: %+v", name, s)
		}
	}
	if tee.Location() != "/tmp/session" {
		t.Fatalf("unexpected location: %s", tee.Location())
	}
}

func TestTee_MirrorErrorsAreNotReturned(t *testing.T) {
	primary := &recordingStore{}
	mirror := &recordingStore{err: errors.New("database down")}
	tee := NewTee(primary, mirror)

	if err := tee.AppendUtterance(context.Background(), Utterance{Text: "hello"}); err != nil {
		t.Fatalf("expected mirror error to be swallowed, got %v", err)
	}
}

func TestTee_PrimaryErrorIsReturned(t *testing.T) {
	primary := &recordingStore{err: errors.New("disk full")}
	tee := NewTee(primary, NopJournal{}.Bind("session-1"))

	if err := tee.WriteFinalTranscript(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected primary error")
	}
}
