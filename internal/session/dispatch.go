package session

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/transcriber"
)

// consume reads events until the connection goes away and returns the error
// that ended the loop.
func (c *Coordinator) consume(conn transcriber.Conn) error {
	for {
		raw, err := conn.Receive()
		if err != nil {
			if !c.state.ShuttingDown() {
				slog.Warn("transcription connection loop ended", "error", err, "session_id", c.live.ID)
			}
			return err
		}
		c.dispatch(raw)
	}
}

func (c *Coordinator) dispatch(raw []byte) {
	ev, err := transcriber.DecodeEvent(raw)
	if err != nil {
		if !c.state.ShuttingDown() {
			slog.Warn("dropping transcription event", "error", err, "session_id", c.live.ID, "bytes", len(raw))
		}
		return
	}

	switch ev.Kind {
	case transcriber.EventTranscript:
		c.handleTranscript(ev.Transcript)
	case transcriber.EventSentiment:
		c.handleSentiments(ev.Sentiments)
	case transcriber.EventPostFinal:
		c.handlePostFinal(ev.Raw)
	default:
		slog.Debug("ignoring transcription event", "type", ev.Type, "session_id", c.live.ID)
	}
}

func (c *Coordinator) handleTranscript(t *transcriber.Transcript) {
	if t == nil || !t.IsFinal || strings.TrimSpace(t.Utterance.Text) == "" {
		return
	}
	u := repository.Utterance{
		Start:    t.Utterance.Start,
		End:      t.Utterance.End,
		Text:     t.Utterance.Text,
		Language: t.Utterance.Language,
	}
	ctx, cancel := c.persistContext()
	defer cancel()
	if err := c.sink.AppendUtterance(ctx, u); err != nil {
		c.reportPersistError("transcript", err)
	}
	c.utterances.Add(1)
	c.printer.Utterance(u)
}

func (c *Coordinator) handleSentiments(results []transcriber.SentimentResult) {
	for _, r := range results {
		rec := repository.SentimentRecord{
			Sentiment: r.Sentiment,
			Emotion:   r.Emotion,
			Start:     r.Start,
			End:       r.End,
			Text:      r.Text,
		}
		ctx, cancel := c.persistContext()
		if err := c.sink.AppendSentiment(ctx, rec); err != nil {
			c.reportPersistError("sentiment", err)
		}
		cancel()
		c.sentiments.Add(1)
		c.printer.Sentiment(rec)
	}
}

// handlePostFinal marks the final event before persisting it so slow mirrors
// cannot run out the shutdown wait. Run does not return, and the store is not
// closed, until this has finished.
func (c *Coordinator) handlePostFinal(doc []byte) {
	c.state.MarkFinalReceived()

	ctx, cancel := c.persistContext()
	defer cancel()
	if err := c.sink.WriteFinalTranscript(ctx, doc); err != nil {
		c.reportPersistError("final transcript", err)
	}
	c.printer.FinalTranscript(doc)

	if c.state.ShuttingDown() {
		c.closeConn()
	}
}

func (c *Coordinator) reportPersistError(what string, err error) {
	slog.Error("failed to persist result", "what", what, "error", err, "session_id", c.live.ID)
	if !c.state.ShuttingDown() {
		c.printer.Error(fmt.Sprintf(messagePersistFailed, what, err))
	}
}
