package console

import "github.com/foxseedlab/livescribe/internal/repository"

// Printer is the user-facing output of a session. Implementations must be safe
// for use from the producer, consumer and signal goroutines at once.
type Printer interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Utterance(u repository.Utterance)
	Sentiment(s repository.SentimentRecord)
	FinalTranscript(doc []byte)
}
