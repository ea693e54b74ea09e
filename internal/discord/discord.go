package discord

import (
	"context"

	"github.com/foxseedlab/livescribe/internal/repository"
)

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Client is the REST surface used to post captions. No gateway connection is
// opened.
type Client interface {
	SendChannelMessage(channelID, content string) error
	SendChannelMessageWithFile(msg FileMessage) error
}

// Relay mirrors the results of one session into a text channel.
type Relay interface {
	Bind(sessionID string) repository.Recorder
}

type NopRelay struct{}

func (NopRelay) Bind(string) repository.Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) AppendUtterance(context.Context, repository.Utterance) error       { return nil }
func (nopRecorder) AppendSentiment(context.Context, repository.SentimentRecord) error { return nil }
func (nopRecorder) WriteFinalTranscript(context.Context, []byte) error                { return nil }
