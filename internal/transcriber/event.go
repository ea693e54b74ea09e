package transcriber

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedEvent = errors.New("malformed transcription event")

type EventKind int

const (
	EventIgnored EventKind = iota
	EventTranscript
	EventSentiment
	EventPostFinal
)

const (
	eventTypeTranscript     = "transcript"
	eventTypeSentiment      = "sentiment_analysis"
	eventTypePostFinal      = "post_final_transcript"
	controlTypeEndRecording = "end_recording"
)

func (k EventKind) String() string {
	switch k {
	case EventTranscript:
		return eventTypeTranscript
	case EventSentiment:
		return eventTypeSentiment
	case EventPostFinal:
		return eventTypePostFinal
	default:
		return "ignored"
	}
}

type Utterance struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
}

type Transcript struct {
	IsFinal   bool
	Utterance Utterance
}

type SentimentResult struct {
	Sentiment string  `json:"sentiment"`
	Emotion   string  `json:"emotion"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
}

// Event is one server message. Exactly one payload field is set, chosen by Kind.
// Raw always holds the original bytes.
type Event struct {
	Kind       EventKind
	Type       string
	Transcript *Transcript
	Sentiments []SentimentResult
	Raw        []byte
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type transcriptData struct {
	IsFinal   bool       `json:"is_final"`
	Utterance *Utterance `json:"utterance"`
}

type sentimentData struct {
	Results []SentimentResult `json:"results"`
}

func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	ev := Event{Type: env.Type, Raw: raw}

	switch env.Type {
	case eventTypeTranscript:
		var data transcriptData
		if err := decodeData(env, &data); err != nil {
			return Event{}, err
		}
		if data.Utterance == nil {
			return Event{}, fmt.Errorf("%w: transcript event without utterance", ErrMalformedEvent)
		}
		ev.Kind = EventTranscript
		ev.Transcript = &Transcript{IsFinal: data.IsFinal, Utterance: *data.Utterance}
	case eventTypeSentiment:
		var data sentimentData
		if err := decodeData(env, &data); err != nil {
			return Event{}, err
		}
		ev.Kind = EventSentiment
		ev.Sentiments = data.Results
	case eventTypePostFinal:
		ev.Kind = EventPostFinal
	default:
		ev.Kind = EventIgnored
	}
	return ev, nil
}

func decodeData(env envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s event without data", ErrMalformedEvent, env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedEvent, env.Type, err)
	}
	return nil
}

// EndRecording is the single control message a client sends.
type EndRecording struct {
	SessionID string           `json:"session_id"`
	Type      string           `json:"type"`
	Data      EndRecordingData `json:"data"`
}

type EndRecordingData struct {
	RecordingDuration float64 `json:"recording_duration"`
}

func NewEndRecording(sessionID string, recordingDurationSec float64) EndRecording {
	return EndRecording{
		SessionID: sessionID,
		Type:      controlTypeEndRecording,
		Data:      EndRecordingData{RecordingDuration: recordingDurationSec},
	}
}
