package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/transcriber"
)

const (
	negotiationTimeout   = 30 * time.Second
	maxErrorBodyBytes    = 4096
	liveAudioEncoding    = "wav/pcm"
	summarizationGeneral = "general"
)

type GladiaConfig struct {
	APIURL          string
	APIKey          string
	SpeechThreshold float64
}

// GladiaNegotiator creates live sessions through the provider's HTTP API.
type GladiaNegotiator struct {
	apiURL          string
	apiKey          string
	speechThreshold float64
	client          *http.Client
}

func NewGladiaNegotiator(cfg GladiaConfig) transcriber.Negotiator {
	return &GladiaNegotiator{
		apiURL:          cfg.APIURL,
		apiKey:          cfg.APIKey,
		speechThreshold: cfg.SpeechThreshold,
		client:          &http.Client{Timeout: negotiationTimeout},
	}
}

type liveSessionRequest struct {
	Encoding           string             `json:"encoding"`
	SampleRate         int                `json:"sample_rate"`
	BitDepth           int                `json:"bit_depth"`
	Channels           int                `json:"channels"`
	LanguageConfig     languageConfig     `json:"language_config"`
	PreProcessing      preProcessing      `json:"pre_processing"`
	RealtimeProcessing realtimeProcessing `json:"realtime_processing"`
	PostProcessing     postProcessing     `json:"post_processing"`
}

type languageConfig struct {
	Languages     []string `json:"languages"`
	CodeSwitching bool     `json:"code_switching"`
}

type preProcessing struct {
	AudioEnhancer   bool    `json:"audio_enhancer"`
	SpeechThreshold float64 `json:"speech_threshold"`
}

type realtimeProcessing struct {
	SentimentAnalysis bool `json:"sentiment_analysis"`
}

type postProcessing struct {
	Summarization       bool                `json:"summarization"`
	SummarizationConfig summarizationConfig `json:"summarization_config"`
}

type summarizationConfig struct {
	Type string `json:"type"`
}

type liveSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func newLiveSessionRequest(speechThreshold float64) liveSessionRequest {
	return liveSessionRequest{
		Encoding:   liveAudioEncoding,
		SampleRate: audio.SampleRateHertz,
		BitDepth:   audio.BitDepth,
		Channels:   audio.ChannelCount,
		LanguageConfig: languageConfig{
			Languages:     []string{},
			CodeSwitching: true,
		},
		PreProcessing: preProcessing{
			AudioEnhancer:   true,
			SpeechThreshold: speechThreshold,
		},
		RealtimeProcessing: realtimeProcessing{SentimentAnalysis: true},
		PostProcessing: postProcessing{
			Summarization:       true,
			SummarizationConfig: summarizationConfig{Type: summarizationGeneral},
		},
	}
}

func (n *GladiaNegotiator) InitSession(ctx context.Context) (*transcriber.LiveSession, error) {
	b, err := json.Marshal(newLiveSessionRequest(n.speechThreshold))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transcriber.ErrSessionInitFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gladia-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transcriber.ErrSessionInitFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &transcriber.SessionInitError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var out liveSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", transcriber.ErrSessionInitFailed, err)
	}
	if out.ID == "" || out.URL == "" {
		return nil, fmt.Errorf("%w: response is missing url or id", transcriber.ErrSessionInitFailed)
	}
	slog.Info("transcription session negotiated", "session_id", out.ID)
	return &transcriber.LiveSession{ID: out.ID, URL: out.URL}, nil
}
