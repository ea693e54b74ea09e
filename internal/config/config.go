package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	Env                 string
	GladiaAPIKey        string
	GladiaAPIURL        string
	DataDir             string
	AudioChunkBytes     int
	FinalEventTimeout   time.Duration
	ProducerJoinTimeout time.Duration
	FinalizeOnSourceEnd bool
	SpeechThreshold     float64
	YtDlpPath           string
	FFmpegPath          string
	DatabaseURL         string
	TranscriptWebhook   string
	DiscordToken        string
	DiscordChannelID    string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if _, err := url.ParseRequestURI(c.GladiaAPIURL); err != nil {
		return fmt.Errorf("GLADIA_API_URL is invalid: %w", err)
	}
	if c.AudioChunkBytes <= 0 {
		return fmt.Errorf("AUDIO_CHUNK_BYTES must be positive, got %d", c.AudioChunkBytes)
	}
	if c.FinalEventTimeout <= 0 {
		return fmt.Errorf("FINAL_EVENT_TIMEOUT must be positive, got %s", c.FinalEventTimeout)
	}
	if c.ProducerJoinTimeout <= 0 {
		return fmt.Errorf("PRODUCER_JOIN_TIMEOUT must be positive, got %s", c.ProducerJoinTimeout)
	}
	if c.SpeechThreshold < 0 || c.SpeechThreshold > 1 {
		return fmt.Errorf("SPEECH_THRESHOLD must be within [0, 1], got %v", c.SpeechThreshold)
	}
	if (c.DiscordToken == "") != (c.DiscordChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "GLADIA_API_KEY", value: c.GladiaAPIKey},
		{name: "GLADIA_API_URL", value: c.GladiaAPIURL},
		{name: "DATA_DIR", value: c.DataDir},
		{name: "YTDLP_PATH", value: c.YtDlpPath},
		{name: "FFMPEG_PATH", value: c.FFmpegPath},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

func (c *Config) DiscordRelayEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}
