package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/livescribe/internal/config"
)

type envConfig struct {
	Env                 string        `env:"ENV" envDefault:"production"`
	GladiaAPIKey        string        `env:"GLADIA_API_KEY,required"`
	GladiaAPIURL        string        `env:"GLADIA_API_URL" envDefault:"https://api.gladia.io/v2/live"`
	DataDir             string        `env:"DATA_DIR" envDefault:"data"`
	AudioChunkBytes     int           `env:"AUDIO_CHUNK_BYTES" envDefault:"4096"`
	FinalEventTimeout   time.Duration `env:"FINAL_EVENT_TIMEOUT" envDefault:"30s"`
	ProducerJoinTimeout time.Duration `env:"PRODUCER_JOIN_TIMEOUT" envDefault:"2s"`
	FinalizeOnSourceEnd bool          `env:"FINALIZE_ON_SOURCE_END" envDefault:"true"`
	SpeechThreshold     float64       `env:"SPEECH_THRESHOLD" envDefault:"0.8"`
	YtDlpPath           string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath          string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	DatabaseURL         string        `env:"DATABASE_URL"`
	TranscriptWebhook   string        `env:"TRANSCRIPT_WEBHOOK_URL"`
	DiscordToken        string        `env:"DISCORD_TOKEN"`
	DiscordChannelID    string        `env:"DISCORD_CHANNEL_ID"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                 raw.Env,
		GladiaAPIKey:        raw.GladiaAPIKey,
		GladiaAPIURL:        raw.GladiaAPIURL,
		DataDir:             raw.DataDir,
		AudioChunkBytes:     raw.AudioChunkBytes,
		FinalEventTimeout:   raw.FinalEventTimeout,
		ProducerJoinTimeout: raw.ProducerJoinTimeout,
		FinalizeOnSourceEnd: raw.FinalizeOnSourceEnd,
		SpeechThreshold:     raw.SpeechThreshold,
		YtDlpPath:           raw.YtDlpPath,
		FFmpegPath:          raw.FFmpegPath,
		DatabaseURL:         raw.DatabaseURL,
		TranscriptWebhook:   raw.TranscriptWebhook,
		DiscordToken:        raw.DiscordToken,
		DiscordChannelID:    raw.DiscordChannelID,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
