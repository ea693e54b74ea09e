package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	audioimpl "github.com/foxseedlab/livescribe/external/audio"
	configloader "github.com/foxseedlab/livescribe/external/config"
	consoleimpl "github.com/foxseedlab/livescribe/external/console"
	"github.com/foxseedlab/livescribe/external/discord"
	repositoryimpl "github.com/foxseedlab/livescribe/external/repository"
	transcriberimpl "github.com/foxseedlab/livescribe/external/transcriber"
	webhookimpl "github.com/foxseedlab/livescribe/external/webhook"
	"github.com/foxseedlab/livescribe/internal/config"
	"github.com/foxseedlab/livescribe/internal/session"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "livescribe [source-url]",
		Short: "Transcribe a live video stream in real time",
		Long: `Streams the audio of a live video to the transcription service and saves
the raw audio, the transcript, sentiment results and the final transcript
under DATA_DIR. Press Ctrl+C to stop; the final transcript is awaited before
exiting.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(context.Background(), args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	locator, err := sourceLocator(args, in, out)
	if err != nil {
		return err
	}

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)
	defer injector.Shutdown()

	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	dir, err := manager.Run(ctx, locator, sigCh)
	if err != nil {
		slog.Error("session ended with error", "error", err, "dir", dir)
		return err
	}
	slog.Info("session finished", "dir", dir)
	return nil
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Logs go to stderr so stdout carries only the live transcript.
func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	consoleimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func sourceLocator(args []string, in io.Reader, out io.Writer) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}
	if _, err := fmt.Fprint(out, "Live video URL: "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	locator := strings.TrimSpace(line)
	if locator == "" {
		return "", errors.New("no source URL given")
	}
	return locator, nil
}
