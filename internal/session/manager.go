package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/config"
	"github.com/foxseedlab/livescribe/internal/console"
	"github.com/foxseedlab/livescribe/internal/discord"
	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/transcriber"
	"github.com/foxseedlab/livescribe/internal/webhook"
)

const finalizeTimeout = 30 * time.Second

var ErrInterrupted = errors.New("interrupted before the session started")

// Manager bootstraps a session and wires it to storage, relays and the console.
type Manager struct {
	cfg        *config.Config
	negotiator transcriber.Negotiator
	dialer     transcriber.Dialer
	source     audio.Source
	stores     repository.StoreFactory
	journal    repository.Journal
	relay      discord.Relay
	webhook    webhook.Sender
	printer    console.Printer
}

func NewManager(cfg *config.Config, negotiator transcriber.Negotiator, dialer transcriber.Dialer, source audio.Source, stores repository.StoreFactory, journal repository.Journal, relay discord.Relay, wh webhook.Sender, printer console.Printer) *Manager {
	return &Manager{
		cfg:        cfg,
		negotiator: negotiator,
		dialer:     dialer,
		source:     source,
		stores:     stores,
		journal:    journal,
		relay:      relay,
		webhook:    wh,
		printer:    printer,
	}
}

// Run negotiates a session for locator and streams it until the source ends,
// the connection drops, ctx is cancelled or a value arrives on interrupts.
// It returns the directory the results were saved in, which is empty only when
// the session could not be created.
// An interrupt during negotiation aborts with ErrInterrupted before anything
// is opened.
func (m *Manager) Run(ctx context.Context, locator string, interrupts <-chan os.Signal) (string, error) {
	bootCtx, endBootstrap := m.watchBootstrap(ctx, interrupts)
	live, err := m.negotiator.InitSession(bootCtx)
	if endBootstrap() {
		slog.Info("bootstrap interrupted", "error", err)
		m.printer.Warn(messageInterruptedBeforeStart)
		return "", ErrInterrupted
	}
	if err != nil {
		slog.Error("failed to negotiate transcription session", "error", err)
		m.printer.Error(fmt.Sprintf(messageSessionInitFailed, err))
		return "", err
	}
	slog.Info("transcription session negotiated", "session_id", live.ID)

	store, err := m.stores.Open(live.ID)
	if err != nil {
		slog.Error("failed to open session storage", "error", err, "session_id", live.ID)
		m.printer.Error(fmt.Sprintf(messageStorageFailed, err))
		return "", err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close session storage", "error", err, "session_id", live.ID)
		}
	}()
	if store.FellBack() {
		m.printer.Warn(fmt.Sprintf(messageStorageFallback, store.Location()))
	}
	m.printer.Info(fmt.Sprintf(messageSessionStarted, live.ID))
	m.printer.Info(fmt.Sprintf(messageSaveDir, store.Location()))

	startedAt := time.Now()
	bg := context.WithoutCancel(ctx)
	if err := m.journal.StartSession(bg, repository.StartSessionInput{
		SessionID: live.ID,
		SourceURL: locator,
		Dir:       store.Location(),
		StartedAt: startedAt,
	}); err != nil {
		slog.Warn("failed to journal session start", "error", err, "session_id", live.ID)
	}

	collector := &transcriptCollector{}
	sink := repository.NewTee(store, m.journal.Bind(live.ID), m.relay.Bind(live.ID), collector)

	coord := NewCoordinator(live, m.cfg.GladiaAPIKey, locator, m.dialer, m.source, sink, m.printer, Options{
		FinalEventTimeout:   m.cfg.FinalEventTimeout,
		ProducerJoinTimeout: m.cfg.ProducerJoinTimeout,
		ChunkBytes:          m.cfg.AudioChunkBytes,
		FinalizeOnSourceEnd: m.cfg.FinalizeOnSourceEnd,
	})

	forwardDone := make(chan struct{})
	defer close(forwardDone)
	go m.forwardInterrupts(coord, interrupts, forwardDone)

	m.printer.Info(messageStopHint)
	runErr := coord.Run(ctx)
	endedAt := time.Now()
	stats := coord.Stats()

	m.finalize(bg, collector, sessionReport{
		SessionID: live.ID,
		SourceURL: locator,
		SaveDir:   store.Location(),
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Stats:     stats,
	})

	m.printer.Info(summaryLine(stats))
	m.printer.Info(fmt.Sprintf(messageSavedTo, store.Location()))
	if errors.Is(runErr, ErrConnectionLost) {
		slog.Warn("session ended with connection loss", "error", runErr, "session_id", live.ID)
	}
	return store.Location(), runErr
}

// watchBootstrap cancels the returned context on the first interrupt. The
// returned func stops watching, so later interrupts reach forwardInterrupts,
// and reports whether an interrupt arrived.
func (m *Manager) watchBootstrap(ctx context.Context, interrupts <-chan os.Signal) (context.Context, func() bool) {
	bootCtx, cancel := context.WithCancel(ctx)
	if interrupts == nil {
		return bootCtx, func() bool {
			cancel()
			return false
		}
	}

	var fired atomic.Bool
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-done:
		case sig, ok := <-interrupts:
			if !ok {
				return
			}
			slog.Info("interrupt received during bootstrap", "signal", sig.String())
			fired.Store(true)
			cancel()
		}
	}()

	var once sync.Once
	return bootCtx, func() bool {
		once.Do(func() {
			close(done)
			<-exited
			cancel()
		})
		return fired.Load()
	}
}

func (m *Manager) forwardInterrupts(coord *Coordinator, interrupts <-chan os.Signal, done <-chan struct{}) {
	if interrupts == nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case sig, ok := <-interrupts:
			if !ok {
				return
			}
			if coord.State().ShuttingDown() {
				slog.Debug("ignoring repeated interrupt", "signal", sig.String())
				continue
			}
			slog.Info("interrupt received", "signal", sig.String())
			m.printer.Warn(messageStopping)
			go coord.Shutdown()
		}
	}
}

func (m *Manager) finalize(ctx context.Context, collector *transcriptCollector, r sessionReport) {
	ctx, cancel := context.WithTimeout(ctx, finalizeTimeout)
	defer cancel()

	if err := m.journal.CompleteSession(ctx, repository.CompleteSessionInput{
		SessionID:       r.SessionID,
		EndedAt:         r.EndedAt,
		StopReason:      string(r.Stats.StopReason),
		DurationSeconds: r.EndedAt.Sub(r.StartedAt).Seconds(),
		AudioBytes:      r.Stats.AudioBytes,
	}); err != nil {
		slog.Warn("failed to journal session completion", "error", err, "session_id", r.SessionID)
	}

	if err := m.webhook.SendTranscript(ctx, collector.buildTranscriptWebhookPayload(r)); err != nil {
		slog.Error("failed to send webhook transcript", "error", err, "session_id", r.SessionID)
	}
}
