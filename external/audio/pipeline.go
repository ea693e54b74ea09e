package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/foxseedlab/livescribe/internal/audio"
)

// PipelineSource downloads a live source with yt-dlp and transcodes it with
// ffmpeg into raw PCM on stdout.
type PipelineSource struct {
	ytdlpPath  string
	ffmpegPath string
}

func NewPipelineSource(ytdlpPath, ffmpegPath string) audio.Source {
	return &PipelineSource{
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
	}
}

func (s *PipelineSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := validateLocator(locator); err != nil {
		return nil, err
	}
	ytdlp, err := exec.LookPath(s.ytdlpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", audio.ErrSourceUnavailable, s.ytdlpPath, err)
	}
	ffmpeg, err := exec.LookPath(s.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", audio.ErrSourceUnavailable, s.ffmpegPath, err)
	}

	download := exec.CommandContext(ctx, ytdlp, downloadArgs(locator)...)
	transcode := exec.CommandContext(ctx, ffmpeg, transcodeArgs()...)
	stderr := &tailBuffer{limit: stderrTailBytes}
	download.Stderr = stderr

	downloaded, err := download.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrSourceUnavailable, err)
	}
	transcode.Stdin = downloaded
	out, err := transcode.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrSourceUnavailable, err)
	}

	if err := download.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", audio.ErrSourceUnavailable, ytdlp, err)
	}
	if err := transcode.Start(); err != nil {
		_ = download.Process.Kill()
		_ = download.Wait()
		return nil, fmt.Errorf("%w: start %s: %v", audio.ErrSourceUnavailable, ffmpeg, err)
	}
	slog.Debug("audio pipeline started", "locator", locator, "download_pid", download.Process.Pid, "transcode_pid", transcode.Process.Pid)

	return &pipelineStream{
		out:       out,
		download:  download,
		transcode: transcode,
		stderr:    stderr,
	}, nil
}

func validateLocator(locator string) error {
	u, err := url.ParseRequestURI(locator)
	if err != nil {
		return fmt.Errorf("%w: invalid locator %q: %v", audio.ErrSourceUnavailable, locator, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: locator %q must be an http(s) url", audio.ErrSourceUnavailable, locator)
	}
	return nil
}

func downloadArgs(locator string) []string {
	return []string{"-f", "bestaudio", "-o", "-", "--no-playlist", "--live-from-start", "--quiet", locator}
}

func transcodeArgs() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "-",
		"-ac", strconv.Itoa(audio.ChannelCount),
		"-ar", strconv.Itoa(audio.SampleRateHertz),
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-",
	}
}

// stderrTailBytes bounds how much yt-dlp diagnostics are kept for errors.
const stderrTailBytes = 1024

type pipelineStream struct {
	out       io.ReadCloser
	download  *exec.Cmd
	transcode *exec.Cmd
	stderr    *tailBuffer

	read   atomic.Int64
	closed atomic.Bool
	once   sync.Once

	waitOnce     sync.Once
	downloadErr  error
	transcodeErr error
}

func (p *pipelineStream) Read(b []byte) (int, error) {
	n, err := p.out.Read(b)
	p.read.Add(int64(n))
	if err == nil {
		return n, nil
	}
	if p.closed.Load() || errors.Is(err, os.ErrClosed) {
		return n, io.EOF
	}
	if errors.Is(err, io.EOF) {
		if exitErr := p.exitError(); exitErr != nil {
			return n, exitErr
		}
	}
	return n, err
}

// exitError reaps both processes once the transcoder output is drained and
// reports a download that failed before producing any audio.
func (p *pipelineStream) exitError() error {
	p.wait()
	if p.closed.Load() || p.downloadErr == nil {
		return nil
	}
	detail := strings.TrimSpace(p.stderr.String())
	if p.read.Load() == 0 {
		return fmt.Errorf("%w: %s: %v: %s", audio.ErrSourceUnavailable, p.download.Path, p.downloadErr, detail)
	}
	slog.Warn("download process failed mid-stream", "error", p.downloadErr, "stderr", detail, "bytes", p.read.Load())
	return nil
}

func (p *pipelineStream) wait() {
	p.waitOnce.Do(func() {
		p.transcodeErr = p.transcode.Wait()
		p.downloadErr = p.download.Wait()
	})
}

func (p *pipelineStream) Close() error {
	p.once.Do(func() {
		p.closed.Store(true)
		_ = p.out.Close()
		for _, cmd := range []*exec.Cmd{p.transcode, p.download} {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		}
		p.wait()
		if p.transcodeErr != nil {
			slog.Debug("transcode process exited", "error", p.transcodeErr)
		}
		if p.downloadErr != nil {
			slog.Debug("download process exited", "error", p.downloadErr)
		}
	})
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(b)
	if extra := t.buf.Len() - t.limit; extra > 0 {
		t.buf.Next(extra)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
