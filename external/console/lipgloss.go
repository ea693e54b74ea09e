package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/foxseedlab/livescribe/internal/console"
	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/timecode"
)

const finalBanner = "################ End of session ################"

var (
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGray   = lipgloss.Color("#888888")
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#FFD75F")
	colorGreen  = lipgloss.Color("#5FFF87")
)

type styles struct {
	info      lipgloss.Style
	warn      lipgloss.Style
	err       lipgloss.Style
	timestamp lipgloss.Style
	positive  lipgloss.Style
	negative  lipgloss.Style
	neutral   lipgloss.Style
	banner    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		info:      r.NewStyle().Foreground(colorGray),
		warn:      r.NewStyle().Foreground(colorYellow),
		err:       r.NewStyle().Foreground(colorRed).Bold(true),
		timestamp: r.NewStyle().Foreground(colorCyan),
		positive:  r.NewStyle().Foreground(colorGreen).Bold(true),
		negative:  r.NewStyle().Foreground(colorRed).Bold(true),
		neutral:   r.NewStyle().Bold(true),
		banner:    r.NewStyle().Foreground(colorCyan).Bold(true),
	}
}

type LipglossPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	styles styles
}

func NewLipglossPrinter(w io.Writer) console.Printer {
	return &LipglossPrinter{
		w:      w,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

func (p *LipglossPrinter) Info(msg string) {
	p.println(p.styles.info.Render(msg))
}

func (p *LipglossPrinter) Warn(msg string) {
	p.println(p.styles.warn.Render(msg))
}

func (p *LipglossPrinter) Error(msg string) {
	p.println(p.styles.err.Render(msg))
}

func (p *LipglossPrinter) Utterance(u repository.Utterance) {
	p.println(fmt.Sprintf("%s | %s", p.styles.timestamp.Render(timecode.Span(u.Start, u.End)), strings.TrimSpace(u.Text)))
}

func (p *LipglossPrinter) Sentiment(s repository.SentimentRecord) {
	lines := repository.SentimentLines(s)
	lines[0] = p.sentimentStyle(s.Sentiment).Render(lines[0])
	p.println("\n" + strings.Join(lines, "\n") + "\n")
}

func (p *LipglossPrinter) FinalTranscript(doc []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		buf.Reset()
		buf.Write(doc)
	}
	p.println("\n" + p.styles.banner.Render(finalBanner) + "\n")
	p.println(buf.String())
}

func (p *LipglossPrinter) sentimentStyle(sentiment string) lipgloss.Style {
	switch strings.ToLower(sentiment) {
	case "positive":
		return p.styles.positive
	case "negative":
		return p.styles.negative
	default:
		return p.styles.neutral
	}
}

func (p *LipglossPrinter) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, s)
}
