package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/foxseedlab/livescribe/internal/repository"
)

func TestUtterance_RendersTimestampsAndText(t *testing.T) {
	var buf bytes.Buffer
	p := NewLipglossPrinter(&buf)

	p.Utterance(repository.Utterance{Start: 65.5, End: 70.125, Text: " hello "})

	out := buf.String()
	if !strings.Contains(out, "01:05.500 --> 01:10.125") {
		t.Fatalf("timestamps not found in output: %q", out)
	}
	if !strings.Contains(out, "| hello") {
		t.Fatalf("text not found in output: %q", out)
	}
}

func TestSentiment_RendersRecord(t *testing.T) {
	var buf bytes.Buffer
	p := NewLipglossPrinter(&buf)

	p.Sentiment(repository.SentimentRecord{Sentiment: "positive", Emotion: "joy", Start: 1, End: 2, Text: "great"})

	out := buf.String()
	for _, want := range []string{"SENTIMENT: POSITIVE | EMOTION: joy", "Timing: 00:01.000 --> 00:02.000", "Text: great"} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q not found in output: %q", want, out)
		}
	}
}

func TestFinalTranscript_PrintsBannerAndIndentedDocument(t *testing.T) {
	var buf bytes.Buffer
	p := NewLipglossPrinter(&buf)

	p.FinalTranscript([]byte(`{"type":"post_final_transcript"}`))

	out := buf.String()
	if !strings.Contains(out, finalBanner) {
		t.Fatalf("banner not found in output: %q", out)
	}
	if !strings.Contains(out, "\"type\": \"post_final_transcript\"") {
		t.Fatalf("indented document not found in output: %q", out)
	}
}

func TestInfoWarnError_PrintMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewLipglossPrinter(&buf)

	p.Info("info message")
	p.Warn("warn message")
	p.Error("error message")

	out := buf.String()
	for _, want := range []string{"info message", "warn message", "error message"} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q not found in output: %q", want, out)
		}
	}
}
