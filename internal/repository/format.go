package repository

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/livescribe/internal/timecode"
)

// UtteranceLine renders "MM:SS.mmm --> MM:SS.mmm | text".
func UtteranceLine(u Utterance) string {
	return fmt.Sprintf("%s | %s", timecode.Span(u.Start, u.End), strings.TrimSpace(u.Text))
}

// SentimentLines renders the three lines of one sentiment record.
func SentimentLines(s SentimentRecord) []string {
	return []string{
		fmt.Sprintf("SENTIMENT: %s | EMOTION: %s", strings.ToUpper(s.Sentiment), s.Emotion),
		fmt.Sprintf("Timing: %s", timecode.Span(s.Start, s.End)),
		fmt.Sprintf("Text: %s", strings.TrimSpace(s.Text)),
	}
}
