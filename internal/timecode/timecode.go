// Package timecode renders session-relative offsets the way captions and
// transcript files display them.
package timecode

import (
	"fmt"
	"math"
)

// Format renders seconds as MM:SS.mmm. Minutes are not wrapped into hours.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	minutes := int(seconds / 60)
	return fmt.Sprintf("%02d:%06.3f", minutes, math.Mod(seconds, 60))
}

// Span renders "start --> end".
func Span(start, end float64) string {
	return Format(start) + " --> " + Format(end)
}
