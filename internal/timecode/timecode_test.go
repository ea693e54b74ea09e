package timecode

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00.000"},
		{5.25, "00:05.250"},
		{65.5, "01:05.500"},
		{70.125, "01:10.125"},
		{3600, "60:00.000"},
		{-3, "00:00.000"},
	}
	for _, tc := range cases {
		if got := Format(tc.seconds); got != tc.want {
			t.Fatalf("Format(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestSpan(t *testing.T) {
	if got := Span(65.5, 70.125); got != "01:05.500 --> 01:10.125" {
		t.Fatalf("unexpected span: %q", got)
	}
}
