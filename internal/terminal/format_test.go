package terminal

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "sub-second", d: 450 * time.Millisecond, want: "0.5s"},
		{name: "seconds", d: 12 * time.Second, want: "12.0s"},
		{name: "just under a minute", d: 59*time.Second + 900*time.Millisecond, want: "59.9s"},
		{name: "minutes and seconds", d: 2*time.Minute + 30*time.Second, want: "2m 30.0s"},
		{name: "exact minute", d: time.Minute, want: "1m 0.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestRuler(t *testing.T) {
	WithColorsDisabled(func() {
		got := Ruler(5, "─")
		if got != strings.Repeat("─", 5) {
			t.Errorf("Ruler(5) = %q", got)
		}
	})
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		width  int
		indent string
		want   string
	}{
		{
			name:  "fits on one line",
			text:  "short text",
			width: 40,
			want:  "short text",
		},
		{
			name:  "wraps at width",
			text:  "one two three four five",
			width: 12,
			want:  "one two\nthree four\nfive",
		},
		{
			name:   "indent carried to continuation lines",
			text:   "alpha beta gamma",
			width:  13,
			indent: "  ",
			want:   "  alpha beta\n  gamma",
		},
		{
			name:  "empty input",
			text:  "",
			width: 10,
			want:  "",
		},
		{
			name:   "width narrower than indent",
			text:   "word",
			width:  1,
			indent: "    ",
			want:   "    word",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapText(tt.text, tt.width, tt.indent); got != tt.want {
				t.Errorf("WrapText(%q, %d, %q) = %q, want %q", tt.text, tt.width, tt.indent, got, tt.want)
			}
		})
	}
}

func TestReportWidth_Capped(t *testing.T) {
	if w := ReportWidth(); w > MaxReportWidth {
		t.Errorf("ReportWidth() = %d, exceeds cap %d", w, MaxReportWidth)
	}
}
