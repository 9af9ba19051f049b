package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"simple phrase", "momentum rotation", "momentum-rotation"},
		{"mixed case and punctuation", "Overnight Gap Reversal!", "overnight-gap-reversal"},
		{"collapses separators", "pairs -- trading / ETFs", "pairs-trading-etfs"},
		{"numbers kept", "52 week high breakout", "52-week-high-breakout"},
		{"empty input", "", "proposal"},
		{"only punctuation", "!!!", "proposal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slugify(tt.in))
		})
	}
}

func TestSlugifyLength(t *testing.T) {
	long := "a very long trading strategy idea that keeps going and going and going and going"
	slug := slugify(long)
	assert.LessOrEqual(t, len(slug), maxSlugLen)
	assert.NotEqual(t, "-", slug[len(slug)-1:], "no trailing hyphen after truncation")
}
