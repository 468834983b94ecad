package levenshtein_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/mailscout/internal/levenshtein"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		s, t string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"gmal.com", "gmail.com", 1},
		{"gmial.com", "gmail.com", 2},
		{"yahooo.com", "yahoo.com", 1},
		{"outlok.com", "outlook.com", 1},
		{"münchen", "munchen", 1}, // rune-based, not byte-based
		{"a", "b", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein.Distance(tt.s, tt.t), "Distance(%q, %q)", tt.s, tt.t)
		assert.Equal(t, tt.want, levenshtein.Distance(tt.t, tt.s), "Distance(%q, %q)", tt.t, tt.s)
	}
}
