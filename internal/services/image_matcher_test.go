// internal/services/image_matcher_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageMatcher(t *testing.T) {
	m := NewImageMatcher()

	tests := []struct {
		gemType, color, want string
	}{
		{"Sapphire", "Pink", "/images/gemstones/sapphire-pink.jpg"},
		{"Blue Sapphire", "deep blue", "/images/gemstones/sapphire-blue.jpg"},
		{"ruby", "", "/images/gemstones/ruby.jpg"},
		{"spinel", "red", "/images/gemstones/ruby.jpg"},
		{"topaz", "orange", "/images/gemstones/topaz.jpg"},
		{"spinel", "black", DefaultGemstoneImage},
		{"", "", DefaultGemstoneImage},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.gemType, tt.color), "%s/%s", tt.gemType, tt.color)
	}
}
