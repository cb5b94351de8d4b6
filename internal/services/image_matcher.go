// internal/services/image_matcher.go
package services

import "strings"

const DefaultGemstoneImage = "/images/gemstones/default.jpg"

// ImageMatcher picks a stock catalog image for gemstones that have no uploaded
// photos. Lookup order: type+color, type, color, default.
type ImageMatcher struct {
	byTypeColor map[string]string
	byType      map[string]string
	byColor     map[string]string
	fallback    string
}

func NewImageMatcher() *ImageMatcher {
	return &ImageMatcher{
		byTypeColor: map[string]string{
			"sapphire|blue":   "/images/gemstones/sapphire-blue.jpg",
			"sapphire|pink":   "/images/gemstones/sapphire-pink.jpg",
			"sapphire|yellow": "/images/gemstones/sapphire-yellow.jpg",
			"diamond|yellow":  "/images/gemstones/diamond-yellow.jpg",
			"topaz|blue":      "/images/gemstones/topaz-blue.jpg",
			"tourmaline|pink": "/images/gemstones/tourmaline-pink.jpg",
			"garnet|green":    "/images/gemstones/garnet-green.jpg",
		},
		byType: map[string]string{
			"ruby":       "/images/gemstones/ruby.jpg",
			"sapphire":   "/images/gemstones/sapphire-blue.jpg",
			"emerald":    "/images/gemstones/emerald.jpg",
			"diamond":    "/images/gemstones/diamond.jpg",
			"amethyst":   "/images/gemstones/amethyst.jpg",
			"topaz":      "/images/gemstones/topaz.jpg",
			"opal":       "/images/gemstones/opal.jpg",
			"pearl":      "/images/gemstones/pearl.jpg",
			"garnet":     "/images/gemstones/garnet.jpg",
			"aquamarine": "/images/gemstones/aquamarine.jpg",
			"peridot":    "/images/gemstones/peridot.jpg",
			"tourmaline": "/images/gemstones/tourmaline.jpg",
			"tanzanite":  "/images/gemstones/tanzanite.jpg",
			"citrine":    "/images/gemstones/citrine.jpg",
		},
		byColor: map[string]string{
			"red":       "/images/gemstones/ruby.jpg",
			"blue":      "/images/gemstones/sapphire-blue.jpg",
			"green":     "/images/gemstones/emerald.jpg",
			"purple":    "/images/gemstones/amethyst.jpg",
			"violet":    "/images/gemstones/tanzanite.jpg",
			"yellow":    "/images/gemstones/citrine.jpg",
			"pink":      "/images/gemstones/sapphire-pink.jpg",
			"white":     "/images/gemstones/diamond.jpg",
			"colorless": "/images/gemstones/diamond.jpg",
		},
		fallback: DefaultGemstoneImage,
	}
}

// Match returns the image path for a gemstone type and color. Both values are
// matched as keywords, so "Blue Sapphire" and "deep blue" both hit.
func (m *ImageMatcher) Match(gemType, color string) string {
	typeKey := m.keyword(m.byType, gemType)
	colorKey := m.keyword(m.byColor, color)

	if typeKey != "" && colorKey != "" {
		if path, ok := m.byTypeColor[typeKey+"|"+colorKey]; ok {
			return path
		}
	}
	if typeKey != "" {
		return m.byType[typeKey]
	}
	if colorKey != "" {
		return m.byColor[colorKey]
	}
	return m.fallback
}

func (m *ImageMatcher) keyword(table map[string]string, value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if _, ok := table[value]; ok {
		return value
	}
	for _, word := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == ','
	}) {
		if _, ok := table[word]; ok {
			return word
		}
	}
	return ""
}
