// Package vocab holds the fixed vocabularies used to resolve product
// candidates out of free-text product lines.
package vocab

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyVocabulary is returned when a vocabulary file defines no sizes.
var ErrEmptyVocabulary = errors.New("vocabulary defines no sizes")

// Vocabulary defines the ordered lookup tables for product parsing.
// Matching is ordered substring matching: the first enumerated member
// found in the input wins. The size table is always consulted before
// the flavour table.
type Vocabulary struct {
	Sizes          []string `yaml:"sizes"`
	Flavours       []string `yaml:"flavours"`
	NoiseWords     []string `yaml:"noise_words"`
	DefaultSize    string   `yaml:"default_size"`
	DefaultFlavour string   `yaml:"default_flavour"`
}

// Default returns the built-in vocabulary.
func Default() Vocabulary {
	return Vocabulary{
		Sizes: []string{"Large", "Regular"},
		Flavours: []string{
			"Vanilla", "Caramel", "Hazelnut", "Chocolate", "Mint", "Strawberry",
		},
		NoiseWords:     []string{"Flavoured"},
		DefaultSize:    "Regular",
		DefaultFlavour: "Standard",
	}
}

// Load reads a vocabulary from a YAML file. Missing fields fall back to
// the built-in defaults.
func Load(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary %s: %w", path, err)
	}

	v := Default()
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	if len(v.Sizes) == 0 {
		return Vocabulary{}, fmt.Errorf("%w: %s", ErrEmptyVocabulary, path)
	}
	if v.DefaultSize == "" {
		v.DefaultSize = "Regular"
	}
	if v.DefaultFlavour == "" {
		v.DefaultFlavour = "Standard"
	}

	return v, nil
}

// MatchSize scans text for the first size in enumeration order and
// returns it together with the text stripped of the matched token.
// Returns ok=false when no size matches; callers then use DefaultSize.
func (v Vocabulary) MatchSize(text string) (size, remainder string, ok bool) {
	return matchOrdered(text, v.Sizes)
}

// MatchFlavour scans text for the first flavour in enumeration order.
// Returns ok=false when no flavour matches; callers then use
// DefaultFlavour.
func (v Vocabulary) MatchFlavour(text string) (flavour, remainder string, ok bool) {
	return matchOrdered(text, v.Flavours)
}

// StripNoise removes noise words (e.g. "Flavoured") from a product name.
func (v Vocabulary) StripNoise(text string) string {
	for _, word := range v.NoiseWords {
		text = strings.ReplaceAll(text, word, "")
	}
	return collapseSpaces(text)
}

// matchOrdered finds the first vocabulary member contained in text.
// First enumerated member wins, not the leftmost occurrence.
func matchOrdered(text string, table []string) (match, remainder string, ok bool) {
	for _, member := range table {
		if idx := strings.Index(text, member); idx >= 0 {
			stripped := text[:idx] + text[idx+len(member):]
			return member, collapseSpaces(stripped), true
		}
	}
	return "", text, false
}

// collapseSpaces trims and squashes runs of whitespace left by stripping.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
