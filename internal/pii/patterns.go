package pii

import (
	"fmt"
	"regexp"
	"sync"
)

// PatternSource records where a compiled pattern came from.
type PatternSource string

const (
	PatternSourceDefault  PatternSource = "default"
	PatternSourceOverride PatternSource = "override"
)

// Pattern is a compiled detection pattern for one category. Immutable once
// built.
type Pattern struct {
	Category Category
	Regexp   *regexp.Regexp
	Source   PatternSource
}

// DefaultPresetName is the preset used when no preset (or an unknown one) is
// requested.
const DefaultPresetName = "indian"

// presetDef pairs a preset name with its category pattern texts. An empty
// pattern text means the caller is expected to supply their own.
type presetDef struct {
	name     string
	patterns map[Category]string
}

var presets = []presetDef{
	{
		name: DefaultPresetName,
		patterns: map[Category]string{
			CategoryNationalID:     `\b[2-9]\d{3}[ -]?\d{4}[ -]?\d{4}\b`,
			CategoryTaxID:          `\b([A-Z]{5}\d{4}[A-Z])\b`,
			CategoryCard:           `\b(\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4})\b`,
			CategoryEmail:          `\b([A-Za-z0-9._%+-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,}))\b`,
			CategoryPassport:       `\b([A-Z]\d{7})\b`,
			CategoryDrivingLicense: `\b(([A-Z]{2})-?(\d{13}))\b`,
			CategoryPhone:          `\b(?:\+91[\s-]?)?([6-9]\d{9})\b`,
			CategoryPersonName:     `\b([A-Z][a-z]{2,}(?:\s[A-Z][a-z]{2,})+)\b`,
			CategoryVoterID:        `\b([A-Z]{3}\d{7})\b`,
			CategoryDateOfBirth:    `\b(\d{2}[/-]\d{2}[/-]\d{4}|\d{4}[/-]\d{2}[/-]\d{2})\b`,
		},
	},
	{
		name: "custom",
		patterns: map[Category]string{
			CategoryNationalID:     "",
			CategoryTaxID:          "",
			CategoryCard:           "",
			CategoryEmail:          "",
			CategoryPassport:       "",
			CategoryDrivingLicense: "",
			CategoryPhone:          "",
			CategoryPersonName:     "",
			CategoryVoterID:        "",
			CategoryDateOfBirth:    "",
		},
	},
}

// InvalidPatternError reports a caller-supplied override that failed to
// compile. It is a warning, not a run abort: the category falls back to its
// default pattern.
type InvalidPatternError struct {
	Category Category
	Pattern  string
	Err      error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern override for %s: %v", e.Category, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

// Registry resolves per-category detection patterns, caching compiled
// regexes per (category, pattern text). Safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewRegistry creates an empty pattern registry.
func NewRegistry() *Registry {
	return &Registry{cache: make(map[string]*regexp.Regexp)}
}

// ListPresets returns the available preset names in declaration order.
func (r *Registry) ListPresets() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}

// GetPreset returns the pattern texts for a named preset, falling back to
// the default preset when the name is unknown.
func (r *Registry) GetPreset(name string) map[Category]string {
	for _, p := range presets {
		if p.name == name {
			return clonePatternMap(p.patterns)
		}
	}
	return clonePatternMap(presets[0].patterns)
}

// Resolve returns the compiled pattern for a category. A non-empty override
// takes precedence over the default; an override that fails to compile is
// reported via InvalidPatternError and the default is returned instead.
func (r *Registry) Resolve(category Category, override string) (Pattern, error) {
	if override != "" {
		re, err := r.compile(override)
		if err == nil {
			return Pattern{Category: category, Regexp: re, Source: PatternSourceOverride}, nil
		}
		def, _ := r.defaultPattern(category)
		return def, &InvalidPatternError{Category: category, Pattern: override, Err: err}
	}
	return r.defaultPattern(category)
}

// ResolveAll resolves patterns for every category, collecting non-fatal
// override errors as warnings.
func (r *Registry) ResolveAll(overrides map[Category]string) (map[Category]Pattern, []error) {
	patterns := make(map[Category]Pattern, len(categoryOrder))
	var warnings []error

	for _, c := range categoryOrder {
		p, err := r.Resolve(c, overrides[c])
		if err != nil {
			warnings = append(warnings, err)
		}
		patterns[c] = p
	}
	return patterns, warnings
}

func (r *Registry) defaultPattern(category Category) (Pattern, error) {
	text, ok := presets[0].patterns[category]
	if !ok {
		return Pattern{}, fmt.Errorf("no default pattern for category %q", category)
	}
	re, err := r.compile(text)
	if err != nil {
		// Default patterns are package constants; a compile failure here is
		// a programming error.
		return Pattern{}, fmt.Errorf("default pattern for %s does not compile: %w", category, err)
	}
	return Pattern{Category: category, Regexp: re, Source: PatternSourceDefault}, nil
}

func (r *Registry) compile(text string) (*regexp.Regexp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if re, ok := r.cache[text]; ok {
		return re, nil
	}
	re, err := regexp.Compile(text)
	if err != nil {
		return nil, err
	}
	r.cache[text] = re
	return re, nil
}

func clonePatternMap(src map[Category]string) map[Category]string {
	out := make(map[Category]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
