package pii

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
)

// Strategy selects how an accepted match is rewritten.
type Strategy string

const (
	StrategyPartial Strategy = "partial"
	StrategyFull    Strategy = "full"
	StrategyHash    Strategy = "hash"
	StrategyEncrypt Strategy = "encrypt"
	StrategyRedact  Strategy = "redact"
)

// Valid reports whether s is a known masking strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyPartial, StrategyFull, StrategyHash, StrategyEncrypt, StrategyRedact:
		return true
	}
	return false
}

// MaskConfig is the per-category masking policy for one run. Immutable once
// the run starts.
type MaskConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Strategy Strategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	Char     string   `json:"char" yaml:"char" mapstructure:"char"`
}

// maskChar returns the configured mask character, defaulting to "*".
func (c MaskConfig) maskChar() string {
	if c.Char == "" {
		return "*"
	}
	return c.Char
}

// DefaultMaskConfigs returns an all-enabled partial-masking policy, the
// starting point callers tweak per category.
func DefaultMaskConfigs() map[Category]MaskConfig {
	configs := make(map[Category]MaskConfig, len(categoryOrder))
	for _, c := range categoryOrder {
		configs[c] = MaskConfig{Enabled: true, Strategy: StrategyPartial, Char: "*"}
	}
	return configs
}

// obfuscationKey is the fixed repeating key for the encrypt strategy. The
// transform is reversible obfuscation, not encryption.
var obfuscationKey = []byte("deidscan-obfuscation-key")

// Obfuscate XORs text byte-wise against the fixed key and base64-encodes the
// result. Deterministic and reversible via Deobfuscate.
func Obfuscate(text string) string {
	data := []byte(text)
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ obfuscationKey[i%len(obfuscationKey)]
	}
	return base64.StdEncoding.EncodeToString(out)
}

// Deobfuscate reverses Obfuscate.
func Deobfuscate(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode obfuscated value: %w", err)
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ obfuscationKey[i%len(obfuscationKey)]
	}
	return string(out), nil
}

// hashValue returns the lowercase hex SHA-256 digest of the match.
func hashValue(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// applyMask rewrites an accepted match according to the configured strategy.
// partial supplies the category-specific partial shape.
func applyMask(match string, category Category, cfg MaskConfig, partial func() string) string {
	switch cfg.Strategy {
	case StrategyPartial:
		return partial()
	case StrategyFull:
		return repeatMask(cfg.maskChar(), len(match))
	case StrategyHash:
		return hashValue(match)
	case StrategyEncrypt:
		return Obfuscate(match)
	case StrategyRedact:
		return category.redactToken()
	default:
		return partial()
	}
}

func repeatMask(char string, n int) string {
	out := make([]byte, 0, n*len(char))
	for i := 0; i < n; i++ {
		out = append(out, char...)
	}
	return string(out)
}

const (
	taxIDConsonants = "BCDFGHJKLMNPQRSTVWXYZ"
	taxIDVowels     = "AEIOU"
	upperLetters    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// syntheticTaxID fabricates a fresh syntactically valid tax ID. The partial
// strategy for this category discards the original value entirely.
func syntheticTaxID() string {
	return fmt.Sprintf("%c%c%c%c%c%04d%c",
		taxIDConsonants[rand.Intn(len(taxIDConsonants))],
		taxIDVowels[rand.Intn(len(taxIDVowels))],
		taxIDConsonants[rand.Intn(len(taxIDConsonants))],
		taxIDVowels[rand.Intn(len(taxIDVowels))],
		taxIDConsonants[rand.Intn(len(taxIDConsonants))],
		rand.Intn(10000),
		upperLetters[rand.Intn(len(upperLetters))])
}

// syntheticVoterID fabricates a fresh syntactically valid voter ID
// (3 letters + 7 digits).
func syntheticVoterID() string {
	return fmt.Sprintf("%c%c%c%07d",
		upperLetters[rand.Intn(len(upperLetters))],
		upperLetters[rand.Intn(len(upperLetters))],
		upperLetters[rand.Intn(len(upperLetters))],
		rand.Intn(10000000))
}
