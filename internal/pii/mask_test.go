package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"testing"
)

func TestObfuscateRoundTrip(t *testing.T) {
	inputs := []string{"", "a", "ABCDE1234F", "john.smith@example.com", "multi word value"}
	for _, in := range inputs {
		encoded := Obfuscate(in)
		if in != "" && encoded == in {
			t.Errorf("Obfuscate(%q) returned the input unchanged", in)
		}
		decoded, err := Deobfuscate(encoded)
		if err != nil {
			t.Fatalf("Deobfuscate(%q) failed: %v", encoded, err)
		}
		if decoded != in {
			t.Errorf("round trip of %q = %q", in, decoded)
		}
	}
}

func TestObfuscateDeterministic(t *testing.T) {
	if Obfuscate("4111111111111111") != Obfuscate("4111111111111111") {
		t.Error("Obfuscate is not deterministic")
	}
}

func TestDeobfuscateBadInput(t *testing.T) {
	if _, err := Deobfuscate("not base64!!!"); err == nil {
		t.Error("Deobfuscate accepted invalid base64")
	}
}

func TestApplyMaskStrategies(t *testing.T) {
	cfg := MaskConfig{Enabled: true, Char: "*"}
	partial := func() string { return "PARTIAL" }

	t.Run("full", func(t *testing.T) {
		cfg.Strategy = StrategyFull
		got := applyMask("ABCDE1234F", CategoryTaxID, cfg, partial)
		if got != strings.Repeat("*", 10) {
			t.Errorf("full mask = %q", got)
		}
	})

	t.Run("full with custom char", func(t *testing.T) {
		custom := MaskConfig{Enabled: true, Strategy: StrategyFull, Char: "#"}
		got := applyMask("1234", CategoryCard, custom, partial)
		if got != "####" {
			t.Errorf("full mask = %q", got)
		}
	})

	t.Run("hash", func(t *testing.T) {
		cfg.Strategy = StrategyHash
		got := applyMask("ABCDE1234F", CategoryTaxID, cfg, partial)
		sum := sha256.Sum256([]byte("ABCDE1234F"))
		if got != hex.EncodeToString(sum[:]) {
			t.Errorf("hash mask = %q", got)
		}
	})

	t.Run("encrypt is reversible", func(t *testing.T) {
		cfg.Strategy = StrategyEncrypt
		got := applyMask("ABCDE1234F", CategoryTaxID, cfg, partial)
		decoded, err := Deobfuscate(got)
		if err != nil || decoded != "ABCDE1234F" {
			t.Errorf("encrypt mask %q did not round trip: %v", got, err)
		}
	})

	t.Run("redact", func(t *testing.T) {
		cfg.Strategy = StrategyRedact
		got := applyMask("ABCDE1234F", CategoryTaxID, cfg, partial)
		if got != "[TAX_ID_REDACTED]" {
			t.Errorf("redact mask = %q", got)
		}
	})

	t.Run("partial delegates to the shape function", func(t *testing.T) {
		cfg.Strategy = StrategyPartial
		if got := applyMask("x", CategoryEmail, cfg, partial); got != "PARTIAL" {
			t.Errorf("partial mask = %q", got)
		}
	})
}

func TestSyntheticValues(t *testing.T) {
	t.Run("tax id shape", func(t *testing.T) {
		re := regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`)
		for i := 0; i < 20; i++ {
			if v := syntheticTaxID(); !re.MatchString(v) {
				t.Fatalf("syntheticTaxID() = %q, want shape %s", v, re)
			}
		}
	})

	t.Run("voter id shape", func(t *testing.T) {
		re := regexp.MustCompile(`^[A-Z]{3}\d{7}$`)
		for i := 0; i < 20; i++ {
			if v := syntheticVoterID(); !re.MatchString(v) {
				t.Fatalf("syntheticVoterID() = %q, want shape %s", v, re)
			}
		}
	})
}

func TestStrategyValid(t *testing.T) {
	for _, s := range []Strategy{StrategyPartial, StrategyFull, StrategyHash, StrategyEncrypt, StrategyRedact} {
		if !s.Valid() {
			t.Errorf("Strategy(%q).Valid() = false", s)
		}
	}
	if Strategy("tokenize").Valid() {
		t.Error(`Strategy("tokenize").Valid() = true`)
	}
}
