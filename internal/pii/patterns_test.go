package pii

import (
	"errors"
	"testing"
)

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()

	t.Run("default pattern without override", func(t *testing.T) {
		p, err := r.Resolve(CategoryEmail, "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if p.Source != PatternSourceDefault {
			t.Errorf("source = %s, want %s", p.Source, PatternSourceDefault)
		}
		if !p.Regexp.MatchString("alice@example.com") {
			t.Error("default email pattern missed a plain address")
		}
	})

	t.Run("valid override takes precedence", func(t *testing.T) {
		p, err := r.Resolve(CategoryEmail, `\bEMP-\d{4}\b`)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if p.Source != PatternSourceOverride {
			t.Errorf("source = %s, want %s", p.Source, PatternSourceOverride)
		}
		if !p.Regexp.MatchString("EMP-1234") {
			t.Error("override pattern did not match its own syntax")
		}
		if p.Regexp.MatchString("alice@example.com") {
			t.Error("override pattern unexpectedly matched an email")
		}
	})

	t.Run("invalid override falls back to default with a warning", func(t *testing.T) {
		p, err := r.Resolve(CategoryEmail, `[unclosed`)
		var invalid *InvalidPatternError
		if !errors.As(err, &invalid) {
			t.Fatalf("err = %v, want InvalidPatternError", err)
		}
		if invalid.Category != CategoryEmail {
			t.Errorf("error category = %s, want %s", invalid.Category, CategoryEmail)
		}
		if p.Source != PatternSourceDefault {
			t.Errorf("fallback source = %s, want %s", p.Source, PatternSourceDefault)
		}
		if !p.Regexp.MatchString("alice@example.com") {
			t.Error("fallback pattern does not behave like the default")
		}
	})
}

func TestRegistryResolveAll(t *testing.T) {
	r := NewRegistry()

	patterns, warnings := r.ResolveAll(map[Category]string{
		CategoryPhone: `[bad(`,
	})

	if len(patterns) != len(Categories()) {
		t.Fatalf("resolved %d patterns, want %d", len(patterns), len(Categories()))
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if patterns[CategoryPhone].Source != PatternSourceDefault {
		t.Error("phone pattern should have fallen back to the default")
	}
	for _, c := range Categories() {
		if patterns[c].Regexp == nil {
			t.Errorf("category %s resolved without a compiled pattern", c)
		}
	}
}

func TestRegistryPresets(t *testing.T) {
	r := NewRegistry()

	t.Run("preset names", func(t *testing.T) {
		names := r.ListPresets()
		if len(names) != 2 || names[0] != DefaultPresetName || names[1] != "custom" {
			t.Errorf("ListPresets() = %v", names)
		}
	})

	t.Run("unknown preset falls back to default", func(t *testing.T) {
		got := r.GetPreset("nonexistent")
		want := r.GetPreset(DefaultPresetName)
		for c, p := range want {
			if got[c] != p {
				t.Errorf("pattern for %s = %q, want %q", c, got[c], p)
			}
		}
	})

	t.Run("custom preset is empty", func(t *testing.T) {
		for c, p := range r.GetPreset("custom") {
			if p != "" {
				t.Errorf("custom preset has a pattern for %s: %q", c, p)
			}
		}
	})

	t.Run("preset map is a copy", func(t *testing.T) {
		first := r.GetPreset(DefaultPresetName)
		first[CategoryEmail] = "mutated"
		second := r.GetPreset(DefaultPresetName)
		if second[CategoryEmail] == "mutated" {
			t.Error("GetPreset leaked its internal map")
		}
	})
}

func TestDefaultPatterns(t *testing.T) {
	r := NewRegistry()
	patterns, warnings := r.ResolveAll(nil)
	if len(warnings) != 0 {
		t.Fatalf("default patterns produced warnings: %v", warnings)
	}

	tests := []struct {
		category Category
		match    []string
		miss     []string
	}{
		{
			category: CategoryNationalID,
			match:    []string{"2345 6789 0123", "2345-6789-0123", "234567890123"},
			miss:     []string{"1345 6789 0123", "23456789"},
		},
		{
			category: CategoryTaxID,
			match:    []string{"ABCDE1234F"},
			miss:     []string{"ABCD1234F", "abcde1234f"},
		},
		{
			category: CategoryCard,
			match:    []string{"4111 1111 1111 1111", "4111-1111-1111-1111", "4111111111111111"},
			miss:     []string{"4111 1111 1111"},
		},
		{
			category: CategoryEmail,
			match:    []string{"alice@example.com", "a.b+tag@sub.example.co.uk"},
			miss:     []string{"not-an-email", "@example.com"},
		},
		{
			category: CategoryPassport,
			match:    []string{"A1234567"},
			miss:     []string{"AB123456", "A123456"},
		},
		{
			category: CategoryDrivingLicense,
			match:    []string{"MH1420110012345", "MH-1420110012345"},
			miss:     []string{"MH14201100123"},
		},
		{
			category: CategoryPhone,
			match:    []string{"9876543210", "+91 9876543210", "+91-9876543210"},
			miss:     []string{"1234567890", "98765"},
		},
		{
			category: CategoryPersonName,
			match:    []string{"John Smith", "Priya Sharma Patel"},
			miss:     []string{"john smith", "John"},
		},
		{
			category: CategoryVoterID,
			match:    []string{"ABC1234567"},
			miss:     []string{"AB1234567", "ABCD123456"},
		},
		{
			category: CategoryDateOfBirth,
			match:    []string{"01/02/1990", "01-02-1990", "1990/02/01", "1990-02-01"},
			miss:     []string{"1/2/1990"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			re := patterns[tt.category].Regexp
			for _, s := range tt.match {
				if !re.MatchString(s) {
					t.Errorf("pattern missed %q", s)
				}
			}
			for _, s := range tt.miss {
				if re.MatchString(s) {
					t.Errorf("pattern matched %q", s)
				}
			}
		})
	}
}
