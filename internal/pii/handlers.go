package pii

import "strings"

// Options selects run-wide detection behavior that is not per-category
// policy.
type Options struct {
	// Pseudonymize controls the partial shape for email local-parts and
	// person-name tokens: stable run-scoped aliases when true, positional
	// letter masking ("J***" / "user@domain") when false.
	Pseudonymize bool `json:"pseudonymize" yaml:"pseudonymize" mapstructure:"pseudonymize"`
}

// DefaultOptions enables pseudonymization.
func DefaultOptions() Options {
	return Options{Pseudonymize: true}
}

// partialFunc produces the category-specific partial replacement for one
// accepted match. groups holds the submatch texts ("" for non-participating
// groups), groups[0] being the whole match.
type partialFunc func(groups []string, cfg MaskConfig, rc *RunContext, opts Options) string

// Handler couples one category's pattern semantics: an optional checksum
// validator gating matches, and the partial-mask shape.
type Handler struct {
	Category Category
	validate func(match string) bool
	partial  partialFunc
}

// DetectAndMask scans text left to right for non-overlapping matches of
// pattern, rewrites every accepted match per cfg, and returns the new text
// with the accepted-match count. Matches that fail the category's checksum
// validator pass through unmodified and are not counted.
func (h Handler) DetectAndMask(text string, pattern Pattern, cfg MaskConfig, rc *RunContext, opts Options) (string, int) {
	if pattern.Regexp == nil {
		return text, 0
	}

	return replaceMatches(text, pattern, func(groups []string) (string, bool) {
		match := groups[0]
		if h.validate != nil && !h.validate(match) {
			return match, false
		}
		replacement := applyMask(match, h.Category, cfg, func() string {
			return h.partial(groups, cfg, rc, opts)
		})
		return replacement, true
	})
}

// replaceMatches walks all leftmost-first non-overlapping matches, calling
// repl with the submatch texts. repl returns the replacement and whether the
// match was accepted; rejected matches keep their original text and do not
// count.
func replaceMatches(text string, pattern Pattern, repl func(groups []string) (string, bool)) (string, int) {
	indexes := pattern.Regexp.FindAllStringSubmatchIndex(text, -1)
	if len(indexes) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	count := 0

	for _, idx := range indexes {
		start, end := idx[0], idx[1]
		groups := make([]string, len(idx)/2)
		for g := 0; g < len(idx)/2; g++ {
			if idx[2*g] >= 0 {
				groups[g] = text[idx[2*g]:idx[2*g+1]]
			}
		}

		replacement, accepted := repl(groups)
		if accepted {
			count++
		}
		b.WriteString(text[last:start])
		b.WriteString(replacement)
		last = end
	}
	b.WriteString(text[last:])

	return b.String(), count
}

// handlerTable builds the fixed per-category handler set.
func handlerTable() map[Category]Handler {
	return map[Category]Handler{
		CategoryNationalID: {
			Category: CategoryNationalID,
			validate: Verhoeff,
			partial:  partialNationalID,
		},
		CategoryTaxID: {
			Category: CategoryTaxID,
			partial:  partialTaxID,
		},
		CategoryCard: {
			Category: CategoryCard,
			validate: Luhn,
			partial:  partialCard,
		},
		CategoryEmail: {
			Category: CategoryEmail,
			partial:  partialEmail,
		},
		CategoryPassport: {
			Category: CategoryPassport,
			partial:  partialPassport,
		},
		CategoryDrivingLicense: {
			Category: CategoryDrivingLicense,
			partial:  partialDrivingLicense,
		},
		CategoryPhone: {
			Category: CategoryPhone,
			partial:  partialPhone,
		},
		CategoryPersonName: {
			Category: CategoryPersonName,
			partial:  partialPersonName,
		},
		CategoryVoterID: {
			Category: CategoryVoterID,
			partial:  partialVoterID,
		},
		CategoryDateOfBirth: {
			Category: CategoryDateOfBirth,
			partial:  partialDateOfBirth,
		},
	}
}

// partialNationalID keeps the first and last 4 digits: 2345-****-6789.
func partialNationalID(groups []string, cfg MaskConfig, _ *RunContext, _ Options) string {
	raw := digitsOnly(groups[0])
	if len(raw) != 12 {
		return groups[0]
	}
	return raw[:4] + "-" + repeatMask(cfg.maskChar(), 4) + "-" + raw[8:]
}

// partialTaxID replaces the value outright with a fabricated one; no
// original digits survive.
func partialTaxID(_ []string, _ MaskConfig, _ *RunContext, _ Options) string {
	return syntheticTaxID()
}

// partialCard keeps only the last 4 digits: ****-****-****-1111.
func partialCard(groups []string, cfg MaskConfig, _ *RunContext, _ Options) string {
	raw := digitsOnly(groups[0])
	if len(raw) < 4 {
		return groups[0]
	}
	m4 := repeatMask(cfg.maskChar(), 4)
	return m4 + "-" + m4 + "-" + m4 + "-" + raw[len(raw)-4:]
}

// partialEmail pseudonymizes the local-part and preserves the domain.
func partialEmail(groups []string, _ MaskConfig, rc *RunContext, opts Options) string {
	match := groups[0]
	at := strings.LastIndex(match, "@")
	if at < 0 {
		return match
	}
	local, domain := match[:at], match[at+1:]
	if opts.Pseudonymize && rc != nil {
		return rc.Pseudonymize(CategoryEmail, local) + "@" + domain
	}
	return "user@" + domain
}

// partialPassport keeps the leading letter: A*******.
func partialPassport(groups []string, cfg MaskConfig, _ *RunContext, _ Options) string {
	match := groups[0]
	if match == "" {
		return match
	}
	return match[:1] + repeatMask(cfg.maskChar(), len(match)-1)
}

// partialDrivingLicense keeps the 2-letter state code and masks the number
// to a fixed width; without a state code the match is left as is.
func partialDrivingLicense(groups []string, cfg MaskConfig, _ *RunContext, _ Options) string {
	if len(groups) > 2 && groups[2] != "" {
		return groups[2] + repeatMask(cfg.maskChar(), 14)
	}
	return groups[0]
}

// partialPhone keeps the first 2 and last 2 of the subscriber's last 10
// digits: 98******10.
func partialPhone(groups []string, cfg MaskConfig, _ *RunContext, _ Options) string {
	raw := digitsOnly(groups[0])
	if len(raw) > 10 {
		raw = raw[len(raw)-10:]
	}
	if len(raw) < 4 {
		return groups[0]
	}
	return raw[:2] + repeatMask(cfg.maskChar(), len(raw)-4) + raw[len(raw)-2:]
}

// partialPersonName pseudonymizes each space-separated token; without
// pseudonymization each token keeps its first letter.
func partialPersonName(groups []string, cfg MaskConfig, rc *RunContext, opts Options) string {
	tokens := strings.Fields(groups[0])
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if opts.Pseudonymize && rc != nil {
			out[i] = rc.Pseudonymize(CategoryPersonName, tok)
			continue
		}
		runes := []rune(tok)
		out[i] = string(runes[0]) + repeatMask(cfg.maskChar(), len(runes)-1)
	}
	return strings.Join(out, " ")
}

// partialVoterID replaces the value outright with a fabricated one.
func partialVoterID(_ []string, _ MaskConfig, _ *RunContext, _ Options) string {
	return syntheticVoterID()
}

// partialDateOfBirth masks the entire span to its own length.
func partialDateOfBirth(groups []string, cfg MaskConfig, _ *RunContext, _ Options) string {
	return repeatMask(cfg.maskChar(), len(groups[0]))
}
