// Package symbols canonicalizes user-entered tickers.
//
// The canonical form (upper-case, trimmed, restricted alphabet) is the key
// used by the stores and the quote cache. Provider adapters map it to their
// own family with Family.Apply.
package symbols

import (
	"strings"

	"github.com/dmitrijs2005/moneo/internal/common"
)

// MaxLength bounds a canonical symbol.
const MaxLength = 32

// USSuffix is the exchange suffix of the US equities family.
const USSuffix = ".US"

// Family is a provider's symbol convention.
type Family int

const (
	// FamilyCanonical leaves the canonical symbol untouched.
	FamilyCanonical Family = iota
	// FamilyUS appends ".US" to symbols that carry no exchange suffix.
	FamilyUS
	// FamilyUSBare drops a trailing ".US"; other suffixes are kept.
	FamilyUSBare
)

func (f Family) String() string {
	switch f {
	case FamilyUS:
		return "us"
	case FamilyUSBare:
		return "us-bare"
	default:
		return "canonical"
	}
}

// Normalize upper-cases and trims input and rejects anything outside
// [A-Z0-9.-]. The result is a fixed point: Normalize(Normalize(x)) == Normalize(x).
func Normalize(input string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return "", common.Validationf("symbol is required")
	}
	if len(s) > MaxLength {
		return "", common.Validationf("symbol is longer than %d characters", MaxLength)
	}
	for i := 0; i < len(s); i++ {
		if !allowed(s[i]) {
			return "", common.Validationf("symbol %q contains invalid characters", input)
		}
	}
	return s, nil
}

// NormalizeFor normalizes input and maps it into family f.
func NormalizeFor(input string, f Family) (string, error) {
	s, err := Normalize(input)
	if err != nil {
		return "", err
	}
	return f.Apply(s), nil
}

// Apply maps an already canonical symbol into family f.
func (f Family) Apply(canonical string) string {
	switch f {
	case FamilyUS:
		if strings.Contains(canonical, ".") {
			return canonical
		}
		return canonical + USSuffix
	case FamilyUSBare:
		if trimmed := strings.TrimSuffix(canonical, USSuffix); trimmed != "" {
			return trimmed
		}
		return canonical
	default:
		return canonical
	}
}

func allowed(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '-':
		return true
	}
	return false
}
