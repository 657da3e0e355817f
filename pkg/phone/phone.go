// Package phone canonicalizes phone numbers for identity comparison. The
// numbering plan (country calling code, trunk prefix) is configuration, not a
// hard-coded rule, so deployments outside the default plan only change config.
package phone

import "strings"

// Plan describes a national numbering plan for mobile subscribers.
type Plan struct {
	// CountryCode is the international calling code, digits only ("63").
	CountryCode string
	// TrunkPrefix is the domestic dialing prefix that the country code
	// replaces in international form ("0").
	TrunkPrefix string
	// MinDigits and MaxDigits bound the digit count of an acceptable raw
	// input. Zero values disable the bound.
	MinDigits int
	MaxDigits int
}

// DefaultPlan is the Philippine mobile plan: 0917xxxxxxx <-> +63917xxxxxxx.
func DefaultPlan() Plan {
	return Plan{CountryCode: "63", TrunkPrefix: "0", MinDigits: 7, MaxDigits: 15}
}

// Digits strips every non-digit character from raw.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Canonical returns the international form of raw under the plan, or the
// bare digits when raw fits neither the trunk nor the country-code shape.
// Empty input canonicalizes to "".
func (p Plan) Canonical(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}
	switch {
	case p.TrunkPrefix != "" && strings.HasPrefix(digits, p.TrunkPrefix) && len(digits) > len(p.TrunkPrefix):
		return "+" + p.CountryCode + digits[len(p.TrunkPrefix):]
	case p.CountryCode != "" && strings.HasPrefix(digits, p.CountryCode):
		return "+" + digits
	default:
		return digits
	}
}

// National returns the subscriber digits with any trunk prefix or country
// code removed. Two numbers with equal national forms refer to the same
// subscriber even when one side was stored before canonicalization existed.
func (p Plan) National(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}
	if p.CountryCode != "" && strings.HasPrefix(digits, p.CountryCode) && len(digits) > len(p.CountryCode) {
		return digits[len(p.CountryCode):]
	}
	if p.TrunkPrefix != "" && strings.HasPrefix(digits, p.TrunkPrefix) && len(digits) > len(p.TrunkPrefix) {
		return digits[len(p.TrunkPrefix):]
	}
	return digits
}

// Equal reports whether a and b identify the same subscriber: either their
// canonical forms match, or their national forms match (legacy data stored
// without canonicalization).
func (p Plan) Equal(a, b string) bool {
	if Digits(a) == "" || Digits(b) == "" {
		return false
	}
	if ca, cb := p.Canonical(a), p.Canonical(b); ca == cb {
		return true
	}
	return p.National(a) == p.National(b)
}

// Valid reports whether raw has an acceptable digit count under the plan.
func (p Plan) Valid(raw string) bool {
	n := len(Digits(raw))
	if n == 0 {
		return false
	}
	if p.MinDigits > 0 && n < p.MinDigits {
		return false
	}
	if p.MaxDigits > 0 && n > p.MaxDigits {
		return false
	}
	return true
}
