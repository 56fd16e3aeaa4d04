// Package validation holds the request-level field validators shared by the
// handlers. Violations map field name to a short machine-readable reason.
package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if len(value) > max {
		v[field] = "too_long"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_be_non_negative"
	}
}

// CurrencyCode checks for a 3-letter ISO 4217 style code.
func CurrencyCode(field, value string, v Violations) {
	if len(value) != 3 {
		v[field] = "invalid_currency"
		return
	}
	for _, r := range value {
		if r < 'A' || r > 'Z' {
			v[field] = "invalid_currency"
			return
		}
	}
}
