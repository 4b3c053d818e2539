package domain

import (
	"fmt"
	"strings"
)

// DefaultCountryCode is prepended to bare national numbers. The marketplace
// serves the Ivorian market, so local numbers normalize into +225.
const DefaultCountryCode = "+225"

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

// NormalizePhone converts a user-supplied phone number into E.164 form.
// Separators (spaces, dots, dashes, parentheses) are stripped, an
// international "00" prefix becomes "+", and numbers without any country
// prefix get DefaultCountryCode. Returns an error for anything that does
// not reduce to a plausible digit string.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", fmt.Errorf("phone number is empty")
	}

	switch {
	case strings.HasPrefix(cleaned, "+"):
		cleaned = "+" + cleaned[1:]
	case strings.HasPrefix(cleaned, "00"):
		cleaned = "+" + cleaned[2:]
	default:
		cleaned = DefaultCountryCode + cleaned
	}

	digits := cleaned[1:]
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", fmt.Errorf("phone number must have between %d and %d digits", minPhoneDigits, maxPhoneDigits)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone number contains invalid character %q", r)
		}
	}

	return cleaned, nil
}
