package parser

import (
	"strconv"
	"strings"
	"unicode"
)

// CleanText collapses every whitespace run, non-breaking spaces included, into
// a single space and trims both ends.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// ParsePrice turns a storefront price label into a number. It accepts both
// 1,234.56 and 1.234,56 style separators and returns nil when nothing numeric
// can be recovered.
func ParsePrice(s string) *float64 {
	if s == "" {
		return nil
	}

	raw := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			return r
		}
		return -1
	}, s)

	commas := strings.Count(raw, ",")
	periods := strings.Count(raw, ".")

	if commas > 1 && periods == 0 {
		raw = strings.ReplaceAll(raw, ",", "")
		commas = 0
	}
	if periods > 1 && commas == 0 {
		raw = strings.ReplaceAll(raw, ".", "")
		periods = 0
	}

	switch {
	case commas > 0 && periods > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case commas > 0:
		cents := raw[strings.LastIndex(raw, ",")+1:]
		if len(cents) == 2 {
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
