package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "only whitespace", input: " \t\n ", expected: ""},
		{name: "trims ends", input: "  Widget  ", expected: "Widget"},
		{name: "collapses runs", input: "Sala\n\n   de\testar", expected: "Sala de estar"},
		{name: "non-breaking spaces", input: "$\u00a01,299\u00a0\u00a0MXN", expected: "$ 1,299 MXN"},
		{name: "already clean", input: "Refrigerador Mabe 11 pies", expected: "Refrigerador Mabe 11 pies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestCleanTextIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"a  b",
		"  x  ",
		"línea\r\nsiguiente\t\tcolumna",
		"  Precio: $12,345.67  ",
	}

	for _, input := range inputs {
		once := CleanText(input)
		assert.Equal(t, once, CleanText(once), "input %q", input)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{name: "thousands comma", input: "$12,345", expected: 12345},
		{name: "us format", input: "$12,345.67", expected: 12345.67},
		{name: "latin format", input: "12.345,67", expected: 12345.67},
		{name: "several thousands commas", input: "$1,234,567", expected: 1234567},
		{name: "several thousands periods", input: "1.234.567", expected: 1234567},
		{name: "comma cents", input: "$99,90", expected: 99.90},
		{name: "mixed with long latin tail", input: "1.234.567,89", expected: 1234567.89},
		{name: "currency text around", input: "MXN 1,299.00 c/u", expected: 1299},
		{name: "plain integer", input: "450", expected: 450},
		{name: "plain decimal", input: "12.5", expected: 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.input)
			require.NotNil(t, got)
			assert.InDelta(t, tt.expected, *got, 0.0001)
		})
	}
}

func TestParsePriceAbsent(t *testing.T) {
	for _, input := range []string{"", "Agotado", "...", ",", "$", "1.2.3,4.5"} {
		t.Run(input, func(t *testing.T) {
			assert.Nil(t, ParsePrice(input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "ñá", Truncate("ñáé", 2))
	assert.Len(t, []rune(Truncate(strings.Repeat("é", 300), 200)), 200)
}
