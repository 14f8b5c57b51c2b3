package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip_RemovesCombiningMarks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"decomposed acute", "cafe\u0301", "cafe"},
		{"precomposed acute", "caf\u00e9", "cafe"},
		{"city name", "Tétouan", "Tetouan"},
		{"several marks", "crème brûlée", "creme brulee"},
		{"plain ascii", "Supermarket", "Supermarket"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Strip(tt.input))
		})
	}
}

func TestStrip_Idempotent(t *testing.T) {
	inputs := []string{"cafe\u0301", "caf\u00e9", "\u00c0 la carte", "nai\u0308ve"}
	for _, in := range inputs {
		once := Strip(in)
		assert.Equal(t, once, Strip(once), "Strip should be idempotent for %q", in)
		assert.Equal(t, once, Strip(Strip(Strip(in))))
	}
}

func TestStrip_EncodingVariantsConverge(t *testing.T) {
	assert.Equal(t, Strip("cafe\u0301"), Strip("caf\u00e9"))
}

func TestStrip_KeepsArabicMarks(t *testing.T) {
	// Fatha (U+064E) lies outside the Combining Diacritical Marks block.
	in := "\u0628\u064e\u0642\u0627\u0644\u0629"
	assert.Equal(t, in, Strip(in))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "tetouan", Fold("  Tétouan "))
	assert.Equal(t, "fruits secs", Fold("Fruits   Sécs"))
	assert.Equal(t, Fold("CAF\u00c9"), Fold("cafe\u0301"))
}
