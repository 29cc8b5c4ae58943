package pricing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Strings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"formatted rubles", "89 900 ₽", 89900},
		{"comma decimal", "1 234,50", 1234.5},
		{"period thousands with comma decimal", "1.234,50", 1234.5},
		{"plain number", "500", 500},
		{"plain decimal", "99.90", 99.9},
		{"currency suffix", "1500 руб.", 1500},
		{"garbage", "garbage", 0},
		{"empty", "", 0},
		{"only symbols", "₽ —", 0},
		{"negative string", "-5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Numbers(t *testing.T) {
	assert.Equal(t, float64(89900), Normalize(89900))
	assert.Equal(t, float64(89900), Normalize(int64(89900)))
	assert.Equal(t, 123.45, Normalize(123.45))
	assert.Equal(t, float64(0), Normalize(-5))
	assert.Equal(t, float64(0), Normalize(-0.01))
	assert.Equal(t, float64(0), Normalize(math.NaN()))
	assert.Equal(t, float64(0), Normalize(math.Inf(1)))
}

func TestNormalize_JSONNumber(t *testing.T) {
	assert.Equal(t, float64(89900), Normalize(json.Number("89900")))
	assert.Equal(t, 12.5, Normalize(json.Number("12.5")))
}

func TestNormalize_UnsupportedTypes(t *testing.T) {
	assert.Equal(t, float64(0), Normalize(nil))
	assert.Equal(t, float64(0), Normalize(true))
	assert.Equal(t, float64(0), Normalize([]string{"1"}))
}

// Every input in the observed data set must come out non-negative.
func TestNormalize_NeverNegative(t *testing.T) {
	inputs := []any{"89 900 ₽", 89900, "1 234,50", -5, "garbage"}
	for _, in := range inputs {
		assert.GreaterOrEqual(t, Normalize(in), float64(0))
	}
}
