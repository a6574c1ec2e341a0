package server

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice", "Alice"},
		{"trims whitespace", "  Bob  ", "Bob"},
		{"strips symbols", "Eve<script>!", "Evescript"},
		{"keeps digits and spaces", "Player 42", "Player 42"},
		{"truncates long names", "abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrst"},
		{"empty after stripping", "!!!", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeName(tc.in))
		})
	}
}

func TestMovementIntensity(t *testing.T) {
	// A phone at rest reads gravity only.
	assert.Zero(t, movementIntensity(0, 0, 9.81, ""))
	assert.Zero(t, movementIntensity(0, 0, 0, ""), "negative magnitude clamps to zero")

	// A hard shake saturates.
	assert.Equal(t, 1.0, movementIntensity(30, 30, 30, ""))

	// Mid-range scales linearly: |a|-g = 12.5, /25 = 0.5.
	assert.InDelta(t, 0.5, movementIntensity(0, 0, 22.31, ""), 1e-9)

	// iOS accelerometers report softer peaks, so the scale is tighter:
	// 12.5/18 ≈ 0.694.
	assert.InDelta(t, 12.5/18.0, movementIntensity(0, 0, 22.31, "ios"), 1e-9)

	t.Run("non-finite samples are dropped", func(t *testing.T) {
		assert.Zero(t, movementIntensity(math.NaN(), 0, 0, ""))
		assert.Zero(t, movementIntensity(math.Inf(1), 0, 0, ""))
	})
}
