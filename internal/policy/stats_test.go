package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeRatio(t *testing.T) {
	assert.Equal(t, 0.0, SafeRatio(10, 0))
	assert.Equal(t, 0.0, SafeRatio(0, 0))
	assert.Equal(t, 2.5, SafeRatio(5, 2))
	assert.False(t, math.IsInf(SafeRatio(1e308, 0), 1))
	assert.False(t, math.IsNaN(SafeRatio(0, 0)))
}

func TestSafePct(t *testing.T) {
	assert.Equal(t, 50.0, SafePct(1, 2))
	assert.Equal(t, 0.0, SafePct(1, 0))
}

func TestSumMeanMedian_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Sum(nil))
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Median(nil))
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd count", []float64{3, 1, 2}, 2},
		{"even count", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.values))
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}
