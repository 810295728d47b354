package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"litscope/internal/models"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 0.4, w.Novelty)
	assert.Equal(t, 0.4, w.Velocity)
	assert.Equal(t, 0.2, w.Recency)
	assert.InDelta(t, 1.0, w.Novelty+w.Velocity+w.Recency, 1e-9)
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"below zero clamps to zero", -0.5, 0},
		{"above one clamps to one", 1.5, 1},
		{"within range passes through", 0.37, 0.37},
		{"exactly zero", 0, 0},
		{"exactly one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clamp01(tt.input))
		})
	}
}

func TestCosineDistance(t *testing.T) {
	t.Run("identical vectors have zero distance", func(t *testing.T) {
		a := []float32{1, 0, 0}
		assert.InDelta(t, 0.0, cosineDistance(a, a), 1e-9)
	})

	t.Run("orthogonal vectors have distance one", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.InDelta(t, 1.0, cosineDistance(a, b), 1e-9)
	})

	t.Run("opposite vectors have distance two", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{-1, 0}
		assert.InDelta(t, 2.0, cosineDistance(a, b), 1e-9)
	})

	t.Run("zero vector defaults to maximal distance", func(t *testing.T) {
		a := []float32{0, 0}
		b := []float32{1, 1}
		assert.Equal(t, 1.0, cosineDistance(a, b))
	})
}

func TestEmpiricalCDF(t *testing.T) {
	component := func(t models.RawScoreTriple) float64 { return t.NoveltyRaw }

	t.Run("empty history returns zero", func(t *testing.T) {
		assert.Equal(t, 0.0, empiricalCDF(0.5, nil, component))
	})

	t.Run("value at the maximum ranks at one", func(t *testing.T) {
		history := []models.RawScoreTriple{{NoveltyRaw: 0.1}, {NoveltyRaw: 0.5}, {NoveltyRaw: 0.9}}
		assert.Equal(t, 1.0, empiricalCDF(0.9, history, component))
	})

	t.Run("value at the minimum ranks low", func(t *testing.T) {
		history := []models.RawScoreTriple{{NoveltyRaw: 0.1}, {NoveltyRaw: 0.5}, {NoveltyRaw: 0.9}}
		assert.InDelta(t, 1.0/3.0, empiricalCDF(0.1, history, component), 1e-9)
	})

	t.Run("value above every sample still clamps to one", func(t *testing.T) {
		history := []models.RawScoreTriple{{NoveltyRaw: 0.1}, {NoveltyRaw: 0.2}}
		assert.Equal(t, 1.0, empiricalCDF(5.0, history, component))
	})
}

func TestNormalize_OverallWithinUnitInterval(t *testing.T) {
	s := &Scorer{weights: DefaultWeights(), recencyTau: 5}

	history := []models.RawScoreTriple{
		{NoveltyRaw: 0.2, CitationRaw: 0.1, RecencyRaw: 0.3},
		{NoveltyRaw: 0.6, CitationRaw: 0.4, RecencyRaw: 0.7},
	}

	result := s.normalize(Raw{Novelty: 0.5, Velocity: 0.3, Recency: 0.9}, history)

	assert.GreaterOrEqual(t, result.Overall, 0.0)
	assert.LessOrEqual(t, result.Overall, 1.0)
	assert.GreaterOrEqual(t, result.Novelty, 0.0)
	assert.LessOrEqual(t, result.Novelty, 1.0)
}
