package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"litscope/internal/models"
)

func TestProject_Deterministic(t *testing.T) {
	vectors := []models.ArticleVector{
		{ArticleID: 1, Vector: []float32{1, 2, 3, 4}},
		{ArticleID: 2, Vector: []float32{4, 3, 2, 1}},
	}

	a := project(vectors, 2, 42)
	b := project(vectors, 2, 42)
	assert.Equal(t, a, b)

	c := project(vectors, 2, 7)
	assert.NotEqual(t, a, c)
}

func TestProject_ClampsDimToSourceSize(t *testing.T) {
	vectors := []models.ArticleVector{{ArticleID: 1, Vector: []float32{1, 2}}}
	out := project(vectors, 8, 1)
	assert.Len(t, out[0], 2)
}

func TestDensityGrid_CoreClusterAndNoise(t *testing.T) {
	points := [][]float64{
		{0, 0},
		{0.1, 0},
		{0, 0.1},
		{10, 10},
	}

	labels := densityGrid(points, 0.5, 3)

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.NotEqual(t, models.NoiseLabel, labels[0])
	assert.Equal(t, models.NoiseLabel, labels[3])
}

func TestDensityGrid_AllNoiseWhenMinSizeUnreachable(t *testing.T) {
	points := [][]float64{{0, 0}, {100, 100}, {200, 200}}
	labels := densityGrid(points, 0.5, 5)
	for _, l := range labels {
		assert.Equal(t, models.NoiseLabel, l)
	}
}

func TestCentroidOf(t *testing.T) {
	vectors := []models.ArticleVector{
		{ArticleID: 1, Vector: []float32{2, 4}},
		{ArticleID: 2, Vector: []float32{4, 8}},
	}
	centroid := centroidOf(vectors, []int{0, 1})
	assert.Equal(t, []float32{3, 6}, centroid)
}

func TestCentroidOf_EmptyMembers(t *testing.T) {
	assert.Nil(t, centroidOf(nil, nil))
}

func TestEuclidean(t *testing.T) {
	assert.InDelta(t, 5.0, euclidean([]float64{0, 0}, []float64{3, 4}), 1e-9)
	assert.Equal(t, 0.0, euclidean([]float64{1, 1}, []float64{1, 1}))
}

func TestNew_AppliesDefaults(t *testing.T) {
	m := New(nil, Config{}, nil)
	assert.Equal(t, 5, m.cfg.MinSize)
	assert.Equal(t, 0.35, m.cfg.Epsilon)
	assert.Equal(t, 8, m.cfg.ProjectionDim)
}
