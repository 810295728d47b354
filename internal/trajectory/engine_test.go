package trajectory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"litscope/internal/models"
	"litscope/internal/trajectory"
)

func TestForwardSlope_FewerThanTwoPoints(t *testing.T) {
	assert.Equal(t, 0.0, trajectory.ForwardSlope(nil))
	assert.Equal(t, 0.0, trajectory.ForwardSlope([]models.YearCount{{Year: 2020, Count: 5}}))
}

func TestForwardSlope_LinearGrowth(t *testing.T) {
	series := []models.YearCount{
		{Year: 2020, Count: 10},
		{Year: 2021, Count: 20},
		{Year: 2022, Count: 30},
		{Year: 2023, Count: 40},
	}
	assert.InDelta(t, 10.0, trajectory.ForwardSlope(series), 1e-9)
}

func TestForwardSlope_TwoPointDelta(t *testing.T) {
	series := []models.YearCount{
		{Year: 2020, Count: 5},
		{Year: 2021, Count: 9},
	}
	assert.InDelta(t, 4.0, trajectory.ForwardSlope(series), 1e-9)
}

func TestForwardSlope_DegenerateSameYear(t *testing.T) {
	series := []models.YearCount{
		{Year: 2020, Count: 5},
		{Year: 2020, Count: 9},
		{Year: 2020, Count: 13},
	}
	assert.InDelta(t, 4.0, trajectory.ForwardSlope(series), 1e-9)
}

func TestForwardSlope_DecliningSeries(t *testing.T) {
	series := []models.YearCount{
		{Year: 2020, Count: 30},
		{Year: 2021, Count: 20},
		{Year: 2022, Count: 10},
	}
	assert.InDelta(t, -10.0, trajectory.ForwardSlope(series), 1e-9)
}
