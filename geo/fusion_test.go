package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fusionIndex builds a tiny index with one distinct centroid per level so
// tests can tell which level a fused point came from.
func fusionIndex() *Index {
	idx := &Index{levels: make(map[Level]*LevelClusters)}
	centroids := map[Level]GeoPoint{
		LevelCountry: {Lat: 10, Lon: 10},
		LevelRegion:  {Lat: 20, Lon: 20},
		LevelCity:    {Lat: 30, Lon: 30},
		LevelPrecise: {Lat: 40, Lon: 40},
	}
	for level, c := range centroids {
		idx.levels[level] = &LevelClusters{
			Level:      level,
			EffectiveK: 2,
			Clusters: []Cluster{
				{Level: level, ID: 0, Centroid: c},
				{Level: level, ID: 1, Centroid: GeoPoint{Lat: -c.Lat, Lon: -c.Lon}},
			},
		}
	}
	return idx
}

// confidences builds two-class vectors whose top class is always id 0
// with the given confidence.
func confidences(country, region, city, precise float64) map[Level][]float64 {
	return map[Level][]float64{
		LevelCountry: {country, country / 2},
		LevelRegion:  {region, region / 2},
		LevelCity:    {city, city / 2},
		LevelPrecise: {precise, precise / 2},
	}
}

func TestFusePreciseLevelClearsThreshold(t *testing.T) {
	idx := fusionIndex()
	pred := Prediction{LevelConfidences: confidences(0.95, 0.9, 0.9, 0.9)}

	point, reliability, err := Fuse(pred, idx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, GeoPoint{Lat: 40, Lon: 40}, point)
	assert.Equal(t, 0.9, reliability)
}

func TestFuseFallsThroughToCity(t *testing.T) {
	idx := fusionIndex()
	pred := Prediction{LevelConfidences: confidences(0.9, 0.8, 0.7, 0.3)}

	point, reliability, err := Fuse(pred, idx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, GeoPoint{Lat: 30, Lon: 30}, point)
	assert.Equal(t, 0.7, reliability)
}

func TestFuseNoLevelClearsThreshold(t *testing.T) {
	idx := fusionIndex()
	pred := Prediction{LevelConfidences: confidences(0.1, 0.1, 0.1, 0.1)}

	// Country is the last resort, carrying its low confidence as the
	// reliability.
	point, reliability, err := Fuse(pred, idx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, GeoPoint{Lat: 10, Lon: 10}, point)
	assert.Equal(t, 0.1, reliability)
}

func TestFuseRegressedCoordinateWins(t *testing.T) {
	idx := fusionIndex()
	coord := GeoPoint{Lat: 55.5, Lon: -3.2}
	pred := Prediction{
		Coordinate:           &coord,
		CoordinateConfidence: 0.99,
		LevelConfidences:     confidences(0.6, 0.6, 0.6, 0.6),
	}

	point, reliability, err := Fuse(pred, idx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, coord, point)
	assert.Equal(t, 0.99, reliability)
}

func TestFuseRegressedCoordinateLoses(t *testing.T) {
	idx := fusionIndex()
	coord := GeoPoint{Lat: 55.5, Lon: -3.2}
	pred := Prediction{
		Coordinate:           &coord,
		CoordinateConfidence: 0.7,
		LevelConfidences:     confidences(0.6, 0.6, 0.6, 0.8),
	}

	point, reliability, err := Fuse(pred, idx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, GeoPoint{Lat: 40, Lon: 40}, point)
	assert.Equal(t, 0.8, reliability)
}

func TestFuseDeterministic(t *testing.T) {
	idx := fusionIndex()
	pred := Prediction{LevelConfidences: confidences(0.4, 0.45, 0.3, 0.2)}

	p1, r1, err := Fuse(pred, idx, 0.5)
	require.NoError(t, err)
	p2, r2, err := Fuse(pred, idx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, r1, r2)
}

func TestFuseMissingLevelInIndex(t *testing.T) {
	idx := fusionIndex()
	delete(idx.levels, LevelPrecise)

	pred := Prediction{LevelConfidences: confidences(0.9, 0.9, 0.9, 0.9)}
	_, _, err := Fuse(pred, idx, 0.5)
	var notFound *IndexNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, LevelPrecise, notFound.Level)
}

func TestFuseEmptyPrediction(t *testing.T) {
	_, _, err := Fuse(Prediction{}, fusionIndex(), 0.5)
	require.ErrorIs(t, err, ErrEmptyPrediction)
}

func TestPredictionTop(t *testing.T) {
	pred := Prediction{LevelConfidences: map[Level][]float64{
		LevelCity: {0.1, 0.5, 0.3, 0.1},
	}}

	id, conf, ok := pred.Top(LevelCity)
	require.True(t, ok)
	assert.Equal(t, 1, id)
	assert.Equal(t, 0.5, conf)

	_, _, ok = pred.Top(LevelCountry)
	assert.False(t, ok)
}

func TestPredictionTopTieBreaksLow(t *testing.T) {
	pred := Prediction{LevelConfidences: map[Level][]float64{
		LevelRegion: {0.4, 0.4, 0.2},
	}}

	id, conf, ok := pred.Top(LevelRegion)
	require.True(t, ok)
	assert.Equal(t, 0, id)
	assert.Equal(t, 0.4, conf)
}
