package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignRangeProperty(t *testing.T) {
	corpus := GenerateTestPoints(400, Bounds{MinLat: -50, MinLon: -120, MaxLat: 60, MaxLon: 140}, 5)
	specs := LevelSpecs{LevelCountry: 6, LevelRegion: 18, LevelCity: 40}

	idx, err := testBuilder().Build(corpus, specs)
	require.NoError(t, err)

	queries := GenerateTestPoints(50, Bounds{MinLat: -90, MinLon: -180, MaxLat: 90, MaxLon: 180}, 6)
	for _, p := range queries {
		for level, k := range specs {
			id, err := Assign(p, level, idx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, id, 0)
			assert.Less(t, id, k)
		}
	}
}

func TestAssignNearestCentroid(t *testing.T) {
	idx := &Index{levels: map[Level]*LevelClusters{
		LevelCountry: {
			Level:      LevelCountry,
			EffectiveK: 2,
			Clusters: []Cluster{
				{Level: LevelCountry, ID: 0, Centroid: GeoPoint{Lat: 0, Lon: 0}},
				{Level: LevelCountry, ID: 1, Centroid: GeoPoint{Lat: 50, Lon: 50}},
			},
		},
	}}

	id, err := Assign(GeoPoint{Lat: 1, Lon: 2}, LevelCountry, idx)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	id, err = Assign(GeoPoint{Lat: 48, Lon: 52}, LevelCountry, idx)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestAssignEquidistantTieBreaksLow(t *testing.T) {
	idx := &Index{levels: map[Level]*LevelClusters{
		LevelRegion: {
			Level:      LevelRegion,
			EffectiveK: 2,
			Clusters: []Cluster{
				{Level: LevelRegion, ID: 0, Centroid: GeoPoint{Lat: 0, Lon: -1}},
				{Level: LevelRegion, ID: 1, Centroid: GeoPoint{Lat: 0, Lon: 1}},
			},
		},
	}}

	id, err := Assign(GeoPoint{Lat: 0, Lon: 0}, LevelRegion, idx)
	require.NoError(t, err)
	assert.Equal(t, 0, id)
}

func TestAssignMissingLevel(t *testing.T) {
	corpus := []GeoPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}
	idx, err := testBuilder().Build(corpus, LevelSpecs{LevelCountry: 2})
	require.NoError(t, err)

	_, err = Assign(GeoPoint{Lat: 0, Lon: 0}, LevelPrecise, idx)
	var notFound *IndexNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, LevelPrecise, notFound.Level)
}

func TestAssignInvalidPoint(t *testing.T) {
	idx, err := testBuilder().Build([]GeoPoint{{Lat: 0, Lon: 0}}, LevelSpecs{LevelCountry: 1})
	require.NoError(t, err)

	_, err = Assign(GeoPoint{Lat: 120, Lon: 0}, LevelCountry, idx)
	var coordErr *InvalidCoordinateError
	require.ErrorAs(t, err, &coordErr)
}

func TestAssignAll(t *testing.T) {
	corpus := GenerateTestPoints(100, Bounds{MinLat: 30, MinLon: -10, MaxLat: 60, MaxLon: 30}, 9)
	specs := LevelSpecs{LevelCountry: 4, LevelRegion: 10}

	idx, err := testBuilder().Build(corpus, specs)
	require.NoError(t, err)

	samples, err := AssignAll(corpus, idx)
	require.NoError(t, err)
	require.Len(t, samples, len(corpus))

	for i, s := range samples {
		assert.Equal(t, corpus[i], s.Point)
		require.Len(t, s.Labels, 2)
		for level := range specs {
			single, err := Assign(s.Point, level, idx)
			require.NoError(t, err)
			assert.Equal(t, single, s.Labels[level])
		}
	}
}
