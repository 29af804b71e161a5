package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web/geoclass/geo"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geoclass.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[clustering]
country_clusters = 10
region_clusters = 50

[kmeans]
seed = 7
restarts = 3

[evaluation]
confidence_threshold = 0.8
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Clustering.CountryClusters)
	assert.Equal(t, 50, cfg.Clustering.RegionClusters)
	// Sections left out keep their defaults.
	assert.Equal(t, 10000, cfg.Clustering.CityClusters)
	assert.Equal(t, int64(7), cfg.KMeans.Seed)
	assert.Equal(t, 3, cfg.KMeans.Restarts)
	assert.Equal(t, 300, cfg.KMeans.MaxIterations)
	assert.Equal(t, 0.8, cfg.Evaluation.ConfidenceThreshold)
	assert.Equal(t, []float64{1, 25, 200, 750, 2500}, cfg.Evaluation.DistanceThresholds)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero cluster count":    "[clustering]\ncountry_clusters = 0\n",
		"confidence over one":   "[evaluation]\nconfidence_threshold = 1.5\n",
		"negative threshold":    "[evaluation]\ndistance_thresholds = [-1.0]\n",
		"negative cluster count": "[clustering]\ncity_clusters = -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLevelSpecsConversion(t *testing.T) {
	specs := Default().Clustering.LevelSpecs()
	assert.Equal(t, geo.LevelSpecs{
		geo.LevelCountry: 195,
		geo.LevelRegion:  1000,
		geo.LevelCity:    10000,
		geo.LevelPrecise: 100000,
	}, specs)
}
