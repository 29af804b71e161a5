package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"web/geoclass/geo"
)

// Config is the full TOML configuration. Every option the system
// recognizes is enumerated here; nothing is read from ambient state.
type Config struct {
	Clustering ClusteringConfig `toml:"clustering"`
	KMeans     KMeansConfig     `toml:"kmeans"`
	Evaluation EvalConfig       `toml:"evaluation"`
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
}

// ClusteringConfig carries the per-level target cluster counts.
type ClusteringConfig struct {
	CountryClusters int `toml:"country_clusters"`
	RegionClusters  int `toml:"region_clusters"`
	CityClusters    int `toml:"city_clusters"`
	PreciseClusters int `toml:"precise_clusters"`
}

type KMeansConfig struct {
	Seed          int64   `toml:"seed"`
	MaxIterations int     `toml:"max_iterations"`
	Tolerance     float64 `toml:"tolerance"`
	Restarts      int     `toml:"restarts"`
}

type EvalConfig struct {
	DistanceThresholds  []float64 `toml:"distance_thresholds"`
	ConfidenceThreshold float64   `toml:"confidence_threshold"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Filename   string `toml:"filename"`
	MaxSize    int    `toml:"max_size"`
	MaxDays    int    `toml:"max_days"`
	MaxBackups int    `toml:"max_backups"`
}

type ServerConfig struct {
	Addr    string `toml:"addr"`
	DataDir string `toml:"data_dir"`
}

// Default returns the stock configuration the original training pipeline
// shipped with.
func Default() Config {
	return Config{
		Clustering: ClusteringConfig{
			CountryClusters: 195,
			RegionClusters:  1000,
			CityClusters:    10000,
			PreciseClusters: 100000,
		},
		KMeans: KMeansConfig{
			Seed:          42,
			MaxIterations: 300,
			Tolerance:     1e-4,
			Restarts:      10,
		},
		Evaluation: EvalConfig{
			DistanceThresholds:  []float64{1, 25, 200, 750, 2500},
			ConfidenceThreshold: 0.5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			DataDir: "data/indexes",
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, fmt.Errorf("config file not found: %s", path)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects non-positive cluster counts and out-of-range
// thresholds.
func (c Config) Validate() error {
	counts := map[string]int{
		"country_clusters": c.Clustering.CountryClusters,
		"region_clusters":  c.Clustering.RegionClusters,
		"city_clusters":    c.Clustering.CityClusters,
		"precise_clusters": c.Clustering.PreciseClusters,
	}
	for name, v := range counts {
		if v <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", name, v)
		}
	}
	if c.Evaluation.ConfidenceThreshold < 0 || c.Evaluation.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence_threshold must be in [0,1], got %f", c.Evaluation.ConfidenceThreshold)
	}
	for _, t := range c.Evaluation.DistanceThresholds {
		if t < 0 {
			return fmt.Errorf("config: distance threshold must be non-negative, got %f", t)
		}
	}
	return nil
}

// LevelSpecs converts the clustering section into the builder's input.
func (c ClusteringConfig) LevelSpecs() geo.LevelSpecs {
	return geo.LevelSpecs{
		geo.LevelCountry: c.CountryClusters,
		geo.LevelRegion:  c.RegionClusters,
		geo.LevelCity:    c.CityClusters,
		geo.LevelPrecise: c.PreciseClusters,
	}
}

// KMeans converts the kmeans section into the builder's run bounds.
func (c KMeansConfig) KMeans() geo.KMeansConfig {
	return geo.KMeansConfig{
		Seed:          c.Seed,
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
		Restarts:      c.Restarts,
	}
}
