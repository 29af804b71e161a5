package geo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Builder turns a training corpus into a per-level cluster index. Levels
// are clustered independently of each other -- a point's country cluster
// has no guaranteed geometric relationship to its region cluster -- and
// the builds run concurrently, one task per level, over the shared
// read-only corpus.
type Builder struct {
	cfg    KMeansConfig
	logger *zap.Logger
}

// NewBuilder returns a builder with the given k-means bounds. A nil logger
// is replaced with a no-op one.
func NewBuilder(cfg KMeansConfig, logger *zap.Logger) *Builder {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultKMeansConfig().MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultKMeansConfig().Tolerance
	}
	if cfg.Restarts <= 0 {
		cfg.Restarts = DefaultKMeansConfig().Restarts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{cfg: cfg, logger: logger}
}

// Build clusters the corpus once per level in specs and assembles the
// resulting immutable index. An empty corpus is ErrInsufficientData; a
// corpus with fewer distinct points than a level's k shrinks that level's
// effective k instead of failing.
func (b *Builder) Build(corpus []GeoPoint, specs LevelSpecs) (*Index, error) {
	if len(corpus) == 0 {
		return nil, ErrInsufficientData
	}
	for _, p := range corpus {
		if !p.Valid() {
			return nil, &InvalidCoordinateError{Lat: p.Lat, Lon: p.Lon}
		}
	}

	data := make([][]float64, len(corpus))
	for i, p := range corpus {
		data[i] = []float64{p.Lat, p.Lon}
	}
	distinct := distinctPoints(corpus)

	levels := make([]Level, 0, len(specs))
	for l := range specs {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	idx := newIndex(b.cfg.Seed, len(corpus))
	for _, l := range levels {
		idx.levels[l] = &LevelClusters{Level: l, ConfiguredK: specs[l]}
	}

	pool, err := ants.NewPool(len(levels))
	if err != nil {
		return nil, fmt.Errorf("builder: create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, l := range levels {
		level := l
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			b.buildLevel(idx.levels[level], data, distinct)
		}); err != nil {
			wg.Done()
			pool.Release()
			return nil, fmt.Errorf("builder: submit level %s: %w", level, err)
		}
	}
	wg.Wait()

	return idx, nil
}

// buildLevel runs one level's k-means and fills in its LevelClusters.
// Each level derives its seed from the base seed and its own ordinal so
// the levels stay reproducible yet decorrelated.
func (b *Builder) buildLevel(lc *LevelClusters, data [][]float64, distinct int) {
	k := lc.ConfiguredK
	if k < 1 {
		k = 1
	}
	if distinct < k {
		b.logger.Info("reducing cluster count to distinct corpus points",
			zap.Stringer("level", lc.Level),
			zap.Int("configured", lc.ConfiguredK),
			zap.Int("effective", distinct))
		k = distinct
	}
	lc.EffectiveK = k

	cfg := b.cfg
	cfg.Seed += int64(lc.Level)
	res := runKMeans(data, k, cfg)

	if !res.converged {
		w := ConvergenceWarning{Level: lc.Level, Iterations: res.iterations}
		lc.Warnings = append(lc.Warnings, w.String())
		b.logger.Warn("k-means did not converge, keeping best-effort result",
			zap.Stringer("level", lc.Level),
			zap.Int("iterations", res.iterations))
	}

	lc.Clusters = make([]Cluster, k)
	for id := 0; id < k; id++ {
		lc.Clusters[id] = Cluster{
			Level:       lc.Level,
			ID:          id,
			Centroid:    GeoPoint{Lat: res.centroids[id][0], Lon: res.centroids[id][1]},
			MemberCount: res.counts[id],
		}
	}

	b.logger.Info("built level",
		zap.Stringer("level", lc.Level),
		zap.Int("clusters", k),
		zap.Int("iterations", res.iterations),
		zap.Bool("converged", res.converged))
}
