package geo

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Cluster is one centroid of a level, identified by a contiguous id
// starting at 0.
type Cluster struct {
	Level       Level    `json:"level"`
	ID          int      `json:"id"`
	Centroid    GeoPoint `json:"centroid"`
	MemberCount int      `json:"member_count"`
}

// LevelClusters holds one level's clustering: the ordered centroid list
// plus the configured and effective cluster counts and any convergence
// warning the build recorded.
type LevelClusters struct {
	Level       Level     `json:"level"`
	ConfiguredK int       `json:"configured_k"`
	EffectiveK  int       `json:"effective_k"`
	Clusters    []Cluster `json:"clusters"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// Index is the immutable result of a Builder run. Once built or loaded it
// is never written again, so any number of goroutines may read it without
// locking.
type Index struct {
	ID         string    `json:"id"`
	Seed       int64     `json:"seed"`
	CorpusSize int       `json:"corpus_size"`
	CreatedAt  time.Time `json:"created_at"`

	levels map[Level]*LevelClusters
}

func newIndex(seed int64, corpusSize int) *Index {
	return &Index{
		ID:         uuid.New().String(),
		Seed:       seed,
		CorpusSize: corpusSize,
		CreatedAt:  time.Now().UTC(),
		levels:     make(map[Level]*LevelClusters, len(Levels)),
	}
}

// Levels returns the levels present in the index, coarse to fine.
func (idx *Index) Levels() []Level {
	out := make([]Level, 0, len(idx.levels))
	for l := range idx.levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Level returns one level's clustering, or IndexNotFoundError when the
// index was not built with that level.
func (idx *Index) Level(l Level) (*LevelClusters, error) {
	lc, ok := idx.levels[l]
	if !ok {
		return nil, &IndexNotFoundError{Level: l}
	}
	return lc, nil
}

// Clusters returns the ordered centroid list for a level.
func (idx *Index) Clusters(l Level) ([]Cluster, error) {
	lc, err := idx.Level(l)
	if err != nil {
		return nil, err
	}
	return lc.Clusters, nil
}

// Centroid resolves a cluster id back to its representative coordinate.
func (idx *Index) Centroid(l Level, id int) (GeoPoint, error) {
	lc, err := idx.Level(l)
	if err != nil {
		return GeoPoint{}, err
	}
	if id < 0 || id >= len(lc.Clusters) {
		return GeoPoint{}, &IndexNotFoundError{Level: l}
	}
	return lc.Clusters[id].Centroid, nil
}

// Warnings collects every convergence warning recorded during the build.
func (idx *Index) Warnings() []string {
	var out []string
	for _, l := range idx.Levels() {
		out = append(out, idx.levels[l].Warnings...)
	}
	return out
}
