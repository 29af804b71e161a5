package geo

import (
	"math/rand"
)

// Bounds is a lat/lon bounding box.
type Bounds struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// GenerateTestPoints produces a deterministic uniform corpus inside the
// bounding box, used by the server's build endpoint and by benchmarks.
func GenerateTestPoints(n int, bounds Bounds, seed int64) []GeoPoint {
	rng := rand.New(rand.NewSource(seed))
	points := make([]GeoPoint, n)
	for i := 0; i < n; i++ {
		points[i] = GeoPoint{
			Lat: bounds.MinLat + rng.Float64()*(bounds.MaxLat-bounds.MinLat),
			Lon: bounds.MinLon + rng.Float64()*(bounds.MaxLon-bounds.MinLon),
		}
	}
	return points
}

// LevelSummary is the per-level slice of an IndexSummary.
type LevelSummary struct {
	Level       string  `json:"level"`
	ConfiguredK int     `json:"configuredK"`
	EffectiveK  int     `json:"effectiveK"`
	MinMembers  int     `json:"minMembers"`
	MaxMembers  int     `json:"maxMembers"`
	AvgMembers  float64 `json:"avgMembers"`
	Warnings    int     `json:"warnings"`
}

type IndexSummary struct {
	ID         string         `json:"id"`
	CorpusSize int            `json:"corpusSize"`
	Seed       int64          `json:"seed"`
	CreatedAt  string         `json:"createdAt"`
	Levels     []LevelSummary `json:"levels"`
}

// Summarize reports per-level membership statistics for inspection and
// the server's metadata endpoint.
func Summarize(idx *Index) IndexSummary {
	summary := IndexSummary{
		ID:         idx.ID,
		CorpusSize: idx.CorpusSize,
		Seed:       idx.Seed,
		CreatedAt:  idx.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}

	for _, l := range idx.Levels() {
		lc := idx.levels[l]
		ls := LevelSummary{
			Level:       l.String(),
			ConfiguredK: lc.ConfiguredK,
			EffectiveK:  lc.EffectiveK,
			Warnings:    len(lc.Warnings),
		}

		total := 0
		for i, c := range lc.Clusters {
			if i == 0 {
				ls.MinMembers = c.MemberCount
				ls.MaxMembers = c.MemberCount
			} else {
				if c.MemberCount < ls.MinMembers {
					ls.MinMembers = c.MemberCount
				}
				if c.MemberCount > ls.MaxMembers {
					ls.MaxMembers = c.MemberCount
				}
			}
			total += c.MemberCount
		}
		if len(lc.Clusters) > 0 {
			ls.AvgMembers = float64(total) / float64(len(lc.Clusters))
		}

		summary.Levels = append(summary.Levels, ls)
	}

	return summary
}
