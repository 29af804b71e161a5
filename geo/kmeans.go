package geo

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeansConfig bounds a single k-means run. The zero value is not usable;
// call DefaultKMeansConfig.
type KMeansConfig struct {
	Seed          int64
	MaxIterations int
	Tolerance     float64
	Restarts      int
}

// DefaultKMeansConfig mirrors the parameters the training pipeline has
// always used: a fixed seed for reproducible labels, sklearn-style
// stopping bounds, and ten restarts keeping the lowest-inertia run.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{
		Seed:          42,
		MaxIterations: 300,
		Tolerance:     1e-4,
		Restarts:      10,
	}
}

type kmeansResult struct {
	centroids  [][]float64
	counts     []int
	assignment []int
	iterations int
	converged  bool
	inertia    float64
}

// runKMeans clusters data (rows of [lat, lon] in raw degrees) into k
// groups, running cfg.Restarts independent initializations and keeping
// the one with the lowest inertia. All randomness flows from one seeded
// generator, so the whole procedure is reproducible. Distances are plain
// Euclidean over degrees; at the scales the hierarchy uses this is a
// deliberate approximation of spherical distance. Ties between
// equidistant centroids resolve to the lowest cluster id.
func runKMeans(data [][]float64, k int, cfg KMeansConfig) kmeansResult {
	rng := rand.New(rand.NewSource(cfg.Seed))

	restarts := cfg.Restarts
	if restarts < 1 {
		restarts = 1
	}

	var best kmeansResult
	for r := 0; r < restarts; r++ {
		res := kmeansOnce(data, k, cfg, rng)
		if r == 0 || res.inertia < best.inertia {
			best = res
		}
	}
	return best
}

func kmeansOnce(data [][]float64, k int, cfg KMeansConfig, rng *rand.Rand) kmeansResult {
	centroids := seedCentroids(data, k, rng)
	assignment := make([]int, len(data))
	counts := make([]int, k)

	res := kmeansResult{
		centroids:  centroids,
		counts:     counts,
		assignment: assignment,
	}

	sums := make([][]float64, k)
	for i := range sums {
		sums[i] = make([]float64, 2)
	}
	prev := make([]float64, 2)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		res.iterations = iter + 1

		for i := range counts {
			counts[i] = 0
			sums[i][0] = 0
			sums[i][1] = 0
		}

		for i, p := range data {
			best := 0
			bestDist := floats.Distance(p, centroids[0], 2)
			for j := 1; j < k; j++ {
				if d := floats.Distance(p, centroids[j], 2); d < bestDist {
					bestDist = d
					best = j
				}
			}
			assignment[i] = best
			counts[best]++
			floats.Add(sums[best], p)
		}

		moved := 0.0
		for j := 0; j < k; j++ {
			if counts[j] == 0 {
				// Keep the stale centroid so the run stays deterministic.
				continue
			}
			copy(prev, centroids[j])
			copy(centroids[j], sums[j])
			floats.Scale(1/float64(counts[j]), centroids[j])
			if d := floats.Distance(prev, centroids[j], 2); d > moved {
				moved = d
			}
		}

		if moved < cfg.Tolerance {
			res.converged = true
			break
		}
	}

	// Final labeling pass so assignment, counts and inertia all reflect
	// the finished centroids.
	for i := range counts {
		counts[i] = 0
	}
	res.inertia = 0
	for i, p := range data {
		best := 0
		bestDist := floats.Distance(p, centroids[0], 2)
		for j := 1; j < k; j++ {
			if d := floats.Distance(p, centroids[j], 2); d < bestDist {
				bestDist = d
				best = j
			}
		}
		assignment[i] = best
		counts[best]++
		res.inertia += bestDist * bestDist
	}

	return res
}

// seedCentroids picks initial means with a k-means++ weighted draw, all
// randomness coming from the supplied generator.
func seedCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, k)

	first := make([]float64, 2)
	copy(first, data[rng.Intn(len(data))])
	centroids[0] = first

	dist := make([]float64, len(data))

	for i := 1; i < k; i++ {
		total := 0.0
		for j, p := range data {
			nearest := floats.Distance(p, centroids[0], 2)
			for g := 1; g < i; g++ {
				if d := floats.Distance(p, centroids[g], 2); d < nearest {
					nearest = d
				}
			}
			dist[j] = nearest * nearest
			total += dist[j]
		}

		next := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for j := range dist {
				acc += dist[j]
				if acc >= target {
					next = j
					break
				}
			}
		} else {
			next = rng.Intn(len(data))
		}

		c := make([]float64, 2)
		copy(c, data[next])
		centroids[i] = c
	}

	return centroids
}

// distinctPoints counts coordinates that differ by exact equality, the
// bound used when shrinking k for small corpora.
func distinctPoints(points []GeoPoint) int {
	seen := make(map[GeoPoint]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// nearestCentroid returns the lowest-id cluster whose centroid is closest
// to p by squared Euclidean distance over raw degrees.
func nearestCentroid(p GeoPoint, clusters []Cluster) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range clusters {
		dLat := p.Lat - c.Centroid.Lat
		dLon := p.Lon - c.Centroid.Lon
		if d := dLat*dLat + dLon*dLon; d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
