package geo

// Sample pairs a corpus point with its per-level cluster labels. These are
// the classification targets handed to the training loop.
type Sample struct {
	Point  GeoPoint      `json:"point"`
	Labels map[Level]int `json:"labels"`
}

// Assign returns the id of the cluster whose centroid is nearest to p at
// the given level. Lookup uses the same Euclidean-over-degrees distance the
// builder clustered with, so labels stay self-consistent.
func Assign(p GeoPoint, level Level, idx *Index) (int, error) {
	if !p.Valid() {
		return 0, &InvalidCoordinateError{Lat: p.Lat, Lon: p.Lon}
	}
	clusters, err := idx.Clusters(level)
	if err != nil {
		return 0, err
	}
	return nearestCentroid(p, clusters), nil
}

// AssignAll labels every point at every level the index carries. The index
// is only read, never mutated.
func AssignAll(points []GeoPoint, idx *Index) ([]Sample, error) {
	levels := idx.Levels()
	samples := make([]Sample, len(points))
	for i, p := range points {
		labels := make(map[Level]int, len(levels))
		for _, l := range levels {
			id, err := Assign(p, l, idx)
			if err != nil {
				return nil, err
			}
			labels[l] = id
		}
		samples[i] = Sample{Point: p, Labels: labels}
	}
	return samples, nil
}
