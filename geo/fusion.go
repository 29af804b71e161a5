package geo

// Prediction is what the external predictor emits for one image: a
// per-level class-confidence vector, and optionally a directly regressed
// coordinate with its own confidence.
type Prediction struct {
	Coordinate           *GeoPoint           `json:"coordinate,omitempty"`
	CoordinateConfidence float64             `json:"coordinate_confidence,omitempty"`
	LevelConfidences     map[Level][]float64 `json:"level_confidences"`
}

// Top returns the highest-confidence class id at a level, or ok=false when
// the prediction carries no confidences for it. Ties resolve to the lowest
// class id.
func (p Prediction) Top(level Level) (id int, conf float64, ok bool) {
	vec := p.LevelConfidences[level]
	if len(vec) == 0 {
		return 0, 0, false
	}
	id = 0
	conf = vec[0]
	for i := 1; i < len(vec); i++ {
		if vec[i] > conf {
			conf = vec[i]
			id = i
		}
	}
	return id, conf, true
}

// Fuse collapses a prediction into one final coordinate and a reliability
// score using confidence-gated hierarchical fallback: walking precise down
// to country, the first level whose top confidence clears the threshold
// contributes its centroid. When no level clears it, the coarsest level's
// top class is used anyway, carrying its (possibly low) confidence as the
// reliability. A regressed coordinate whose confidence beats every level's
// top confidence wins outright.
func Fuse(pred Prediction, idx *Index, threshold float64) (GeoPoint, float64, error) {
	if pred.Coordinate != nil {
		beatsAll := true
		for _, l := range LevelsFinestFirst {
			if _, conf, ok := pred.Top(l); ok && conf >= pred.CoordinateConfidence {
				beatsAll = false
				break
			}
		}
		if beatsAll {
			if !pred.Coordinate.Valid() {
				return GeoPoint{}, 0, &InvalidCoordinateError{Lat: pred.Coordinate.Lat, Lon: pred.Coordinate.Lon}
			}
			return *pred.Coordinate, pred.CoordinateConfidence, nil
		}
	}

	var fallback *GeoPoint
	var fallbackConf float64

	for _, l := range LevelsFinestFirst {
		id, conf, ok := pred.Top(l)
		if !ok {
			continue
		}
		centroid, err := idx.Centroid(l, id)
		if err != nil {
			return GeoPoint{}, 0, err
		}
		if conf > threshold {
			return centroid, conf, nil
		}
		// Remember the coarsest gated-out level; the loop runs fine to
		// coarse so the last one seen wins.
		fallback = &centroid
		fallbackConf = conf
	}

	if fallback != nil {
		return *fallback, fallbackConf, nil
	}
	return GeoPoint{}, 0, ErrEmptyPrediction
}
