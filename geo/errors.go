package geo

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when a build or evaluation is asked
	// to work from an empty input set.
	ErrInsufficientData = errors.New("geo: empty input set")

	// ErrEmptyPrediction is returned by Fuse when a prediction carries
	// neither level confidences nor a regressed coordinate.
	ErrEmptyPrediction = errors.New("geo: prediction carries no estimates")
)

// InvalidCoordinateError reports a latitude/longitude outside the valid
// ranges.
type InvalidCoordinateError struct {
	Lat float64
	Lon float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("geo: invalid coordinate (%f, %f)", e.Lat, e.Lon)
}

// IndexNotFoundError reports a query against a level the index was not
// built with.
type IndexNotFoundError struct {
	Level Level
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("geo: level %s not present in index", e.Level)
}

// ConvergenceWarning records a k-means run that hit its iteration cap
// before the centroids settled. It is attached to the built index, never
// returned as an error.
type ConvergenceWarning struct {
	Level      Level
	Iterations int
}

func (w ConvergenceWarning) String() string {
	return fmt.Sprintf("level %s: k-means hit iteration cap (%d) before converging", w.Level, w.Iterations)
}
