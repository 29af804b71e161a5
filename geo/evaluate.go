package geo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/panjf2000/ants/v2"
	"gonum.org/v1/gonum/stat"
)

// EvalPair couples one prediction with its ground truth sample.
type EvalPair struct {
	Pred  Prediction `json:"prediction"`
	Truth Sample     `json:"truth"`
}

// EvalOptions configures one evaluation run. Thresholds are the
// accuracy-at-distance cutoffs in kilometers.
type EvalOptions struct {
	Thresholds          []float64
	ConfidenceThreshold float64
	// RegressionOnly scores the raw regressed coordinate instead of the
	// fused point.
	RegressionOnly bool
	// Workers caps the per-sample fan-out; <=0 means one worker per
	// sample up to a small fixed limit.
	Workers int
}

// EvaluationResult aggregates distance error and classification accuracy
// over an evaluation corpus.
type EvaluationResult struct {
	MeanErrorKm         float64             `json:"mean_error_km"`
	MedianErrorKm       float64             `json:"median_error_km"`
	AccuracyAtThreshold map[float64]float64 `json:"-"`
	PerLevelAccuracy    map[Level]float64   `json:"per_level_accuracy"`
	Samples             int                 `json:"samples"`
	Warnings            []string            `json:"warnings,omitempty"`
}

// MarshalJSON renders the float-keyed accuracy map with string keys, which
// encoding/json cannot do on its own.
func (r EvaluationResult) MarshalJSON() ([]byte, error) {
	type alias EvaluationResult
	accuracy := make(map[string]float64, len(r.AccuracyAtThreshold))
	for t, v := range r.AccuracyAtThreshold {
		accuracy[strconv.FormatFloat(t, 'g', -1, 64)] = v
	}
	return json.Marshal(struct {
		alias
		AccuracyAtThreshold map[string]float64 `json:"accuracy_at_threshold"`
	}{alias(r), accuracy})
}

type sampleOutcome struct {
	errKm   float64
	hits    map[Level]bool
	warning string
	err     error
}

// Evaluate scores predictions against ground truth: haversine error of the
// fused (or regressed) point, exact median over the fully materialized
// error list, accuracy at each distance threshold, and per-level top-class
// accuracy. Per-sample work is independent and fans out over a worker
// pool; warnings are collected on the result, never swallowed.
func Evaluate(pairs []EvalPair, idx *Index, opts EvalOptions) (*EvaluationResult, error) {
	if len(pairs) == 0 {
		return nil, ErrInsufficientData
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("evaluate: create worker pool: %w", err)
	}
	defer pool.Release()

	outcomes := make([]sampleOutcome, len(pairs))
	var wg sync.WaitGroup
	for i := range pairs {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = scoreSample(pairs[i], idx, opts)
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("evaluate: submit sample: %w", err)
		}
	}
	wg.Wait()

	res := &EvaluationResult{
		AccuracyAtThreshold: make(map[float64]float64, len(opts.Thresholds)),
		PerLevelAccuracy:    make(map[Level]float64),
		Samples:             len(pairs),
	}

	errs := make([]float64, 0, len(pairs))
	levelHits := make(map[Level]int)
	levelTotals := make(map[Level]int)

	for _, o := range outcomes {
		if o.err != nil {
			return nil, o.err
		}
		if o.warning != "" {
			res.Warnings = append(res.Warnings, o.warning)
		}
		errs = append(errs, o.errKm)
		for l, hit := range o.hits {
			levelTotals[l]++
			if hit {
				levelHits[l]++
			}
		}
	}

	res.MeanErrorKm = stat.Mean(errs, nil)

	// The sorted list is complete before the median is read.
	sorted := make([]float64, len(errs))
	copy(sorted, errs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		res.MedianErrorKm = sorted[mid]
	} else {
		res.MedianErrorKm = (sorted[mid-1] + sorted[mid]) / 2
	}

	n := float64(len(errs))
	for _, t := range opts.Thresholds {
		within := 0
		for _, e := range errs {
			if e <= t {
				within++
			}
		}
		res.AccuracyAtThreshold[t] = float64(within) / n
	}

	for l, total := range levelTotals {
		res.PerLevelAccuracy[l] = float64(levelHits[l]) / float64(total)
	}

	return res, nil
}

func scoreSample(pair EvalPair, idx *Index, opts EvalOptions) sampleOutcome {
	var out sampleOutcome

	var final GeoPoint
	switch {
	case opts.RegressionOnly:
		if pair.Pred.Coordinate == nil {
			out.err = ErrEmptyPrediction
			return out
		}
		final = *pair.Pred.Coordinate
	default:
		var err error
		final, _, err = Fuse(pair.Pred, idx, opts.ConfidenceThreshold)
		if err != nil {
			out.err = err
			return out
		}
	}

	errKm, err := Haversine(final, pair.Truth.Point)
	if err != nil {
		out.err = err
		return out
	}
	out.errKm = errKm

	out.hits = make(map[Level]bool, len(pair.Truth.Labels))
	for l, want := range pair.Truth.Labels {
		id, _, ok := pair.Pred.Top(l)
		if !ok {
			out.warning = fmt.Sprintf("sample at (%f, %f): no %s confidences, level skipped",
				pair.Truth.Point.Lat, pair.Truth.Point.Lon, l)
			continue
		}
		out.hits[l] = id == want
	}

	return out
}
