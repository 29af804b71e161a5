package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"web/geoclass/geo"
	"web/geoclass/internal/config"
	"web/geoclass/internal/logutil"
)

func main() {
	var (
		indexPath      = flag.String("index", "", "path to a saved index (.zst or .bin)")
		pairsPath      = flag.String("predictions", "", "path to JSON file of prediction/truth pairs")
		configPath     = flag.String("config", "", "path to TOML config")
		regressionOnly = flag.Bool("regression-only", false, "score raw regressed coordinates instead of fused points")
	)
	flag.Parse()

	if *indexPath == "" || *pairsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: evaluate -index index.zst -predictions pairs.json")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logutil.Setup(cfg.Log)
	defer logger.Sync()

	var idx *geo.Index
	if strings.HasSuffix(*indexPath, ".bin") {
		idx, err = geo.LoadMMapIndex(*indexPath)
	} else {
		idx, err = geo.LoadCompressedIndex(*indexPath)
	}
	if err != nil {
		logger.Fatal("failed to load index", zap.Error(err))
	}
	logger.Info("loaded index",
		zap.String("id", idx.ID),
		zap.Int("corpusSize", idx.CorpusSize))

	raw, err := os.ReadFile(*pairsPath)
	if err != nil {
		logger.Fatal("failed to read predictions", zap.Error(err))
	}
	var pairs []geo.EvalPair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		logger.Fatal("failed to parse predictions", zap.Error(err))
	}

	result, err := geo.Evaluate(pairs, idx, geo.EvalOptions{
		Thresholds:          cfg.Evaluation.DistanceThresholds,
		ConfidenceThreshold: cfg.Evaluation.ConfidenceThreshold,
		RegressionOnly:      *regressionOnly,
	})
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	for _, w := range result.Warnings {
		logger.Warn(w)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}
