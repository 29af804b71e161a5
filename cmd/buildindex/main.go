package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"web/geoclass/geo"
	"web/geoclass/internal/config"
	"web/geoclass/internal/logutil"
)

func main() {
	var (
		corpusPath = flag.String("corpus", "", "path to corpus CSV (lat,lon columns)")
		configPath = flag.String("config", "", "path to TOML config")
		outDir     = flag.String("out", "data/indexes", "output directory for index artifacts")
		latCol     = flag.Int("lat-col", 0, "zero-based latitude column")
		lonCol     = flag.Int("lon-col", 1, "zero-based longitude column")
		header     = flag.Bool("header", false, "skip the first CSV record")
		mmapOut    = flag.Bool("mmap", false, "also write the uncompressed mmap image")
	)
	flag.Parse()

	if *corpusPath == "" {
		fmt.Fprintln(os.Stderr, "usage: buildindex -corpus points.csv [-config geoclass.toml]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logutil.Setup(cfg.Log)
	defer logger.Sync()

	importer := geo.NewImporter(*latCol, *lonCol)
	importer.SkipHeader = *header
	points, skipped, err := importer.Import(*corpusPath)
	if err != nil {
		logger.Fatal("failed to import corpus", zap.Error(err))
	}
	logger.Info("imported corpus",
		zap.String("file", *corpusPath),
		zap.Int("points", len(points)),
		zap.Int("skipped", skipped))

	builder := geo.NewBuilder(cfg.KMeans.KMeans(), logger)

	start := time.Now()
	idx, err := builder.Build(points, cfg.Clustering.LevelSpecs())
	if err != nil {
		logger.Fatal("build failed", zap.Error(err))
	}
	logger.Info("index built", zap.Duration("took", time.Since(start)))

	for _, w := range idx.Warnings() {
		logger.Warn(w)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		logger.Fatal("failed to create output directory", zap.Error(err))
	}

	base := fmt.Sprintf("index-%dp-%s-%s", len(points),
		time.Now().Format("20060102-150405"), idx.ID[:8])
	zstPath := filepath.Join(*outDir, base+".zst")
	if err := idx.SaveCompressed(zstPath); err != nil {
		logger.Fatal("failed to save index", zap.Error(err))
	}
	logger.Info("saved compressed index", zap.String("file", zstPath))

	if *mmapOut {
		mmapPath := strings.TrimSuffix(zstPath, ".zst") + ".bin"
		if err := idx.SaveMMap(mmapPath); err != nil {
			logger.Fatal("failed to save mmap index", zap.Error(err))
		}
		logger.Info("saved mmap index", zap.String("file", mmapPath))
	}

	summary := geo.Summarize(idx)
	for _, ls := range summary.Levels {
		logger.Info("level summary",
			zap.String("level", ls.Level),
			zap.Int("configuredK", ls.ConfiguredK),
			zap.Int("effectiveK", ls.EffectiveK),
			zap.Int("minMembers", ls.MinMembers),
			zap.Int("maxMembers", ls.MaxMembers),
			zap.Float64("avgMembers", ls.AvgMembers),
			zap.Int("warnings", ls.Warnings))
	}
}
