package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"web/geoclass/geo"
	"web/geoclass/internal/config"
	"web/geoclass/internal/logutil"
	"web/geoclass/internal/metrics"
)

// IndexServer owns the currently loaded cluster index and the artifact
// directory of saved ones. The index itself is immutable; the mutex only
// guards swapping which index is current.
type IndexServer struct {
	mu      sync.RWMutex
	index   *geo.Index
	cfg     config.Config
	logger  *zap.Logger
	builder *geo.Builder
}

func NewIndexServer(cfg config.Config, logger *zap.Logger) *IndexServer {
	return &IndexServer{
		cfg:     cfg,
		logger:  logger,
		builder: geo.NewBuilder(cfg.KMeans.KMeans(), logger),
	}
}

func (s *IndexServer) current() *geo.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *IndexServer) swap(idx *geo.Index) {
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func generateIndexFilename(dir string, corpusSize int) string {
	timestamp := time.Now().Format("20060102-150405")
	id := uuid.New().String()[:8]
	return filepath.Join(dir, fmt.Sprintf("index-%dp-%s-%s.zst", corpusSize, timestamp, id))
}

// IndexInfo describes one saved index artifact.
type IndexInfo struct {
	ID        string    `json:"id"`
	NumPoints int       `json:"numPoints"`
	Timestamp time.Time `json:"timestamp"`
	FileSize  int64     `json:"fileSize"`
}

// listIndexes parses the artifact directory. Filenames follow
// index-{numPoints}p-{timestamp}-{id}.zst.
func (s *IndexServer) listIndexes() ([]IndexInfo, error) {
	files, err := os.ReadDir(s.cfg.Server.DataDir)
	if err != nil {
		return nil, err
	}

	indexes := make([]IndexInfo, 0)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".zst" {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}

		name := strings.TrimSuffix(file.Name(), ".zst")
		parts := strings.Split(name, "-")
		if len(parts) != 5 {
			continue
		}

		numPoints, err := strconv.Atoi(strings.TrimSuffix(parts[1], "p"))
		if err != nil {
			continue
		}
		timestamp, err := time.Parse("20060102-150405", parts[2]+"-"+parts[3])
		if err != nil {
			continue
		}

		indexes = append(indexes, IndexInfo{
			ID:        parts[4],
			NumPoints: numPoints,
			Timestamp: timestamp,
			FileSize:  info.Size(),
		})
	}

	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i].Timestamp.After(indexes[j].Timestamp)
	})
	return indexes, nil
}

func (s *IndexServer) loadIndexByID(id string) (*IndexInfo, error) {
	files, err := os.ReadDir(s.cfg.Server.DataDir)
	if err != nil {
		return nil, err
	}

	var indexFile string
	var loaded *IndexInfo
	for _, file := range files {
		if strings.Contains(file.Name(), id) && filepath.Ext(file.Name()) == ".zst" {
			indexFile = filepath.Join(s.cfg.Server.DataDir, file.Name())
			name := strings.TrimSuffix(file.Name(), ".zst")
			parts := strings.Split(name, "-")
			if len(parts) == 5 {
				numPoints, _ := strconv.Atoi(strings.TrimSuffix(parts[1], "p"))
				timestamp, _ := time.Parse("20060102-150405", parts[2]+"-"+parts[3])
				fileInfo, _ := os.Stat(indexFile)
				loaded = &IndexInfo{
					ID:        parts[4],
					NumPoints: numPoints,
					Timestamp: timestamp,
					FileSize:  fileInfo.Size(),
				}
			}
			break
		}
	}
	if indexFile == "" {
		return nil, fmt.Errorf("index with ID %s not found", id)
	}

	loadStart := time.Now()
	idx, err := geo.LoadCompressedIndex(indexFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %v", err)
	}
	s.logger.Info("index loaded from file",
		zap.String("file", indexFile),
		zap.Duration("took", time.Since(loadStart)))

	s.swap(idx)
	return loaded, nil
}

// buildIndex clusters a synthetic corpus and saves the artifact, the
// server-side counterpart of cmd/buildindex for quick experiments.
func (s *IndexServer) buildIndex(numPoints int, specs geo.LevelSpecs) (*geo.Index, error) {
	bounds := geo.Bounds{MinLat: 25.0, MinLon: -125.0, MaxLat: 49.0, MaxLon: -67.0}
	points := geo.GenerateTestPoints(numPoints, bounds, s.cfg.KMeans.Seed)

	buildStart := time.Now()
	idx, err := s.builder.Build(points, specs)
	if err != nil {
		return nil, err
	}
	metrics.IndexBuildsTotal.Inc()
	metrics.IndexBuildDurationMs.Observe(float64(time.Since(buildStart).Milliseconds()))
	for range idx.Warnings() {
		metrics.ConvergenceWarningsTotal.Inc()
	}

	savePath := generateIndexFilename(s.cfg.Server.DataDir, numPoints)
	if err := idx.SaveCompressed(savePath); err != nil {
		s.logger.Error("failed to save index", zap.Error(err))
	} else if fileInfo, err := os.Stat(savePath); err == nil {
		s.logger.Info("saved index",
			zap.String("file", savePath),
			zap.String("size", formatFileSize(fileInfo.Size())),
			zap.Duration("build", time.Since(buildStart)))
	}

	s.swap(idx)
	return idx, nil
}

func instrument(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		c.Next()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func main() {
	godotenv.Load()

	configPath := os.Getenv("GEOCLASS_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if addr := os.Getenv("GEOCLASS_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger := logutil.Setup(cfg.Log)
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
		logger.Fatal("failed to create index directory", zap.Error(err))
	}

	server := NewIndexServer(cfg, logger)
	logger.Info("started with empty index server, waiting for an index to be built or loaded")

	r := gin.Default()

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/api/indexes", instrument("list"), func(c *gin.Context) {
		indexes, err := server.listIndexes()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, indexes)
	})

	r.POST("/api/indexes", instrument("build"), func(c *gin.Context) {
		var req struct {
			NumPoints int `json:"numPoints"`
		}
		if err := c.BindJSON(&req); err != nil || req.NumPoints <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		idx, err := server.buildIndex(req.NumPoints, cfg.Clustering.LevelSpecs())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "New index built", "summary": geo.Summarize(idx)})
	})

	r.POST("/api/indexes/load/:id", instrument("load"), func(c *gin.Context) {
		info, err := server.loadIndexByID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Index loaded successfully", "indexInfo": info})
	})

	r.GET("/api/indexes/metadata", instrument("metadata"), func(c *gin.Context) {
		idx := server.current()
		if idx == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No index loaded"})
			return
		}
		c.JSON(http.StatusOK, geo.Summarize(idx))
	})

	r.GET("/api/assign", instrument("assign"), func(c *gin.Context) {
		idx := server.current()
		if idx == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No index loaded"})
			return
		}

		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lat parameter"})
			return
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lon parameter"})
			return
		}

		p, err := geo.NewGeoPoint(lat, lon)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		samples, err := geo.AssignAll([]geo.GeoPoint{p}, idx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, samples[0])
	})

	r.POST("/api/fuse", instrument("fuse"), func(c *gin.Context) {
		idx := server.current()
		if idx == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No index loaded"})
			return
		}

		var pred geo.Prediction
		if err := c.BindJSON(&pred); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prediction payload"})
			return
		}

		point, reliability, err := geo.Fuse(pred, idx, cfg.Evaluation.ConfidenceThreshold)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"point": point, "reliability": reliability})
	})

	r.POST("/api/evaluate", instrument("evaluate"), func(c *gin.Context) {
		idx := server.current()
		if idx == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No index loaded"})
			return
		}

		var pairs []geo.EvalPair
		if err := c.BindJSON(&pairs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid evaluation payload"})
			return
		}

		result, err := geo.Evaluate(pairs, idx, geo.EvalOptions{
			Thresholds:          cfg.Evaluation.DistanceThresholds,
			ConfidenceThreshold: cfg.Evaluation.ConfidenceThreshold,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metrics.EvaluationsTotal.Inc()
		c.JSON(http.StatusOK, result)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		if err := r.Run(cfg.Server.Addr); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")
}
