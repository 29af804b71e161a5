package geo

import (
	"fmt"
	"runtime"
	"testing"
)

var benchBounds = Bounds{MinLat: 25, MinLon: -125, MaxLat: 49, MaxLon: -66}

func benchmarkBuild(b *testing.B, numPoints int, specs LevelSpecs) {
	corpus := GenerateTestPoints(numPoints, benchBounds, 42)
	builder := NewBuilder(DefaultKMeansConfig(), nil)

	var m1, m2 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(corpus, specs); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	runtime.ReadMemStats(&m2)
	b.ReportMetric(float64(m2.TotalAlloc-m1.TotalAlloc)/float64(b.N)/1024/1024, "MB/op")
}

func BenchmarkBuild(b *testing.B) {
	sizes := []int{1000, 10000}
	specs := LevelSpecs{LevelCountry: 8, LevelRegion: 32, LevelCity: 128}

	for _, n := range sizes {
		b.Run(fmt.Sprintf("points_%d", n), func(b *testing.B) {
			benchmarkBuild(b, n, specs)
		})
	}
}

func BenchmarkAssign(b *testing.B) {
	corpus := GenerateTestPoints(10000, benchBounds, 42)
	idx, err := NewBuilder(DefaultKMeansConfig(), nil).Build(corpus, LevelSpecs{
		LevelCountry: 8, LevelRegion: 32, LevelCity: 128,
	})
	if err != nil {
		b.Fatal(err)
	}
	probes := GenerateTestPoints(1024, benchBounds, 7)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Assign(probes[i%len(probes)], LevelCity, idx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFuse(b *testing.B) {
	corpus := GenerateTestPoints(10000, benchBounds, 42)
	idx, err := NewBuilder(DefaultKMeansConfig(), nil).Build(corpus, LevelSpecs{
		LevelCountry: 8, LevelRegion: 32, LevelCity: 128, LevelPrecise: 512,
	})
	if err != nil {
		b.Fatal(err)
	}

	pred := Prediction{LevelConfidences: map[Level][]float64{
		LevelCountry: {0.9, 0.1},
		LevelRegion:  {0.7, 0.3},
		LevelCity:    {0.4, 0.6},
		LevelPrecise: {0.2, 0.8},
	}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Fuse(pred, idx, 0.5); err != nil {
			b.Fatal(err)
		}
	}
}
