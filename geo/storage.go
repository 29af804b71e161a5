package geo

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
)

// indexFormatVersion is bumped whenever the on-disk layout changes.
const indexFormatVersion uint32 = 1

// SaveCompressed writes the index as a zstd-framed little-endian binary
// stream. Centroids are stored as float64 bits so the round trip is exact.
func (idx *Index) SaveCompressed(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	enc, err := zstd.NewWriter(bufWriter,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}
	defer enc.Close()

	if err := idx.writeTo(enc); err != nil {
		return err
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %v", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %v", err)
	}
	return nil
}

// LoadCompressedIndex reads an index saved by SaveCompressed.
func LoadCompressedIndex(filename string) (*Index, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(bufio.NewReaderSize(file, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	return readIndex(dec)
}

func (idx *Index) writeTo(w io.Writer) error {
	binary.Write(w, binary.LittleEndian, indexFormatVersion)
	binary.Write(w, binary.LittleEndian, uint32(len(idx.levels)))
	binary.Write(w, binary.LittleEndian, idx.Seed)
	binary.Write(w, binary.LittleEndian, uint32(idx.CorpusSize))
	binary.Write(w, binary.LittleEndian, idx.CreatedAt.UnixNano())
	if err := writeString(w, idx.ID); err != nil {
		return err
	}

	for _, l := range idx.Levels() {
		lc := idx.levels[l]
		binary.Write(w, binary.LittleEndian, uint8(l))
		binary.Write(w, binary.LittleEndian, uint32(lc.ConfiguredK))
		binary.Write(w, binary.LittleEndian, uint32(lc.EffectiveK))

		binary.Write(w, binary.LittleEndian, uint32(len(lc.Warnings)))
		for _, warn := range lc.Warnings {
			if err := writeString(w, warn); err != nil {
				return err
			}
		}

		binary.Write(w, binary.LittleEndian, uint32(len(lc.Clusters)))
		for _, c := range lc.Clusters {
			binary.Write(w, binary.LittleEndian, uint32(c.ID))
			binary.Write(w, binary.LittleEndian, c.Centroid.Lat)
			binary.Write(w, binary.LittleEndian, c.Centroid.Lon)
			binary.Write(w, binary.LittleEndian, uint32(c.MemberCount))
		}
	}
	return nil
}

func readIndex(r io.Reader) (*Index, error) {
	var version, numLevels uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}
	if version != indexFormatVersion {
		return nil, fmt.Errorf("unsupported index format version %d", version)
	}
	binary.Read(r, binary.LittleEndian, &numLevels)

	idx := &Index{levels: make(map[Level]*LevelClusters, numLevels)}

	var corpusSize uint32
	var createdAt int64
	binary.Read(r, binary.LittleEndian, &idx.Seed)
	binary.Read(r, binary.LittleEndian, &corpusSize)
	binary.Read(r, binary.LittleEndian, &createdAt)
	idx.CorpusSize = int(corpusSize)
	idx.CreatedAt = time.Unix(0, createdAt).UTC()

	id, err := readString(r)
	if err != nil {
		return nil, err
	}
	idx.ID = id

	for i := uint32(0); i < numLevels; i++ {
		var levelByte uint8
		var configuredK, effectiveK, numWarnings, numClusters uint32
		binary.Read(r, binary.LittleEndian, &levelByte)
		binary.Read(r, binary.LittleEndian, &configuredK)
		binary.Read(r, binary.LittleEndian, &effectiveK)
		binary.Read(r, binary.LittleEndian, &numWarnings)

		lc := &LevelClusters{
			Level:       Level(levelByte),
			ConfiguredK: int(configuredK),
			EffectiveK:  int(effectiveK),
		}

		for j := uint32(0); j < numWarnings; j++ {
			warn, err := readString(r)
			if err != nil {
				return nil, err
			}
			lc.Warnings = append(lc.Warnings, warn)
		}

		binary.Read(r, binary.LittleEndian, &numClusters)
		lc.Clusters = make([]Cluster, numClusters)
		for j := uint32(0); j < numClusters; j++ {
			var id, members uint32
			var lat, lon float64
			binary.Read(r, binary.LittleEndian, &id)
			binary.Read(r, binary.LittleEndian, &lat)
			binary.Read(r, binary.LittleEndian, &lon)
			if err := binary.Read(r, binary.LittleEndian, &members); err != nil {
				return nil, fmt.Errorf("failed to read cluster record: %v", err)
			}
			lc.Clusters[j] = Cluster{
				Level:       lc.Level,
				ID:          int(id),
				Centroid:    GeoPoint{Lat: lat, Lon: lon},
				MemberCount: int(members),
			}
		}

		idx.levels[lc.Level] = lc
	}

	return idx, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("failed to write string length: %v", err)
	}
	if _, err := w.Write([]byte(s)); err != nil {
		return fmt.Errorf("failed to write string: %v", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("failed to read string length: %v", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to read string: %v", err)
	}
	return string(buf), nil
}
