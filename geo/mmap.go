package geo

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/edsrzf/mmap-go"
)

// MMapWriter handles writing to memory-mapped files
type MMapWriter struct {
	data   mmap.MMap
	offset int
}

func NewMMapWriter(data mmap.MMap) *MMapWriter {
	return &MMapWriter{data: data}
}

func (w *MMapWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.data[w.offset:], v)
	w.offset += 4
}

func (w *MMapWriter) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.data[w.offset:], v)
	w.offset += 8
}

func (w *MMapWriter) WriteFloat64(v float64) {
	binary.LittleEndian.PutUint64(w.data[w.offset:], math.Float64bits(v))
	w.offset += 8
}

func (w *MMapWriter) WriteBytes(b []byte) {
	copy(w.data[w.offset:], b)
	w.offset += len(b)
}

// MMapReader handles reading from memory-mapped files
type MMapReader struct {
	data   mmap.MMap
	offset int
}

func NewMMapReader(data mmap.MMap) *MMapReader {
	return &MMapReader{data: data}
}

func (r *MMapReader) ReadUint32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

func (r *MMapReader) ReadUint64() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v
}

func (r *MMapReader) ReadFloat64() float64 {
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return math.Float64frombits(v)
}

func (r *MMapReader) ReadBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, r.data[r.offset:r.offset+n])
	r.offset += n
	return b
}

// calculateSize calculates the total file size needed for the flat image.
func (idx *Index) calculateSize() int64 {
	// version, level count, seed, corpus size, created-at, id
	size := int64(4 + 4 + 8 + 4 + 8)
	size += 4 + int64(len(idx.ID))

	for _, lc := range idx.levels {
		size += 4 + 4 + 4 // level, configured k, effective k
		size += 4
		for _, warn := range lc.Warnings {
			size += 4 + int64(len(warn))
		}
		size += 4                              // cluster count
		size += int64(len(lc.Clusters)) * 24 // id, lat, lon, member count
	}
	return size
}

// SaveMMap writes the index as an uncompressed flat image through a memory
// mapping, the fast-reload alternative to SaveCompressed for large
// precise-level indexes.
func (idx *Index) SaveMMap(filename string) error {
	size := idx.calculateSize()

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %v", err)
	}

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	writer := NewMMapWriter(mmapData)

	writer.WriteUint32(indexFormatVersion)
	writer.WriteUint32(uint32(len(idx.levels)))
	writer.WriteUint64(uint64(idx.Seed))
	writer.WriteUint32(uint32(idx.CorpusSize))
	writer.WriteUint64(uint64(idx.CreatedAt.UnixNano()))
	writer.WriteUint32(uint32(len(idx.ID)))
	writer.WriteBytes([]byte(idx.ID))

	for _, l := range idx.Levels() {
		lc := idx.levels[l]
		writer.WriteUint32(uint32(l))
		writer.WriteUint32(uint32(lc.ConfiguredK))
		writer.WriteUint32(uint32(lc.EffectiveK))

		writer.WriteUint32(uint32(len(lc.Warnings)))
		for _, warn := range lc.Warnings {
			writer.WriteUint32(uint32(len(warn)))
			writer.WriteBytes([]byte(warn))
		}

		writer.WriteUint32(uint32(len(lc.Clusters)))
		for _, c := range lc.Clusters {
			writer.WriteUint32(uint32(c.ID))
			writer.WriteFloat64(c.Centroid.Lat)
			writer.WriteFloat64(c.Centroid.Lon)
			writer.WriteUint32(uint32(c.MemberCount))
		}
	}

	return mmapData.Flush()
}

// LoadMMapIndex reads an index saved by SaveMMap.
func LoadMMapIndex(filename string) (*Index, error) {
	file, err := os.OpenFile(filename, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	mmapData, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	reader := NewMMapReader(mmapData)

	version := reader.ReadUint32()
	if version != indexFormatVersion {
		return nil, fmt.Errorf("unsupported index format version %d", version)
	}
	numLevels := reader.ReadUint32()

	idx := &Index{levels: make(map[Level]*LevelClusters, numLevels)}
	idx.Seed = int64(reader.ReadUint64())
	idx.CorpusSize = int(reader.ReadUint32())
	idx.CreatedAt = time.Unix(0, int64(reader.ReadUint64())).UTC()
	idLen := reader.ReadUint32()
	idx.ID = string(reader.ReadBytes(int(idLen)))

	for i := uint32(0); i < numLevels; i++ {
		lc := &LevelClusters{
			Level:       Level(reader.ReadUint32()),
			ConfiguredK: int(reader.ReadUint32()),
			EffectiveK:  int(reader.ReadUint32()),
		}

		numWarnings := reader.ReadUint32()
		for j := uint32(0); j < numWarnings; j++ {
			warnLen := reader.ReadUint32()
			lc.Warnings = append(lc.Warnings, string(reader.ReadBytes(int(warnLen))))
		}

		numClusters := reader.ReadUint32()
		lc.Clusters = make([]Cluster, numClusters)
		for j := uint32(0); j < numClusters; j++ {
			lc.Clusters[j] = Cluster{
				Level:       lc.Level,
				ID:          int(reader.ReadUint32()),
				Centroid:    GeoPoint{Lat: reader.ReadFloat64(), Lon: reader.ReadFloat64()},
				MemberCount: int(reader.ReadUint32()),
			}
		}

		idx.levels[lc.Level] = lc
	}

	return idx, nil
}
