package geo

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// Importer reads a training corpus from a CSV file. LatCol and LonCol are
// zero-based column positions.
type Importer struct {
	LatCol int
	LonCol int
	// SkipHeader drops the first record.
	SkipHeader bool
}

func NewImporter(latCol, lonCol int) *Importer {
	return &Importer{LatCol: latCol, LonCol: lonCol}
}

// Import parses the file into a corpus. Rows with missing columns,
// unparseable numbers, or out-of-range coordinates are skipped and
// counted, not fatal.
func (i *Importer) Import(file string) ([]GeoPoint, int, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var (
		points  []GeoPoint
		skipped int
		r       = csv.NewReader(bufio.NewReader(f))
		first   = true
	)
	r.FieldsPerRecord = -1

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, skipped, err
		}

		if first && i.SkipHeader {
			first = false
			continue
		}
		first = false

		if i.LatCol >= len(record) || i.LonCol >= len(record) {
			skipped++
			continue
		}

		lat, err := strconv.ParseFloat(record[i.LatCol], 64)
		if err != nil {
			skipped++
			continue
		}
		lon, err := strconv.ParseFloat(record[i.LonCol], 64)
		if err != nil {
			skipped++
			continue
		}

		p, err := NewGeoPoint(lat, lon)
		if err != nil {
			skipped++
			continue
		}
		points = append(points, p)
	}

	return points, skipped, nil
}
