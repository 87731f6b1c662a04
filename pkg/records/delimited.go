package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kass/occmap/pkg/models"
)

var (
	latColumns = []string{"lat", "latitude"}
	lonColumns = []string{"lon", "lng", "longitude"}
)

// DelimitedReader decodes a header row followed by delimited data rows.
// Coordinates come from the coord column ("lat,lon", brackets optional)
// or, when absent, from separate lat and lon columns.
type DelimitedReader struct {
	reader   *csv.Reader
	idCol    int
	coordCol int
	latCol   int
	lonCol   int
	row      int
}

// NewDelimitedReader reads the header row of r and resolves column positions
func NewDelimitedReader(r io.Reader, opts Options) (*DelimitedReader, error) {
	opts = opts.withDefaults()

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("delimited input has no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := columns[name]; !ok {
			columns[name] = i
		}
	}

	d := &DelimitedReader{
		idCol:    lookup(columns, strings.ToLower(opts.IDField)),
		coordCol: lookup(columns, strings.ToLower(opts.CoordField)),
		latCol:   lookup(columns, latColumns...),
		lonCol:   lookup(columns, lonColumns...),
		reader:   reader,
		row:      1,
	}
	if d.idCol < 0 {
		return nil, fmt.Errorf("header has no %q column", opts.IDField)
	}
	if d.coordCol < 0 && (d.latCol < 0 || d.lonCol < 0) {
		return nil, fmt.Errorf("header has neither a %q column nor lat/lon columns", opts.CoordField)
	}
	return d, nil
}

func lookup(columns map[string]int, names ...string) int {
	for _, n := range names {
		if i, ok := columns[n]; ok {
			return i
		}
	}
	return -1
}

// Next returns the next data row as a record
func (d *DelimitedReader) Next() (models.Record, error) {
	fields, err := d.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Record{}, io.EOF
		}
		return models.Record{}, fmt.Errorf("row %d: %w", d.row+1, err)
	}
	d.row++

	rec := models.Record{ID: strings.TrimSpace(field(fields, d.idCol))}
	if d.coordCol >= 0 {
		rec.Coord = ParseCoord(field(fields, d.coordCol))
	} else {
		lat, lon := field(fields, d.latCol), field(fields, d.lonCol)
		if strings.TrimSpace(lat) != "" && strings.TrimSpace(lon) != "" {
			rec.Coord = ParseCoord(lat + "," + lon)
		}
	}
	return rec, nil
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}
