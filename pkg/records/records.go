// Package records decodes occurrence record streams into models.Record values
package records

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kass/occmap/pkg/models"
)

const (
	DefaultIDField    = "processid"
	DefaultCoordField = "coord"
)

// Format selects the record stream decoder
type Format string

const (
	JSONLines Format = "json"
	Delimited Format = "delimited"
)

// ParseFormat accepts "json" or "delimited" in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSONLines, Delimited:
		return f, nil
	}
	return "", fmt.Errorf("informat: must be either json or delimited, got %q", s)
}

// Source yields records until io.EOF
type Source interface {
	Next() (models.Record, error)
}

// Options names the fields read from every record
type Options struct {
	IDField    string
	CoordField string
	// Delimiter separates columns in delimited streams
	Delimiter rune
}

func (o Options) withDefaults() Options {
	if o.IDField == "" {
		o.IDField = DefaultIDField
	}
	if o.CoordField == "" {
		o.CoordField = DefaultCoordField
	}
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	return o
}

// Open returns a decoder for the given stream format
func Open(format Format, r io.Reader, opts Options) (Source, error) {
	switch format {
	case JSONLines:
		return NewJSONLinesReader(r, opts), nil
	case Delimited:
		return NewDelimitedReader(r, opts)
	}
	return nil, fmt.Errorf("unsupported record format %q", format)
}

// ParseCoord reads "lat,lon" with optional surrounding brackets and spaces.
// It returns nil unless the text holds exactly two finite numbers.
func ParseCoord(s string) *models.Location {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil
	}

	var vals [2]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		vals[i] = v
	}
	return &models.Location{Lat: vals[0], Lon: vals[1]}
}
