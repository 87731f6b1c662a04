// Package aggregate deduplicates occurrence records by identity and counts
// them per fixed-precision coordinate pair.
package aggregate

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/kass/occmap/pkg/models"
)

const (
	keyPrecision = 3
	keySeparator = "|"
)

// Source yields records one at a time and returns io.EOF when exhausted
type Source interface {
	Next() (models.Record, error)
}

// Entry is the number of distinct identities observed at one coordinate key
type Entry struct {
	Key      string
	Location models.Location
	Count    int
}

// Stats counts what happened to every record offered to an Aggregator
type Stats struct {
	Read         int
	Accepted     int
	MissingID    int
	MissingCoord int
	OutOfRange   int
	Duplicate    int
}

// Skipped returns the number of records that did not contribute to a count
func (s Stats) Skipped() int {
	return s.MissingID + s.MissingCoord + s.OutOfRange + s.Duplicate
}

// Aggregator builds an insertion-ordered coordinate -> count mapping.
// It is not safe for concurrent use.
type Aggregator struct {
	seen    map[string]struct{}
	index   map[string]int
	entries []Entry
	stats   Stats
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		seen:  make(map[string]struct{}),
		index: make(map[string]int),
	}
}

// Key formats a coordinate pair with three decimals, e.g. "10.000|20.000",
// and returns the coordinates parsed back from that text.
func Key(lat, lon float64) (string, models.Location) {
	latText := strconv.FormatFloat(lat, 'f', keyPrecision, 64)
	lonText := strconv.FormatFloat(lon, 'f', keyPrecision, 64)

	// Both strings came from FormatFloat, so parsing cannot fail.
	rounded := models.Location{}
	rounded.Lat, _ = strconv.ParseFloat(latText, 64)
	rounded.Lon, _ = strconv.ParseFloat(lonText, 64)

	return latText + keySeparator + lonText, rounded
}

// ParseKey splits a key produced by Key back into coordinates
func ParseKey(key string) (models.Location, error) {
	latText, lonText, ok := strings.Cut(key, keySeparator)
	if !ok {
		return models.Location{}, fmt.Errorf("invalid coordinate key %q", key)
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("invalid latitude in key %q: %w", key, err)
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("invalid longitude in key %q: %w", key, err)
	}
	return models.Location{Lat: lat, Lon: lon}, nil
}

// Add offers one record and reports whether it was counted.
//
// Records without an identity or a usable coordinate are dropped without
// marking their identity as seen. Repeated identities are dropped; the
// first occurrence wins regardless of later coordinates.
func (a *Aggregator) Add(r models.Record) bool {
	a.stats.Read++

	switch {
	case r.ID == "":
		a.stats.MissingID++
		return false
	case r.Coord == nil:
		a.stats.MissingCoord++
		return false
	case !r.Coord.Valid():
		a.stats.OutOfRange++
		log.WithFields(log.Fields{
			"id":  r.ID,
			"lat": r.Coord.Lat,
			"lon": r.Coord.Lon,
		}).Debug("skipping out of range coordinate")
		return false
	}

	if _, dup := a.seen[r.ID]; dup {
		a.stats.Duplicate++
		return false
	}
	a.seen[r.ID] = struct{}{}

	key, loc := Key(r.Coord.Lat, r.Coord.Lon)
	if i, ok := a.index[key]; ok {
		a.entries[i].Count++
	} else {
		a.index[key] = len(a.entries)
		a.entries = append(a.entries, Entry{Key: key, Location: loc, Count: 1})
	}
	a.stats.Accepted++
	return true
}

// Consume reads src until io.EOF, adding every record.
// Any other error from src aborts the run.
func (a *Aggregator) Consume(src Source) error {
	for {
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		a.Add(r)
	}
}

// Entries returns a copy of the aggregate in first-seen key order
func (a *Aggregator) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of distinct coordinate keys
func (a *Aggregator) Len() int {
	return len(a.entries)
}

// Stats returns the record counters collected so far
func (a *Aggregator) Stats() Stats {
	return a.stats
}

// Total returns the sum of all entry counts
func (a *Aggregator) Total() int {
	total := 0
	for _, e := range a.entries {
		total += e.Count
	}
	return total
}
