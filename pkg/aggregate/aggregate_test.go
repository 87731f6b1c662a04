package aggregate

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/kass/occmap/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, lat, lon float64) models.Record {
	return models.Record{ID: id, Coord: &models.Location{Lat: lat, Lon: lon}}
}

type sliceSource struct {
	records []models.Record
	err     error
}

func (s *sliceSource) Next() (models.Record, error) {
	if len(s.records) == 0 {
		if s.err != nil {
			return models.Record{}, s.err
		}
		return models.Record{}, io.EOF
	}
	r := s.records[0]
	s.records = s.records[1:]
	return r, nil
}

func TestKey(t *testing.T) {
	key, loc := Key(10.0001, 20.0004)
	assert.Equal(t, "10.000|20.000", key)
	assert.Equal(t, models.Location{Lat: 10, Lon: 20}, loc)

	key, loc = Key(-33.86882, 151.20929)
	assert.Equal(t, "-33.869|151.209", key)
	assert.Equal(t, -33.869, loc.Lat)
	assert.Equal(t, 151.209, loc.Lon)

	parsed, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, loc, parsed)

	_, err = ParseKey("10.000")
	assert.Error(t, err)
	_, err = ParseKey("abc|1.0")
	assert.Error(t, err)
}

func TestAggregateScenario(t *testing.T) {
	agg := NewAggregator()
	agg.Add(rec("A", 10.0001, 20.0001))
	agg.Add(rec("B", 10.0002, 20.0002))
	agg.Add(rec("C", 30, 40))

	entries := agg.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "10.000|20.000", entries[0].Key)
	assert.Equal(t, 2, entries[0].Count)
	assert.Equal(t, "30.000|40.000", entries[1].Key)
	assert.Equal(t, 1, entries[1].Count)

	ordered := Order(entries, Descending)
	assert.Equal(t, 2, ordered[0].Count)
}

func TestAggregateDedupIsIdempotent(t *testing.T) {
	once := NewAggregator()
	once.Add(rec("A", 1, 2))
	once.Add(rec("B", 3, 4))

	twice := NewAggregator()
	twice.Add(rec("A", 1, 2))
	twice.Add(rec("A", 1, 2))
	twice.Add(rec("B", 3, 4))
	twice.Add(rec("B", 3, 4))

	assert.Equal(t, once.Entries(), twice.Entries())
	assert.Equal(t, 2, twice.Stats().Duplicate)
}

func TestAggregateFirstIdentityWins(t *testing.T) {
	agg := NewAggregator()
	assert.True(t, agg.Add(rec("A", 1, 1)))
	assert.False(t, agg.Add(rec("A", 50, 50)))

	entries := agg.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "1.000|1.000", entries[0].Key)
}

func TestAggregateBinning(t *testing.T) {
	agg := NewAggregator()
	agg.Add(rec("A", 12.3451, 45.6781))
	agg.Add(rec("B", 12.3452, 45.6782))
	assert.Equal(t, 1, agg.Len(), "4th decimal differences share a key")

	agg.Add(rec("C", 12.346, 45.678))
	assert.Equal(t, 2, agg.Len(), "3rd decimal differences split keys")
}

func TestAggregateSkipsMalformedRecords(t *testing.T) {
	agg := NewAggregator()
	assert.False(t, agg.Add(models.Record{ID: "A"}))
	assert.False(t, agg.Add(models.Record{Coord: &models.Location{Lat: 1, Lon: 1}}))
	assert.False(t, agg.Add(rec("B", 91, 0)))
	assert.False(t, agg.Add(rec("C", 0, -180.5)))

	// A bad coordinate does not burn the identity
	assert.True(t, agg.Add(rec("A", 5, 5)))

	stats := agg.Stats()
	assert.Equal(t, 5, stats.Read)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.MissingCoord)
	assert.Equal(t, 1, stats.MissingID)
	assert.Equal(t, 2, stats.OutOfRange)
	assert.Equal(t, 4, stats.Skipped())
	assert.LessOrEqual(t, agg.Total(), stats.Read)
}

func TestConsume(t *testing.T) {
	src := &sliceSource{records: []models.Record{
		rec("A", 1, 1),
		rec("B", 1, 1),
		{ID: "C"},
	}}

	agg := NewAggregator()
	require.NoError(t, agg.Consume(src))
	assert.Equal(t, 2, agg.Total())

	failing := &sliceSource{err: assert.AnError}
	err := NewAggregator().Consume(failing)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestEntriesReturnsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Add(rec("A", 1, 1))

	entries := agg.Entries()
	entries[0].Count = 99
	assert.Equal(t, 1, agg.Entries()[0].Count)
}

func TestSaveAndLoad(t *testing.T) {
	agg := NewAggregator()
	agg.Add(rec("A", 1, 1))
	agg.Add(rec("B", 2, 2))
	agg.Add(rec("C", 1, 1))
	agg.Add(rec("C", 1, 1))

	path := filepath.Join(t.TempDir(), "agg.gob")
	require.NoError(t, agg.SaveToFile(path))

	loaded := NewAggregator()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, agg.Entries(), loaded.Entries())
	assert.Equal(t, agg.Stats(), loaded.Stats())

	// Keys stay mergeable after loading
	loaded.Add(rec("D", 2, 2))
	assert.Equal(t, 2, loaded.Entries()[1].Count)
}

func TestLoadMissingFile(t *testing.T) {
	err := NewAggregator().LoadFromFile(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}
