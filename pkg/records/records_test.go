package records

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kass/occmap/pkg/aggregate"
	"github.com/kass/occmap/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src Source) []models.Record {
	t.Helper()
	var out []models.Record
	for {
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, r)
	}
}

func TestJSONLines(t *testing.T) {
	input := strings.Join([]string{
		`{"processid": "ABC1", "coord": [10.5, -20.25]}`,
		``,
		`{"processid": "ABC2", "coord": null}`,
		`{"processid": "ABC3"}`,
		`{"processid": "ABC4", "coord": [1, 2, 3]}`,
		`{"processid": "ABC5", "coord": ["1", "2"]}`,
		`{"processid": "ABC6", "coord": [null, 2]}`,
		`{"processid": 7, "coord": [0, 0]}`,
		`{"coord": [3, 4]}`,
		`{"processid": {"b": 1,  "a": 2}, "coord": [5, 6]}`,
	}, "\n")

	src := NewJSONLinesReader(strings.NewReader(input), Options{})
	got := readAll(t, src)
	require.Len(t, got, 9)

	assert.Equal(t, `"ABC1"`, got[0].ID)
	require.NotNil(t, got[0].Coord)
	assert.Equal(t, models.Location{Lat: 10.5, Lon: -20.25}, *got[0].Coord)

	for i := 1; i <= 5; i++ {
		assert.Nil(t, got[i].Coord, "record %d", i)
		assert.NotEmpty(t, got[i].ID, "record %d", i)
	}

	assert.Equal(t, "7", got[6].ID)
	require.NotNil(t, got[6].Coord)

	assert.Empty(t, got[7].ID)
	assert.Equal(t, `{"a":2,"b":1}`, got[8].ID)
	assert.Equal(t, 10, src.Line())
}

func TestJSONLinesIdentityTypesDoNotCollide(t *testing.T) {
	input := `{"processid": "1", "coord": [0, 0]}
{"processid": 1, "coord": [0, 0]}`
	got := readAll(t, NewJSONLinesReader(strings.NewReader(input), Options{}))
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestJSONLinesCustomFields(t *testing.T) {
	input := `{"sampleid": "S1", "loc": [1, 2], "processid": "P1", "coord": [9, 9]}`
	got := readAll(t, NewJSONLinesReader(strings.NewReader(input), Options{
		IDField:    "sampleid",
		CoordField: "loc",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, `"S1"`, got[0].ID)
	assert.Equal(t, models.Location{Lat: 1, Lon: 2}, *got[0].Coord)
}

func TestJSONLinesDecodeError(t *testing.T) {
	input := `{"processid": "A", "coord": [1, 2]}
not json`
	src := NewJSONLinesReader(strings.NewReader(input), Options{})
	_, err := src.Next()
	require.NoError(t, err)

	_, err = src.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDelimitedCoordColumn(t *testing.T) {
	input := "processid\tcoord\tbin\n" +
		"A1\t[10.0001, 20.0001]\tBOLD:1\n" +
		"A2\t\tBOLD:2\n" +
		"A3\t[1, 2, 3]\tBOLD:3\n" +
		"A4\t-5.5,7.25\n"

	src, err := NewDelimitedReader(strings.NewReader(input), Options{Delimiter: '\t'})
	require.NoError(t, err)
	got := readAll(t, src)
	require.Len(t, got, 4)

	assert.Equal(t, "A1", got[0].ID)
	assert.Equal(t, models.Location{Lat: 10.0001, Lon: 20.0001}, *got[0].Coord)
	assert.Nil(t, got[1].Coord)
	assert.Nil(t, got[2].Coord)
	assert.Equal(t, models.Location{Lat: -5.5, Lon: 7.25}, *got[3].Coord)
}

func TestDelimitedLatLonColumns(t *testing.T) {
	input := "ProcessID,Latitude,Longitude\n" +
		"A1,45.5,-73.6\n" +
		"A2,,\n" +
		"A3,abc,1\n"

	src, err := Open(Delimited, strings.NewReader(input), Options{Delimiter: ','})
	require.NoError(t, err)
	got := readAll(t, src)
	require.Len(t, got, 3)

	assert.Equal(t, models.Location{Lat: 45.5, Lon: -73.6}, *got[0].Coord)
	assert.Nil(t, got[1].Coord)
	assert.Nil(t, got[2].Coord)
}

func TestDelimitedHeaderErrors(t *testing.T) {
	_, err := NewDelimitedReader(strings.NewReader(""), Options{})
	assert.Error(t, err)

	_, err = NewDelimitedReader(strings.NewReader("id,coord\n"), Options{})
	assert.ErrorContains(t, err, `"processid"`)

	_, err = NewDelimitedReader(strings.NewReader("processid,lat\n"), Options{})
	assert.Error(t, err)
}

func TestParseCoord(t *testing.T) {
	assert.Equal(t, &models.Location{Lat: 1.5, Lon: -2}, ParseCoord(" [1.5 , -2] "))
	assert.Nil(t, ParseCoord("1.5"))
	assert.Nil(t, ParseCoord("NaN,1"))
	assert.Nil(t, ParseCoord("1,Inf"))
	assert.Nil(t, ParseCoord(""))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONLines, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestJSONLinesIdentityByValue(t *testing.T) {
	input := strings.Join([]string{
		`{"processid": "A", "coord": [10, 20]}`,
		`{"processid": "A", "coord": [10, 20]}`,
		`{"processid": 1, "coord": [1, 1]}`,
		`{"processid": 1.0, "coord": [1, 1]}`,
		`{"processid": 1e0, "coord": [1, 1]}`,
		`{"processid": "1", "coord": [1, 1]}`,
		`{"processid": {"x": 1, "y": 2}, "coord": [5, 5]}`,
		`{"processid": {"y": 2.0, "x": 1}, "coord": [5, 5]}`,
	}, "\n")
	got := readAll(t, NewJSONLinesReader(strings.NewReader(input), Options{}))
	require.Len(t, got, 8)

	assert.Equal(t, got[0].ID, got[1].ID)
	assert.Equal(t, `"A"`, got[1].ID)
	assert.Equal(t, "1", got[2].ID)
	assert.Equal(t, got[2].ID, got[3].ID)
	assert.Equal(t, got[2].ID, got[4].ID)
	assert.NotEqual(t, got[2].ID, got[5].ID)
	assert.Equal(t, got[6].ID, got[7].ID)

	agg := aggregate.NewAggregator()
	for _, r := range got {
		agg.Add(r)
	}
	assert.Equal(t, 4, agg.Total())
	assert.Equal(t, 4, agg.Stats().Duplicate)
}

func TestJSONLinesNumberIdentities(t *testing.T) {
	assert.Equal(t, "0", identity([]byte("-0")))
	assert.Equal(t, "1.5", identity([]byte("15e-1")))
	assert.Equal(t, "9007199254740993", identity([]byte("9007199254740993")))
	assert.Equal(t, "true", identity([]byte("true")))
	assert.Empty(t, identity([]byte("null")))
	assert.Empty(t, identity(nil))
}

func TestDelimitedAndJSONLinesAggregateAlike(t *testing.T) {
	type row struct {
		id       string
		lat, lon string
	}
	rows := []row{
		{"A", "10.0001", "20.0004"},
		{"B", "10", "20"},
		{"A", "30", "40"},
		{"C", "30.0004", "39.9996"},
		{"D", "", ""},
		{"E", "95", "0"},
		{"F", "-45.5", "170.25"},
		{"B", "-45.5", "170.25"},
	}

	var jsonLines, tsv []string
	tsv = append(tsv, "processid\tcoord")
	for _, r := range rows {
		if r.lat == "" {
			jsonLines = append(jsonLines, `{"processid": "`+r.id+`", "coord": null}`)
			tsv = append(tsv, r.id+"\t")
			continue
		}
		jsonLines = append(jsonLines, `{"processid": "`+r.id+`", "coord": [`+r.lat+`, `+r.lon+`]}`)
		tsv = append(tsv, r.id+"\t["+r.lat+", "+r.lon+"]")
	}

	fromJSON := aggregate.NewAggregator()
	require.NoError(t, fromJSON.Consume(NewJSONLinesReader(strings.NewReader(strings.Join(jsonLines, "\n")), Options{})))

	delimited, err := NewDelimitedReader(strings.NewReader(strings.Join(tsv, "\n")), Options{Delimiter: '\t'})
	require.NoError(t, err)
	fromDelimited := aggregate.NewAggregator()
	require.NoError(t, fromDelimited.Consume(delimited))

	assert.Equal(t, fromJSON.Entries(), fromDelimited.Entries())
	assert.Equal(t, fromJSON.Stats(), fromDelimited.Stats())
	assert.Equal(t, 3, fromJSON.Len())
}
