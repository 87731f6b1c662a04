package records

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/kass/occmap/pkg/models"
)

const maxLineSize = 16 * 1024 * 1024

// JSONLinesReader decodes one JSON object per line
type JSONLinesReader struct {
	scanner *bufio.Scanner
	opts    Options
	line    int
}

// NewJSONLinesReader wraps r; lines may be up to 16 MiB long
func NewJSONLinesReader(r io.Reader, opts Options) *JSONLinesReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONLinesReader{scanner: scanner, opts: opts.withDefaults()}
}

// Next returns the next record. Blank lines are skipped. A line that is not
// a JSON object is a decode error; a bad identity or coord only leaves the
// corresponding Record field empty.
func (j *JSONLinesReader) Next() (models.Record, error) {
	for j.scanner.Scan() {
		j.line++
		line := bytes.TrimSpace(j.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(line, &obj); err != nil {
			return models.Record{}, fmt.Errorf("line %d: %w", j.line, err)
		}
		return models.Record{
			ID:    identity(obj[j.opts.IDField]),
			Coord: coord(obj[j.opts.CoordField]),
		}, nil
	}
	if err := j.scanner.Err(); err != nil {
		return models.Record{}, fmt.Errorf("line %d: %w", j.line+1, err)
	}
	return models.Record{}, io.EOF
}

// Line returns the number of the last line read
func (j *JSONLinesReader) Line() int {
	return j.line
}

// identity returns a canonical text for the decoded value so that equal
// values match however they were written: "\u0041" is "A", 1.0 is 1.
// Strings are quoted, so the string "1" and the number 1 stay distinct.
// Missing and null are empty.
func identity(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strconv.Quote(t)
	case json.Number:
		return canonicalNumber(t)
	case bool:
		return strconv.FormatBool(t)
	}

	// Objects and arrays: decode numbers as floats and re-encode with
	// sorted keys
	var plain interface{}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return ""
	}
	out, err := json.Marshal(plain)
	if err != nil {
		return ""
	}
	return string(out)
}

func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func coord(raw json.RawMessage) *models.Location {
	if len(raw) == 0 {
		return nil
	}
	var vals []json.RawMessage
	if err := json.Unmarshal(raw, &vals); err != nil || len(vals) != 2 {
		return nil
	}

	var pair [2]float64
	for i, v := range vals {
		v = bytes.TrimSpace(v)
		if !isNumber(v) {
			return nil
		}
		if err := json.Unmarshal(v, &pair[i]); err != nil {
			return nil
		}
	}
	return &models.Location{Lat: pair[0], Lon: pair[1]}
}

func isNumber(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}
