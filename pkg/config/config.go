// Package config holds the render settings read from a YAML file and flags
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kass/occmap/pkg/aggregate"
	"github.com/kass/occmap/pkg/imageio"
	"github.com/kass/occmap/pkg/models"
	"github.com/kass/occmap/pkg/records"
	"github.com/kass/occmap/pkg/render"
	"gopkg.in/yaml.v3"
)

// Config mirrors the command line flags
type Config struct {
	Basemap    string   `yaml:"basemap"`
	Out        string   `yaml:"out"`
	Input      string   `yaml:"input"`
	Aggregate  string   `yaml:"aggregate"`
	SizeFactor float64  `yaml:"sizefactor"`
	Crop       string   `yaml:"crop"`
	Alpha      int      `yaml:"alpha"`
	ImFormat   string   `yaml:"imformat"`
	SortOrder  string   `yaml:"sortorder"`
	Delimiter  string   `yaml:"delimiter"`
	InFormat   string   `yaml:"informat"`
	IDField    string   `yaml:"idfield"`
	CoordField string   `yaml:"coordfield"`
	Postgres   Postgres `yaml:"postgres"`
	Verbose    bool     `yaml:"verbose"`
}

// Postgres selects a PostGIS table as the record source
type Postgres struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// Settings are the validated, typed form of a Config
type Settings struct {
	Render   render.Options
	Format   imageio.Format
	InFormat records.Format
	Records  records.Options
}

// FieldError reports one invalid setting
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Msg
}

// Default returns the settings used when nothing is specified
func Default() Config {
	return Config{
		SizeFactor: 1,
		Alpha:      255,
		ImFormat:   string(imageio.JPEG),
		SortOrder:  string(aggregate.Descending),
		Delimiter:  "comma",
		InFormat:   string(records.JSONLines),
		IDField:    records.DefaultIDField,
		CoordField: records.DefaultCoordField,
		Postgres:   Postgres{Table: "occurrences"},
	}
}

// LoadFile reads YAML from path over the defaults
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Settings validates every field and returns all problems at once
func (c Config) Settings() (Settings, error) {
	var errs []error
	fail := func(field, msg string) {
		errs = append(errs, &FieldError{Field: field, Msg: msg})
	}

	s := Settings{
		Records: records.Options{IDField: c.IDField, CoordField: c.CoordField},
	}

	if c.SizeFactor < 0 || math.IsNaN(c.SizeFactor) || math.IsInf(c.SizeFactor, 0) {
		fail("sizefactor", "must be a number greater than or equal to 0.")
	}
	s.Render.SizeFactor = c.SizeFactor

	if c.Alpha < 0 || c.Alpha > 255 {
		fail("alpha", "Alpha factor must be an integer between 0 and 255.")
	}
	s.Render.Alpha = uint8(c.Alpha)

	if c.Crop != "" {
		box, err := ParseCrop(c.Crop)
		if err != nil {
			fail("crop", err.Error())
		}
		s.Render.Crop = box
	}

	if f, err := imageio.ParseFormat(c.ImFormat); err != nil {
		fail("imformat", "Must be either jpeg, png or gif.")
	} else {
		s.Format = f
	}

	if d, err := aggregate.ParseDirection(c.SortOrder); err != nil {
		fail("sortorder", "Must be either lh or hl")
	} else {
		s.Render.Order = d
	}

	if d, err := ParseDelimiter(c.Delimiter); err != nil {
		fail("delimiter", err.Error())
	} else {
		s.Records.Delimiter = d
	}

	if f, err := records.ParseFormat(c.InFormat); err != nil {
		fail("informat", "Must be either json or delimited.")
	} else {
		s.InFormat = f
	}

	if c.IDField == "" {
		fail("idfield", "must not be empty.")
	}

	return s, errors.Join(errs...)
}

// ParseDelimiter maps "tab" or "comma" to the separator rune
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab":
		return '\t', nil
	case "comma":
		return ',', nil
	}
	return 0, errors.New("Must be either tab or comma.")
}

// ParseCrop reads "[lat1,lon1,lat2,lon2]" into a bounding box
func ParseCrop(s string) (*models.BoundingBox, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, errors.New("Coordinates must be placed between square brackets.")
	}

	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"), ",")
	if len(parts) != 4 {
		return nil, errors.New("You must provide exactly 2 pairs of lattitude and longitude coordinates.")
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) {
			return nil, errors.New("A NAN was provided.")
		}
		v[i] = f
	}

	box := &models.BoundingBox{
		First:  models.Location{Lat: v[0], Lon: v[1]},
		Second: models.Location{Lat: v[2], Lon: v[3]},
	}
	if !latOK(v[0]) || !latOK(v[2]) {
		return nil, errors.New("Lattitude coordinates are not within the valid range.")
	}
	if !lonOK(v[1]) || !lonOK(v[3]) {
		return nil, errors.New("Longitude coordinates are not within the valid range.")
	}
	return box, nil
}

func latOK(v float64) bool { return v >= -90 && v <= 90 }

func lonOK(v float64) bool { return v >= -180 && v <= 180 }
