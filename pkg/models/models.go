package models

import "image/color"

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the location lies within [-90,90] x [-180,180]
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Record is one occurrence read from a record source.
// Coord is nil when the source had no usable coordinate pair.
type Record struct {
	ID    string    `json:"id"`
	Coord *Location `json:"coord"`
}

// BoundingBox represents a rectangular area defined by two corners.
// The corners may be given in any diagonal order.
type BoundingBox struct {
	First  Location `json:"first" yaml:"first"`
	Second Location `json:"second" yaml:"second"`
}

// PixelPoint is a projected location on a canvas
type PixelPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Style is the visual treatment of one aggregate entry
type Style struct {
	Diameter float64
	Fill     color.RGBA
	Band     string
}
