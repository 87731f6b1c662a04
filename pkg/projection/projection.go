// Package projection maps geographic coordinates onto an equirectangular
// raster and resolves geographic crop boxes into pixel rectangles.
package projection

import (
	"errors"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/kass/occmap/pkg/models"
)

// ErrEmptyCrop is returned when a crop box does not overlap the canvas
var ErrEmptyCrop = errors.New("crop region is empty or outside the basemap")

// Project converts a latitude/longitude pair to pixel coordinates on a
// width x height equirectangular image. Halves round to even.
//
// Inputs outside the valid coordinate ranges are not rejected; their
// result simply falls outside the canvas.
func Project(lat, lon float64, width, height int) models.PixelPoint {
	x := (lon + 180) * (float64(width) / 360)
	y := (-lat + 90) * (float64(height) / 180)
	return models.PixelPoint{
		X: int(math.RoundToEven(x)),
		Y: int(math.RoundToEven(y)),
	}
}

// ProjectLocation is Project for a models.Location
func ProjectLocation(loc models.Location, width, height int) models.PixelPoint {
	return Project(loc.Lat, loc.Lon, width, height)
}

// ResolveCrop projects both corners of box and returns the normalized
// pixel rectangle spanning them: Min holds the smaller x and y.
func ResolveCrop(box models.BoundingBox, width, height int) image.Rectangle {
	p1 := ProjectLocation(box.First, width, height)
	p2 := ProjectLocation(box.Second, width, height)

	r := r2.RectFromPoints(
		r2.Point{X: float64(p1.X), Y: float64(p1.Y)},
		r2.Point{X: float64(p2.X), Y: float64(p2.Y)},
	)
	return image.Rectangle{
		Min: image.Point{X: int(r.X.Lo), Y: int(r.Y.Lo)},
		Max: image.Point{X: int(r.X.Hi), Y: int(r.Y.Hi)},
	}
}

// ClampCrop intersects a resolved crop rectangle with the canvas bounds.
// A zero-area result fails with ErrEmptyCrop.
func ClampCrop(crop, bounds image.Rectangle) (image.Rectangle, error) {
	clamped := crop.Intersect(bounds)
	if clamped.Empty() {
		return image.Rectangle{}, ErrEmptyCrop
	}
	return clamped, nil
}
