// Package style buckets aggregate counts into the fixed severity scale
package style

import (
	"image/color"

	"github.com/kass/occmap/pkg/models"
)

// Colour definitions
var (
	Purple    = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Red       = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	OrangeRed = color.RGBA{R: 255, G: 50, B: 0, A: 255}
	Orange    = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	Yellow    = color.RGBA{R: 255, G: 255, B: 0, A: 255}

	// Outline is the stroke colour shared by every circle
	Outline = color.RGBA{R: 255, G: 52, B: 52, A: 255}
)

// Band is one row of the count-to-style table
type Band struct {
	Name     string
	MinCount int
	Diameter float64
	Fill     color.RGBA
}

// Bands is ordered from the highest threshold down
var Bands = []Band{
	{Name: "10000+", MinCount: 10000, Diameter: 60, Fill: Purple},
	{Name: "1000+", MinCount: 1000, Diameter: 60, Fill: Red},
	{Name: "100+", MinCount: 100, Diameter: 40, Fill: OrangeRed},
	{Name: "10+", MinCount: 10, Diameter: 24, Fill: Orange},
	{Name: "1+", MinCount: 1, Diameter: 12, Fill: Yellow},
}

// Lookup returns the first band whose threshold is met by count
func Lookup(count int) (Band, bool) {
	for _, b := range Bands {
		if count >= b.MinCount {
			return b, true
		}
	}
	return Band{}, false
}

// Resolve maps a count to its circle diameter and fill colour.
// sizeFactor scales the band diameter; 0 yields invisible circles.
// Counts below 1 have no style.
func Resolve(count int, sizeFactor float64) (models.Style, bool) {
	b, ok := Lookup(count)
	if !ok {
		return models.Style{}, false
	}
	return models.Style{
		Diameter: b.Diameter * sizeFactor,
		Fill:     b.Fill,
		Band:     b.Name,
	}, true
}
