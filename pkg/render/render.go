// Package render draws an aggregate onto a basemap
package render

import (
	"fmt"
	"image"

	"github.com/apex/log"
	"github.com/kass/occmap/pkg/aggregate"
	"github.com/kass/occmap/pkg/models"
	"github.com/kass/occmap/pkg/projection"
	"github.com/kass/occmap/pkg/raster"
	"github.com/kass/occmap/pkg/rtree"
	"github.com/kass/occmap/pkg/style"
)

// Options controls how entries are drawn
type Options struct {
	SizeFactor float64
	Alpha      uint8
	Order      aggregate.Direction
	// Crop limits the output to a geographic box; nil keeps the whole map
	Crop *models.BoundingBox
	// NoCull draws every circle instead of only those inside the region
	NoCull bool
}

// DefaultOptions returns full-size, opaque, largest-first rendering
func DefaultOptions() Options {
	return Options{SizeFactor: 1, Alpha: 255, Order: aggregate.Descending}
}

// Result is a rendered map and what went into it
type Result struct {
	Image  *image.RGBA
	Region image.Rectangle
	Drawn  int
	Culled int
	// Bands counts entries per style band name
	Bands map[string]int
}

type circle struct {
	center models.PixelPoint
	style  models.Style
}

// Render copies basemap, draws one circle per entry in layering order and
// returns the cropped result. The basemap is never modified.
func Render(basemap image.Image, entries []aggregate.Entry, opts Options) (*Result, error) {
	if opts.SizeFactor < 0 {
		return nil, fmt.Errorf("sizefactor: must be a number greater than or equal to 0, got %v", opts.SizeFactor)
	}
	if opts.Order == "" {
		opts.Order = aggregate.Descending
	}

	canvas := raster.NewCanvas(basemap)
	region := canvas.Bounds()
	if opts.Crop != nil {
		var err error
		region, err = projection.ClampCrop(projection.ResolveCrop(*opts.Crop, canvas.Width(), canvas.Height()), region)
		if err != nil {
			return nil, err
		}
	}

	ordered := aggregate.Order(entries, opts.Order)
	circles := make([]circle, 0, len(ordered))
	index := rtree.NewCircleIndex()
	bands := make(map[string]int, len(style.Bands))

	for _, e := range ordered {
		st, ok := style.Resolve(e.Count, opts.SizeFactor)
		if !ok {
			continue
		}
		bands[st.Band]++
		c := circle{
			center: projection.ProjectLocation(e.Location, canvas.Width(), canvas.Height()),
			style:  st,
		}
		if err := index.Insert(len(circles), raster.CircleBounds(c.center, st.Diameter)); err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", e.Key, err)
		}
		circles = append(circles, c)
	}

	var visible []int
	if opts.NoCull {
		visible = make([]int, len(circles))
		for i := range circles {
			visible[i] = i
		}
	} else {
		var err error
		visible, err = index.Visible(region)
		if err != nil {
			return nil, fmt.Errorf("failed to search circle index: %w", err)
		}
	}

	for _, i := range visible {
		c := circles[i]
		raster.DrawCircle(canvas, c.center, c.style.Diameter, c.style.Fill, style.Outline, opts.Alpha)
	}

	res := &Result{
		Image:  canvas.Crop(region),
		Region: region,
		Drawn:  len(visible),
		Culled: len(circles) - len(visible),
		Bands:  bands,
	}

	log.WithFields(log.Fields{
		"entries": len(entries),
		"drawn":   res.Drawn,
		"culled":  res.Culled,
		"region":  region.String(),
	}).Debug("rendered")

	return res, nil
}
