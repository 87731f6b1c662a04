// Package raster owns the output canvas and draws translucent circles on it
package raster

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/kass/occmap/pkg/models"
	"golang.org/x/image/draw"
)

// Canvas is a mutable RGBA copy of a basemap anchored at the origin
type Canvas struct {
	img *image.RGBA
}

// NewCanvas copies src into a fresh canvas; src is never modified
func NewCanvas(src image.Image) *Canvas {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return &Canvas{img: img}
}

// Bounds returns the canvas rectangle, always starting at (0, 0)
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Width returns the canvas width in pixels
func (c *Canvas) Width() int { return c.img.Bounds().Dx() }

// Height returns the canvas height in pixels
func (c *Canvas) Height() int { return c.img.Bounds().Dy() }

// Image exposes the underlying pixels for encoding
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Crop copies region r into a new image anchored at the origin
func (c *Canvas) Crop(r image.Rectangle) *image.RGBA {
	r = r.Intersect(c.img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), c.img, r.Min, draw.Src)
	return out
}

// halfWidth rounds half of the diameter to the nearest integer, ties to even
func halfWidth(diameter float64) int {
	return int(math.RoundToEven(diameter / 2))
}

// CircleBounds returns the pixel box covered by a circle of the given
// diameter at center: center +/- round(diameter/2), inclusive of both ends.
// Zero-size circles yield an empty rectangle.
func CircleBounds(center models.PixelPoint, diameter float64) image.Rectangle {
	half := halfWidth(diameter)
	if half <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(center.X-half, center.Y-half, center.X+half+1, center.Y+half+1)
}

// DrawCircle fills a circle with fill and strokes a 1px outline over it,
// both at alpha (0 transparent, 255 opaque), compositing over what is
// already on the canvas. Every pixel is either covered or not, so edges
// are solid. Parts outside the canvas are clipped.
func DrawCircle(c *Canvas, center models.PixelPoint, diameter float64, fill, outline color.RGBA, alpha uint8) {
	box := CircleBounds(center, diameter)
	if box.Empty() || !box.Overlaps(c.img.Bounds()) {
		return
	}

	m := masksFor(box.Dx())
	paint(c.img, box, m.body, withAlpha(fill, alpha))
	paint(c.img, box, m.ring, withAlpha(outline, alpha))
}

func withAlpha(c color.RGBA, alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

func paint(dst *image.RGBA, box image.Rectangle, mask *image.Alpha, c color.NRGBA) {
	if mask == nil || c.A == 0 {
		return
	}
	draw.DrawMask(dst, box, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

type circleMasks struct {
	body *image.Alpha
	ring *image.Alpha
}

// masks by box size; circles of one band all share a size
var maskCache sync.Map

func masksFor(size int) circleMasks {
	if m, ok := maskCache.Load(size); ok {
		return m.(circleMasks)
	}
	radius := float64(size) / 2
	m := circleMasks{
		body: circleMask(size, radius, 0),
		ring: circleMask(size, radius-0.5, 1),
	}
	maskCache.Store(size, m)
	return m
}

// circleMask draws a circle of radius centered in a size x size square,
// filled when lineWidth is 0 and stroked otherwise, and keeps the pixels
// that are at least half covered.
func circleMask(size int, radius, lineWidth float64) *image.Alpha {
	dc := gg.NewContext(size, size)
	dc.SetColor(color.White)
	mid := float64(size) / 2
	dc.DrawCircle(mid, mid, radius)
	if lineWidth > 0 {
		dc.SetLineWidth(lineWidth)
		dc.Stroke()
	} else {
		dc.Fill()
	}
	return threshold(dc.Image())
}

func threshold(img image.Image) *image.Alpha {
	b := img.Bounds()
	mask := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a >= 0x8000 {
				mask.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return mask
}
