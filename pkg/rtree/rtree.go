// Package rtree indexes circle bounding boxes in pixel space so the renderer
// can skip circles that never touch the output region
package rtree

import (
	"fmt"
	"image"
	"sort"

	"github.com/dhconnelly/rtreego"
)

const (
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialCircle wraps a draw position to implement rtreego.Spatial interface
type spatialCircle struct {
	order int
	box   image.Rectangle
	rect  *rtreego.Rect
}

func (sc *spatialCircle) Bounds() *rtreego.Rect {
	return sc.rect
}

// CircleIndex holds the boxes of circles keyed by their draw position
type CircleIndex struct {
	tree  *rtreego.Rtree
	count int
}

// NewCircleIndex creates an empty index
func NewCircleIndex() *CircleIndex {
	return &CircleIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// toRect converts a half-open pixel rectangle into an rtreego rectangle
func toRect(r image.Rectangle) (*rtreego.Rect, error) {
	bottomLeft := rtreego.Point{float64(r.Min.X), float64(r.Min.Y)}
	size := []float64{float64(r.Dx()), float64(r.Dy())}

	rect, err := rtreego.NewRect(bottomLeft, size)
	if err != nil {
		return nil, fmt.Errorf("invalid box %v: %w", r, err)
	}
	return rect, nil
}

// Insert adds the box of the circle drawn at position order.
// Empty boxes cover no pixels and are ignored.
func (c *CircleIndex) Insert(order int, box image.Rectangle) error {
	if box.Empty() {
		return nil
	}
	rect, err := toRect(box)
	if err != nil {
		return err
	}
	c.tree.Insert(&spatialCircle{order: order, box: box, rect: rect})
	c.count++
	return nil
}

// Visible returns, in ascending draw order, the positions of every circle
// whose box overlaps region. Boxes that only touch the region's edge are
// excluded since rectangles are half-open.
func (c *CircleIndex) Visible(region image.Rectangle) ([]int, error) {
	if region.Empty() || c.count == 0 {
		return nil, nil
	}
	bounds, err := toRect(region)
	if err != nil {
		return nil, err
	}

	results := c.tree.SearchIntersect(bounds)
	orders := make([]int, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialCircle)
		if !ok || !item.box.Overlaps(region) {
			continue
		}
		orders = append(orders, item.order)
	}
	sort.Ints(orders)
	return orders, nil
}

// Count returns the number of indexed circles
func (c *CircleIndex) Count() int {
	return c.count
}
