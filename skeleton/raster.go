package skeleton

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

// canvas rasterizes filled shapes onto an RGBA image. Every shape goes
// through its own pass so overlapping shapes never cancel each other out.
// A pass only covers the shape's bounding box, clipped to the image.
type canvas struct {
	dst *image.RGBA
	z   vector.Rasterizer

	// box is the area of the current pass, in canvas coordinates.
	box image.Rectangle
}

func newCanvas(dst *image.RGBA) *canvas {
	return &canvas{dst: dst}
}

// line strokes a segment between two pixel centers with round caps.
func (c *canvas) line(from, to image.Point, thickness int, col color.Color) {
	radius := float64(thickness) / 2
	if radius < 0.5 {
		radius = 0.5
	}

	x0, y0 := c.center(from)
	x1, y1 := c.center(to)

	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length > 0 && c.begin(math.Min(x0, x1)-radius, math.Min(y0, y1)-radius, math.Max(x0, x1)+radius, math.Max(y0, y1)+radius) {
		nx, ny := -dy/length*radius, dx/length*radius

		c.moveTo(x0+nx, y0+ny)
		c.lineTo(x1+nx, y1+ny)
		c.lineTo(x1-nx, y1-ny)
		c.lineTo(x0-nx, y0-ny)
		c.z.ClosePath()
		c.fill(col)
	}

	c.disc(x0, y0, radius, col)
	c.disc(x1, y1, radius, col)
}

// circle fills a disc centered on a pixel.
func (c *canvas) circle(p image.Point, radius int, col color.Color) {
	x, y := c.center(p)
	c.disc(x, y, float64(radius), col)
}

func (c *canvas) disc(cx, cy, r float64, col color.Color) {
	if !c.begin(cx-r, cy-r, cx+r, cy+r) {
		return
	}

	k := kappa * r
	c.moveTo(cx+r, cy)
	c.cubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	c.cubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	c.cubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	c.cubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	c.z.ClosePath()
	c.fill(col)
}

// begin starts a pass over the given extent. It reports false when the
// extent does not overlap the image.
func (c *canvas) begin(minX, minY, maxX, maxY float64) bool {
	size := c.dst.Bounds().Size()
	box := image.Rect(
		truncate(math.Floor(minX)), truncate(math.Floor(minY)),
		truncate(math.Ceil(maxX)), truncate(math.Ceil(maxY)),
	).Intersect(image.Rect(0, 0, size.X, size.Y))
	if box.Empty() {
		return false
	}

	c.box = box
	c.z.Reset(box.Dx(), box.Dy())
	return true
}

func (c *canvas) moveTo(x, y float64) {
	c.z.MoveTo(c.local(x, y))
}

func (c *canvas) lineTo(x, y float64) {
	c.z.LineTo(c.local(x, y))
}

func (c *canvas) cubeTo(bx, by, cx, cy, x, y float64) {
	bx32, by32 := c.local(bx, by)
	cx32, cy32 := c.local(cx, cy)
	x32, y32 := c.local(x, y)
	c.z.CubeTo(bx32, by32, cx32, cy32, x32, y32)
}

// local converts canvas coordinates to the current pass.
func (c *canvas) local(x, y float64) (float32, float32) {
	return float32(x - float64(c.box.Min.X)), float32(y - float64(c.box.Min.Y))
}

func (c *canvas) fill(col color.Color) {
	r := c.box.Add(c.dst.Bounds().Min)
	c.z.Draw(c.dst, r, image.NewUniform(col), image.Point{})
}

// center converts a pixel position to canvas coordinates.
func (c *canvas) center(p image.Point) (float64, float64) {
	origin := c.dst.Bounds().Min
	return float64(p.X-origin.X) + 0.5, float64(p.Y-origin.Y) + 0.5
}
