// Package skeleton draws stick-figure skeletons and the gesture threshold
// marker over color or depth frames.
package skeleton

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"essaim.dev/kinectskel/joints"
)

const markerRadius = 10

var (
	ErrNoImage          = errors.New("no image to draw on")
	ErrNoPoints         = errors.New("no skeleton points")
	ErrTorsoNotDetected = errors.New("neck or spine base not detected")
)

var (
	ThresholdColor = color.RGBA{255, 0, 50, 255}
	MarkerColor    = color.RGBA{255, 0, 0, 255}
)

type Options struct {
	// UpperBodyOnly skips the leg bones.
	UpperBodyOnly bool
	LineColor     color.RGBA
	Thickness     int

	// DrawThreshold adds the gesture threshold line and marker.
	DrawThreshold bool
	// ThresholdLevel is the threshold height as a fraction of the distance
	// from the spine base up to the neck.
	ThresholdLevel float64
}

func DefaultOptions() Options {
	return Options{
		UpperBodyOnly:  true,
		LineColor:      color.RGBA{255, 255, 255, 255},
		Thickness:      15,
		DrawThreshold:  true,
		ThresholdLevel: 0.2,
	}
}

// Segment is a bone resolved to pixel coordinates.
type Segment struct {
	Bone
	From, To image.Point
}

type Renderer struct {
	opts Options

	upper []resolvedBone
	lower []resolvedBone

	neck, base int
}

// NewRenderer resolves the skeleton topology against the joint map.
func NewRenderer(m joints.Map, opts Options) (*Renderer, error) {
	upper, err := resolve(m, UpperBodyBones())
	if err != nil {
		return nil, fmt.Errorf("could not resolve upper body bones: %w", err)
	}

	lower, err := resolve(m, LowerBodyBones())
	if err != nil {
		return nil, fmt.Errorf("could not resolve lower body bones: %w", err)
	}

	neck, err := m.Index(joints.Neck)
	if err != nil {
		return nil, err
	}
	base, err := m.Index(joints.SpineBase)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		opts:  opts,
		upper: upper,
		lower: lower,
		neck:  neck,
		base:  base,
	}, nil
}

func (r *Renderer) Options() Options {
	return r.opts
}

// Draw renders the skeleton on a copy of img and returns the copy. img is
// left untouched.
//
// Bones with an undetected or missing endpoint are skipped. When the
// threshold overlay is enabled and the neck or spine base is not detected,
// ErrTorsoNotDetected is returned and no image is produced.
func (r *Renderer) Draw(img image.Image, pts joints.Points) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if pts == nil {
		return nil, ErrNoPoints
	}

	out := copyRGBA(img)
	c := newCanvas(out)

	for _, s := range segments(r.upper, pts) {
		c.line(s.From, s.To, r.opts.Thickness, r.opts.LineColor)
	}

	if r.opts.DrawThreshold {
		th, err := computeThreshold(r.neck, r.base, pts, r.opts.ThresholdLevel, out.Bounds())
		if err != nil {
			return nil, err
		}

		c.circle(th.Center, markerRadius, MarkerColor)
		c.line(th.Start, th.End, r.opts.Thickness, ThresholdColor)
	}

	if !r.opts.UpperBodyOnly {
		for _, s := range segments(r.lower, pts) {
			c.line(s.From, s.To, r.opts.Thickness, r.opts.LineColor)
		}
	}

	return out, nil
}

// Plan lists the segments Draw would render for pts.
func (r *Renderer) Plan(pts joints.Points) []Segment {
	s := segments(r.upper, pts)
	if !r.opts.UpperBodyOnly {
		s = append(s, segments(r.lower, pts)...)
	}
	return s
}

// Threshold computes the gesture threshold for pts within bounds.
func (r *Renderer) Threshold(pts joints.Points, bounds image.Rectangle) (Threshold, error) {
	return computeThreshold(r.neck, r.base, pts, r.opts.ThresholdLevel, bounds)
}

func segments(bones []resolvedBone, pts joints.Points) []Segment {
	out := make([]Segment, 0, len(bones))
	for _, b := range bones {
		x0, y0, ok := pts.At(b.from)
		if !ok {
			continue
		}
		x1, y1, ok := pts.At(b.to)
		if !ok {
			continue
		}
		out = append(out, Segment{
			Bone: b.Bone,
			From: toPixel(x0, y0),
			To:   toPixel(x1, y1),
		})
	}
	return out
}

func copyRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}
