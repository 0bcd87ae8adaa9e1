package skeleton

import (
	"image"
	"math"

	"essaim.dev/kinectskel/joints"
)

// pixelLimit keeps float to int conversions of far off-screen joints defined.
const pixelLimit = 1 << 20

// Threshold is the horizontal gesture reference line. A hand above Center.Y
// (smaller y) is above the threshold.
type Threshold struct {
	Center     image.Point
	Start, End image.Point
}

// ComputeThreshold returns the gesture threshold of a skeleton, level being
// the fraction of the spine base to neck height above the spine base.
func ComputeThreshold(m joints.Map, pts joints.Points, level float64, bounds image.Rectangle) (Threshold, error) {
	neck, err := m.Index(joints.Neck)
	if err != nil {
		return Threshold{}, err
	}
	base, err := m.Index(joints.SpineBase)
	if err != nil {
		return Threshold{}, err
	}
	return computeThreshold(neck, base, pts, level, bounds)
}

func computeThreshold(neckIdx, baseIdx int, pts joints.Points, level float64, bounds image.Rectangle) (Threshold, error) {
	_, neckY, ok := pts.At(neckIdx)
	if !ok {
		return Threshold{}, ErrTorsoNotDetected
	}
	baseX, baseY, ok := pts.At(baseIdx)
	if !ok {
		return Threshold{}, ErrTorsoNotDetected
	}

	x := truncate(baseX)
	y := truncate(level*(neckY-baseY) + baseY)
	half := truncate(level * (neckY - baseY))

	return Threshold{
		Center: image.Pt(x, y),
		Start:  image.Pt(clamp(x-half, bounds.Min.X, bounds.Max.X-1), y),
		End:    image.Pt(clamp(x+half, bounds.Min.X, bounds.Max.X-1), y),
	}, nil
}

func toPixel(x, y float64) image.Point {
	return image.Pt(truncate(x), truncate(y))
}

func truncate(v float64) int {
	return int(math.Max(-pixelLimit, math.Min(pixelLimit, v)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
