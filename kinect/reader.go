// Package kinect defines what the viewer needs from a Kinect device and
// waits for the device streams to come up.
package kinect

import (
	"image"
	"image/color"

	"essaim.dev/kinectskel/joints"
)

// Reader is the capability set of a Kinect device. Each update call advances
// one modality to its next frame and reports whether a frame was available.
type Reader interface {
	UpdateRGB() (bool, error)
	UpdateDepth() (bool, error)
	UpdateBody() (bool, error)

	// ColorImage is the color frame made current by the last successful
	// UpdateRGB.
	ColorImage() *image.RGBA
}

// SkeletonReader also exposes the current body frame and frame timestamps.
type SkeletonReader interface {
	Reader

	ColorTimestamp() uint32
	Body() (joints.Points, uint32)
}

// DepthReader renders the current depth frame as a color mask of everything
// closer than maxDepth millimeters. It returns nil before the first frame.
type DepthReader interface {
	DepthImage(maxDepth uint16, c color.Color) (*image.RGBA, error)
}
