package kinect

import (
	"fmt"
	"image"
	"image/color"
)

// RGBToImage converts a packed 24-bit RGB frame into an RGBA image.
func RGBToImage(rgb []byte, width, height int) (*image.RGBA, error) {
	if len(rgb) != width*height*3 {
		return nil, fmt.Errorf("rgb frame has %d bytes, expected %d for %dx%d", len(rgb), width*height*3, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, rgbToRGBA(rgb))

	return img, nil
}

// DepthToImage paints every pixel closer than maxDepth millimeters with c,
// brighter when closer, and leaves the rest transparent.
func DepthToImage(depth []uint16, width, height int, maxDepth uint16, c color.Color) (*image.RGBA, error) {
	if len(depth) != width*height {
		return nil, fmt.Errorf("depth frame has %d values, expected %d for %dx%d", len(depth), width*height, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, depthToRGBA(depth, maxDepth, c))

	return img, nil
}

func rgbToRGBA(rgb []byte) []byte {
	rgba := make([]byte, 0, (len(rgb)/3)*4)

	for i := 0; i+2 < len(rgb); i += 3 {
		rgba = append(rgba, rgb[i], rgb[i+1], rgb[i+2], 255)
	}

	return rgba
}

func depthToRGBA(depth []uint16, maxDepth uint16, c color.Color) []byte {
	rgbaCol, _ := color.RGBAModel.Convert(c).(color.RGBA)

	rgba := make([]byte, 0, len(depth)*4)
	for _, d := range depth {
		scaled := scaleTo255(d, maxDepth)
		if scaled == 0 || isBlack(rgbaCol) {
			rgba = append(rgba, 0, 0, 0, 0)
			continue
		}
		rgba = append(rgba,
			uint8(uint16(rgbaCol.R)*uint16(scaled)/255),
			uint8(uint16(rgbaCol.G)*uint16(scaled)/255),
			uint8(uint16(rgbaCol.B)*uint16(scaled)/255),
			255,
		)
	}

	return rgba
}

// scaleTo255 maps (0, maxDepth) to (255, 1]; zero (no reading) and anything
// at or beyond maxDepth map to 0.
func scaleTo255(value, maxDepth uint16) uint8 {
	if value == 0 || value >= maxDepth {
		return 0
	}

	scaled := 255 - uint32(value)*255/uint32(maxDepth)
	if scaled == 0 {
		return 1
	}
	return uint8(scaled)
}

func isBlack(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0 && g == 0 && b == 0
}

// HorizontalFlip mirrors img around its vertical axis.
func HorizontalFlip(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	flipped := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			flipped.SetRGBA(bounds.Max.X-1-(x-bounds.Min.X), y, img.RGBAAt(x, y))
		}
	}

	return flipped
}
