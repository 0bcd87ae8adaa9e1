// Package viewer shows the live Kinect color stream with the tracked
// skeleton drawn on top.
package viewer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"golang.org/x/image/draw"

	"essaim.dev/kinectskel/gesture"
	"essaim.dev/kinectskel/joints"
	"essaim.dev/kinectskel/kinect"
	"essaim.dev/kinectskel/skeleton"
)

const (
	defaultRefreshRate = time.Second / 30
	depthAlpha         = 128
)

var depthColor = color.RGBA{0, 128, 255, 255}

// Recorder stores the frames shown by the viewer.
type Recorder interface {
	AddColorFrame(timestamp uint32, img image.Image) error
	AddBodyFrame(timestamp uint32, trackingID uint64, pts joints.Points) error
}

type trackingReader interface {
	TrackingID() uint64
}

type Options struct {
	Title string
	// FrameSize is the size of the device color frames.
	FrameSize image.Point
	// Scale is applied to color frames before they are displayed.
	Scale  float64
	Mirror bool

	DepthOverlay bool
	MaxDepth     uint16

	Refresh time.Duration
}

type Viewer struct {
	reader   kinect.SkeletonReader
	renderer *skeleton.Renderer
	opts     Options
	size     image.Point

	recorder  Recorder
	detector  *gesture.Detector
	publisher gesture.Publisher

	frames  uint64
	bodies  uint64
	gesture string

	stopped      chan error
	refreshImage chan *image.RGBA
}

func New(reader kinect.SkeletonReader, renderer *skeleton.Renderer, opts Options) *Viewer {
	if opts.Refresh <= 0 {
		opts.Refresh = defaultRefreshRate
	}
	if opts.Title == "" {
		opts.Title = "kinectskel"
	}

	return &Viewer{
		reader:       reader,
		renderer:     renderer,
		opts:         opts,
		size:         scaledSize(opts.FrameSize, opts.Scale),
		stopped:      make(chan error, 1),
		refreshImage: make(chan *image.RGBA, 1),
	}
}

// Record stores every displayed color frame and every received skeleton
// frame with r.
func (v *Viewer) Record(r Recorder) {
	v.recorder = r
}

// DetectGestures feeds received skeleton frames to d and forwards the
// resulting events to p. p may be nil, events are then only logged.
func (v *Viewer) DetectGestures(d *gesture.Detector, p gesture.Publisher) {
	v.detector = d
	v.publisher = p
}

// Size is the size of the displayed frames.
func (v *Viewer) Size() image.Point {
	return v.size
}

// Run polls the reader until ctx is canceled or the window is closed.
func (v *Viewer) Run(ctx context.Context) error {
	refresh := time.NewTicker(v.opts.Refresh)
	defer refresh.Stop()

	for {
		select {
		case err := <-v.stopped:
			if err != nil {
				return fmt.Errorf("display stopped with error: %w", err)
			}
			return nil

		case <-refresh.C:
			frame := v.Step()
			if frame == nil {
				continue
			}

			// Drop the frame when the display has not picked up the last one.
			select {
			case v.refreshImage <- frame:
			default:
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Step polls every modality once and returns the frame to display, or nil
// when no new color frame is available.
func (v *Viewer) Step() *image.RGBA {
	if v.opts.DepthOverlay {
		if _, err := v.reader.UpdateDepth(); err != nil {
			slog.Warn("could not update depth frame", "error", err)
		}
	}

	bodyUpdated, err := v.reader.UpdateBody()
	if err != nil {
		slog.Warn("could not update body frame", "error", err)
	}
	if bodyUpdated {
		v.handleBody()
	}

	colorUpdated, err := v.reader.UpdateRGB()
	if err != nil {
		slog.Warn("could not update color frame", "error", err)
		return nil
	}
	if !colorUpdated {
		return nil
	}

	img := v.reader.ColorImage()
	if img == nil {
		return nil
	}
	ts := v.reader.ColorTimestamp()
	v.frames++

	if v.recorder != nil {
		if err := v.recorder.AddColorFrame(ts, img); err != nil {
			slog.Warn("could not record color frame", "timestamp", ts, "error", err)
		}
	}

	pts, _ := v.reader.Body()
	return v.compose(img, v.depthMask(), pts, v.hud(ts))
}

func (v *Viewer) handleBody() {
	pts, ts := v.reader.Body()
	v.bodies++

	if v.recorder != nil {
		var id uint64
		if tr, ok := v.reader.(trackingReader); ok {
			id = tr.TrackingID()
		}
		if err := v.recorder.AddBodyFrame(ts, id, pts); err != nil {
			slog.Warn("could not record body frame", "timestamp", ts, "error", err)
		}
	}

	if v.detector == nil {
		return
	}

	bounds := image.Rectangle{Max: v.opts.FrameSize}
	for _, e := range v.detector.Update(pts, bounds, ts) {
		slog.Info("gesture", "hand", e.Hand, "raised", e.Raised, "timestamp", e.Timestamp)
		v.gesture = gestureLabel(v.detector)

		if v.publisher == nil {
			continue
		}
		if err := v.publisher.Publish(e); err != nil {
			slog.Warn("could not publish gesture", "error", err)
		}
	}
}

func (v *Viewer) depthMask() *image.RGBA {
	if !v.opts.DepthOverlay {
		return nil
	}

	dr, ok := v.reader.(kinect.DepthReader)
	if !ok {
		return nil
	}

	mask, err := dr.DepthImage(v.opts.MaxDepth, depthColor)
	if err != nil {
		slog.Warn("could not convert depth frame", "error", err)
		return nil
	}
	return mask
}

// compose blends the depth mask, draws the skeleton and scales the result to
// the display size. img is left untouched.
func (v *Viewer) compose(img, mask *image.RGBA, pts joints.Points, hud string) *image.RGBA {
	frame := img

	if mask != nil && mask.Bounds() == img.Bounds() {
		b := img.Bounds()
		frame = image.NewRGBA(b)
		draw.Draw(frame, b, img, b.Min, draw.Src)
		draw.DrawMask(frame, b, mask, b.Min, image.NewUniform(color.Alpha{A: depthAlpha}), image.Point{}, draw.Over)
	}

	if pts != nil {
		drawn, err := v.renderer.Draw(frame, pts)
		if err != nil {
			slog.Debug("showing frame without skeleton", "reason", err)
		} else {
			frame = drawn
		}
	}

	if v.opts.Mirror {
		frame = kinect.HorizontalFlip(frame)
	}

	scaled := image.NewRGBA(image.Rectangle{Max: v.size})
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	drawHUD(scaled, hud)
	return scaled
}

func (v *Viewer) hud(ts uint32) string {
	s := fmt.Sprintf("ts %d  frames %d  bodies %d", ts, v.frames, v.bodies)
	if v.recorder != nil {
		s += "  REC"
	}
	if v.gesture != "" {
		s += "  " + v.gesture
	}
	return s
}

func gestureLabel(d *gesture.Detector) string {
	switch l, r := d.Raised(gesture.Left), d.Raised(gesture.Right); {
	case l && r:
		return "both hands up"
	case l:
		return "left hand up"
	case r:
		return "right hand up"
	}
	return ""
}

func scaledSize(frame image.Point, scale float64) image.Point {
	if scale <= 0 {
		scale = 1
	}
	return image.Pt(
		max(1, int(float64(frame.X)*scale)),
		max(1, int(float64(frame.Y)*scale)),
	)
}
