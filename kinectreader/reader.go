// Package kinectreader reads color and depth frames from a Kinect through
// libfreenect and skeleton frames from the body stream.
package kinectreader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"essaim.dev/kinectskel/bodystream"
	"essaim.dev/kinectskel/freenect"
	"essaim.dev/kinectskel/joints"
	"essaim.dev/kinectskel/kinect"
)

const eventTimeout = 500 * time.Millisecond

var ErrNotStreaming = errors.New("kinect streams not started")

// BodySource delivers the most recent skeleton frame and how many frames
// were received so far.
type BodySource interface {
	Latest() (bodystream.Frame, uint64)
}

type colorFrame struct {
	pixels    []byte
	timestamp uint32
}

type depthFrame struct {
	values    []uint16
	timestamp uint32
}

type Reader struct {
	fctx   *freenect.Context
	device *freenect.Device
	bodies BodySource
	run    runState

	pendingMu    sync.Mutex
	pendingColor *colorFrame
	pendingDepth *depthFrame
	streaming    bool

	currentMu   sync.RWMutex
	color       *image.RGBA
	colorTS     uint32
	depth       []uint16
	depthTS     uint32
	body        joints.Points
	bodyTS      uint32
	bodyID      uint64
	lastBodySeq uint64
	colorMode   freenect.FrameMode
	depthMode   freenect.FrameMode
}

var (
	_ kinect.SkeletonReader = (*Reader)(nil)
	_ kinect.DepthReader    = (*Reader)(nil)
)

func New(bodies BodySource) (*Reader, error) {
	fctx, err := freenect.NewContext()
	if err != nil {
		return nil, fmt.Errorf("could not create freenect context: %w", err)
	}

	if n := fctx.DeviceCount(); n == 0 {
		fctx.Destroy()
		return nil, fmt.Errorf("no kinect device found")
	}

	device, err := fctx.OpenDevice(0)
	if err != nil {
		fctx.Destroy()
		return nil, fmt.Errorf("could not open kinect device: %w", err)
	}

	if err := device.SetLED(freenect.LEDColorYellow); err != nil {
		slog.Warn("could not set kinect led", "error", err)
	}

	return &Reader{
		fctx:   &fctx,
		device: &device,
		bodies: bodies,
	}, nil
}

// Close releases the device. It waits for Run to return, so the context
// given to Run must be canceled first.
func (r *Reader) Close() error {
	r.run.wait()

	r.device.SetLED(freenect.LEDColorRed)
	r.device.Destroy()
	return r.fctx.Destroy()
}

// Run starts the color and depth streams and processes device events until
// ctx is canceled.
func (r *Reader) Run(ctx context.Context) error {
	if err := r.run.start(); err != nil {
		return err
	}
	defer r.run.stop()

	r.device.SetVideoCallback(r.videoFunc)
	r.device.SetDepthCallback(r.depthFunc)

	if err := r.device.StartVideoStream(freenect.ResolutionMedium, freenect.VideoFormatRGB); err != nil {
		return fmt.Errorf("could not start video stream: %w", err)
	}
	defer r.device.StopVideoStream()

	if err := r.device.StartDepthStream(freenect.ResolutionMedium, freenect.DepthFormatMM); err != nil {
		return fmt.Errorf("could not start depth stream: %w", err)
	}
	defer r.device.StopDepthStream()

	r.currentMu.Lock()
	r.colorMode = r.device.VideoMode()
	r.depthMode = r.device.DepthMode()
	r.currentMu.Unlock()

	r.pendingMu.Lock()
	r.streaming = true
	r.pendingMu.Unlock()

	if err := r.device.SetLED(freenect.LEDColorBlinkGreen); err != nil {
		slog.Warn("could not set kinect led", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := r.fctx.ProcessEvents(eventTimeout); err != nil {
				return fmt.Errorf("could not process events: %w", err)
			}
		}
	}
}

func (r *Reader) videoFunc(device *freenect.Device, video []byte, timestamp uint32) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	r.pendingColor = &colorFrame{pixels: video, timestamp: timestamp}
}

func (r *Reader) depthFunc(device *freenect.Device, depth []uint16, timestamp uint32) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	r.pendingDepth = &depthFrame{values: depth, timestamp: timestamp}
}

// UpdateRGB makes the latest received color frame current.
func (r *Reader) UpdateRGB() (bool, error) {
	r.pendingMu.Lock()
	f, streaming := r.pendingColor, r.streaming
	r.pendingColor = nil
	r.pendingMu.Unlock()

	if !streaming {
		return false, ErrNotStreaming
	}
	if f == nil {
		return false, nil
	}

	r.currentMu.Lock()
	defer r.currentMu.Unlock()

	img, err := kinect.RGBToImage(f.pixels, r.colorMode.Width, r.colorMode.Height)
	if err != nil {
		return false, fmt.Errorf("could not convert color frame: %w", err)
	}

	r.color = img
	r.colorTS = f.timestamp
	return true, nil
}

// UpdateDepth makes the latest received depth frame current.
func (r *Reader) UpdateDepth() (bool, error) {
	r.pendingMu.Lock()
	f, streaming := r.pendingDepth, r.streaming
	r.pendingDepth = nil
	r.pendingMu.Unlock()

	if !streaming {
		return false, ErrNotStreaming
	}
	if f == nil {
		return false, nil
	}

	r.currentMu.Lock()
	defer r.currentMu.Unlock()

	r.depth = f.values
	r.depthTS = f.timestamp
	return true, nil
}

// UpdateBody makes the latest skeleton frame of the body source current.
func (r *Reader) UpdateBody() (bool, error) {
	f, seq := r.bodies.Latest()

	r.currentMu.Lock()
	defer r.currentMu.Unlock()

	if seq == 0 || seq == r.lastBodySeq {
		return false, nil
	}

	r.body = f.Points
	r.bodyTS = f.Timestamp
	r.bodyID = f.TrackingID
	r.lastBodySeq = seq
	return true, nil
}

func (r *Reader) ColorImage() *image.RGBA {
	r.currentMu.RLock()
	defer r.currentMu.RUnlock()

	return r.color
}

func (r *Reader) ColorTimestamp() uint32 {
	r.currentMu.RLock()
	defer r.currentMu.RUnlock()

	return r.colorTS
}

func (r *Reader) Body() (joints.Points, uint32) {
	r.currentMu.RLock()
	defer r.currentMu.RUnlock()

	return r.body, r.bodyTS
}

// TrackingID identifies the body of the current skeleton frame.
func (r *Reader) TrackingID() uint64 {
	r.currentMu.RLock()
	defer r.currentMu.RUnlock()

	return r.bodyID
}

// DepthImage renders the current depth frame as a mask of everything
// closer than maxDepth millimeters.
func (r *Reader) DepthImage(maxDepth uint16, c color.Color) (*image.RGBA, error) {
	r.currentMu.RLock()
	defer r.currentMu.RUnlock()

	if r.depth == nil {
		return nil, nil
	}
	return kinect.DepthToImage(r.depth, r.depthMode.Width, r.depthMode.Height, maxDepth, c)
}
