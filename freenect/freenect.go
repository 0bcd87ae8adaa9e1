// Package freenect implements a Go binding for the libfreenect library.
package freenect

/*
#cgo CFLAGS: -I/opt/homebrew/include
#cgo LDFLAGS: -L/opt/homebrew/lib -lfreenect
#include <stdlib.h>
#include <sys/time.h>
#include <libfreenect/libfreenect.h>

extern void depthCallbackTrampoline(freenect_device *dev, void *depth, uint32_t timestamp);
extern void videoCallbackTrampoline(freenect_device *dev, void *video, uint32_t timestamp);

static int process_events_timeout(freenect_context *ctx, long usec) {
	struct timeval tv;
	tv.tv_sec = usec / 1000000;
	tv.tv_usec = usec % 1000000;
	return freenect_process_events_timeout(ctx, &tv);
}

static void install_depth_callback(freenect_device *dev) {
	freenect_set_depth_callback(dev, depthCallbackTrampoline);
}

static void install_video_callback(freenect_device *dev) {
	freenect_set_video_callback(dev, videoCallbackTrampoline);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrInvalidMode = errors.New("no matching frame mode")

	registryMu sync.RWMutex
	contexts   map[*C.freenect_context]*Context
	devices    map[*C.freenect_device]*Device
)

func init() {

	contexts = make(map[*C.freenect_context]*Context)
	devices = make(map[*C.freenect_device]*Device)
}

type Resolution int

const (
	ResolutionLow    Resolution = C.FREENECT_RESOLUTION_LOW
	ResolutionMedium Resolution = C.FREENECT_RESOLUTION_MEDIUM
	ResolutionHigh   Resolution = C.FREENECT_RESOLUTION_HIGH
)

type VideoFormat int

const (
	VideoFormatRGB   VideoFormat = C.FREENECT_VIDEO_RGB
	VideoFormatBayer VideoFormat = C.FREENECT_VIDEO_BAYER
	VideoFormatIR8   VideoFormat = C.FREENECT_VIDEO_IR_8BIT
)

type DepthFormat int

const (
	DepthFormat11Bit      DepthFormat = C.FREENECT_DEPTH_11BIT
	DepthFormat10Bit      DepthFormat = C.FREENECT_DEPTH_10BIT
	DepthFormatRegistered DepthFormat = C.FREENECT_DEPTH_REGISTERED
	DepthFormatMM         DepthFormat = C.FREENECT_DEPTH_MM
)

type LEDColor int

const (
	LEDColorOff            LEDColor = C.LED_OFF
	LEDColorGreen          LEDColor = C.LED_GREEN
	LEDColorRed            LEDColor = C.LED_RED
	LEDColorYellow         LEDColor = C.LED_YELLOW
	LEDColorBlinkGreen     LEDColor = C.LED_BLINK_GREEN
	LEDColorBlinkRedYellow LEDColor = C.LED_BLINK_RED_YELLOW
)

// FrameMode describes the frames a stream delivers.
type FrameMode struct {
	Width  int
	Height int
	Bytes  int
}

type Context struct {
	ctx *C.freenect_context
}

// NewContext initializes libfreenect with the camera and motor subdevices.
func NewContext() (Context, error) {
	var ctx *C.freenect_context
	if rc := C.freenect_init(&ctx, nil); rc < 0 {
		return Context{}, fmt.Errorf("freenect_init failed with code %d", int(rc))
	}

	C.freenect_select_subdevices(ctx, C.freenect_device_flags(C.FREENECT_DEVICE_MOTOR|C.FREENECT_DEVICE_CAMERA))

	c := Context{ctx: ctx}

	registryMu.Lock()
	contexts[ctx] = &c
	registryMu.Unlock()

	return c, nil
}

// DeviceCount returns the number of Kinect devices plugged in.
func (c *Context) DeviceCount() int {
	return int(C.freenect_num_devices(c.ctx))
}

func (c *Context) OpenDevice(index int) (Device, error) {
	var dev *C.freenect_device
	if rc := C.freenect_open_device(c.ctx, &dev, C.int(index)); rc < 0 {
		return Device{}, fmt.Errorf("could not open device %d: code %d", index, int(rc))
	}

	d := Device{dev: dev, state: &deviceState{}}

	registryMu.Lock()
	devices[dev] = &d
	registryMu.Unlock()

	return d, nil
}

// ProcessEvents handles pending USB events, invoking stream callbacks, and
// returns after at most timeout.
func (c *Context) ProcessEvents(timeout time.Duration) error {
	if rc := C.process_events_timeout(c.ctx, C.long(timeout.Microseconds())); rc < 0 {
		return fmt.Errorf("freenect_process_events_timeout failed with code %d", int(rc))
	}
	return nil
}

func (c *Context) Destroy() error {
	registryMu.Lock()
	delete(contexts, c.ctx)
	registryMu.Unlock()

	if rc := C.freenect_shutdown(c.ctx); rc < 0 {
		return fmt.Errorf("freenect_shutdown failed with code %d", int(rc))
	}
	return nil
}

type DepthCallback func(device *Device, depth []uint16, timestamp uint32)

type VideoCallback func(device *Device, video []byte, timestamp uint32)

type Device struct {
	dev   *C.freenect_device
	state *deviceState
}

type deviceState struct {
	mu sync.RWMutex

	depthCallback DepthCallback
	depthMode     FrameMode

	videoCallback VideoCallback
	videoMode     FrameMode
}

func (d *Device) SetLED(c LEDColor) error {
	if rc := C.freenect_set_led(d.dev, C.freenect_led_options(c)); rc < 0 {
		return fmt.Errorf("freenect_set_led failed with code %d", int(rc))
	}
	return nil
}

func (d *Device) SetDepthCallback(cb DepthCallback) {
	d.state.mu.Lock()
	d.state.depthCallback = cb
	d.state.mu.Unlock()

	C.install_depth_callback(d.dev)
}

func (d *Device) SetVideoCallback(cb VideoCallback) {
	d.state.mu.Lock()
	d.state.videoCallback = cb
	d.state.mu.Unlock()

	C.install_video_callback(d.dev)
}

func (d *Device) StartDepthStream(res Resolution, format DepthFormat) error {
	mode := C.freenect_find_depth_mode(C.freenect_resolution(res), C.freenect_depth_format(format))
	if mode.is_valid == 0 {
		return fmt.Errorf("%w: depth resolution %d format %d", ErrInvalidMode, res, format)
	}

	if rc := C.freenect_set_depth_mode(d.dev, mode); rc < 0 {
		return fmt.Errorf("freenect_set_depth_mode failed with code %d", int(rc))
	}

	d.state.mu.Lock()
	d.state.depthMode = frameMode(mode)
	d.state.mu.Unlock()

	if rc := C.freenect_start_depth(d.dev); rc < 0 {
		return fmt.Errorf("freenect_start_depth failed with code %d", int(rc))
	}
	return nil
}

func (d *Device) StartVideoStream(res Resolution, format VideoFormat) error {
	mode := C.freenect_find_video_mode(C.freenect_resolution(res), C.freenect_video_format(format))
	if mode.is_valid == 0 {
		return fmt.Errorf("%w: video resolution %d format %d", ErrInvalidMode, res, format)
	}

	if rc := C.freenect_set_video_mode(d.dev, mode); rc < 0 {
		return fmt.Errorf("freenect_set_video_mode failed with code %d", int(rc))
	}

	d.state.mu.Lock()
	d.state.videoMode = frameMode(mode)
	d.state.mu.Unlock()

	if rc := C.freenect_start_video(d.dev); rc < 0 {
		return fmt.Errorf("freenect_start_video failed with code %d", int(rc))
	}
	return nil
}

func (d *Device) StopDepthStream() error {
	if rc := C.freenect_stop_depth(d.dev); rc < 0 {
		return fmt.Errorf("freenect_stop_depth failed with code %d", int(rc))
	}
	return nil
}

func (d *Device) StopVideoStream() error {
	if rc := C.freenect_stop_video(d.dev); rc < 0 {
		return fmt.Errorf("freenect_stop_video failed with code %d", int(rc))
	}
	return nil
}

// DepthMode returns the mode of the running depth stream.
func (d *Device) DepthMode() FrameMode {
	d.state.mu.RLock()
	defer d.state.mu.RUnlock()

	return d.state.depthMode
}

// VideoMode returns the mode of the running video stream.
func (d *Device) VideoMode() FrameMode {
	d.state.mu.RLock()
	defer d.state.mu.RUnlock()

	return d.state.videoMode
}

func (d *Device) Destroy() error {
	registryMu.Lock()
	delete(devices, d.dev)
	registryMu.Unlock()

	if rc := C.freenect_close_device(d.dev); rc < 0 {
		return fmt.Errorf("freenect_close_device failed with code %d", int(rc))
	}
	return nil
}

func frameMode(mode C.freenect_frame_mode) FrameMode {
	return FrameMode{
		Width:  int(mode.width),
		Height: int(mode.height),
		Bytes:  int(mode.bytes),
	}
}

func lookupDevice(dev *C.freenect_device) (*Device, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := devices[dev]
	return d, ok
}
