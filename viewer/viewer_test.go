package viewer

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"golang.org/x/mobile/event/key"

	"essaim.dev/kinectskel/gesture"
	"essaim.dev/kinectskel/joints"
	"essaim.dev/kinectskel/skeleton"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

type fakeReader struct {
	color      *image.RGBA
	colorTS    uint32
	colorReady bool
	colorErr   error

	body      joints.Points
	bodyTS    uint32
	bodyReady bool

	depth      *image.RGBA
	depthCalls int
	trackingID uint64
}

func (r *fakeReader) UpdateRGB() (bool, error)      { return r.colorReady, r.colorErr }
func (r *fakeReader) UpdateBody() (bool, error)     { return r.bodyReady, nil }
func (r *fakeReader) ColorImage() *image.RGBA       { return r.color }
func (r *fakeReader) ColorTimestamp() uint32        { return r.colorTS }
func (r *fakeReader) Body() (joints.Points, uint32) { return r.body, r.bodyTS }
func (r *fakeReader) TrackingID() uint64            { return r.trackingID }

func (r *fakeReader) UpdateDepth() (bool, error) {
	r.depthCalls++
	return r.depth != nil, nil
}

func (r *fakeReader) DepthImage(uint16, color.Color) (*image.RGBA, error) {
	return r.depth, nil
}

type fakeRecorder struct {
	colors []uint32
	bodies []uint64
}

func (r *fakeRecorder) AddColorFrame(ts uint32, img image.Image) error {
	r.colors = append(r.colors, ts)
	return nil
}

func (r *fakeRecorder) AddBodyFrame(ts uint32, id uint64, pts joints.Points) error {
	r.bodies = append(r.bodies, id)
	return nil
}

type fakePublisher struct {
	events []gesture.Event
}

func (p *fakePublisher) Publish(e gesture.Event) error {
	p.events = append(p.events, e)
	return nil
}

func testJointMap() joints.Map {
	return joints.Map{
		joints.SpineBase:     0,
		joints.SpineMid:      1,
		joints.Neck:          2,
		joints.Head:          3,
		joints.ShoulderLeft:  4,
		joints.ElbowLeft:     5,
		joints.WristLeft:     6,
		joints.HandLeft:      7,
		joints.ShoulderRight: 8,
		joints.ElbowRight:    9,
		joints.WristRight:    10,
		joints.HandRight:     11,
		joints.HipLeft:       12,
		joints.KneeLeft:      13,
		joints.AnkleLeft:     14,
		joints.FootLeft:      15,
		joints.HipRight:      16,
		joints.KneeRight:     17,
		joints.AnkleRight:    18,
		joints.FootRight:     19,
		joints.SpineShoulder: 20,
	}
}

// torso places the spine in the middle of a 200x200 frame, threshold at y=106.
func torso(m joints.Map) joints.Points {
	pts := joints.NewPoints(m.Count())
	pts.Set(m[joints.SpineBase], 100, 120)
	pts.Set(m[joints.SpineMid], 100, 90)
	pts.Set(m[joints.SpineShoulder], 100, 60)
	pts.Set(m[joints.Neck], 100, 50)
	pts.Set(m[joints.Head], 100, 30)
	pts.Set(m[joints.HandLeft], 40, 150)
	pts.Set(m[joints.HandRight], 160, 150)
	return pts
}

func blackFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)
	return img
}

func newTestViewer(t *testing.T, r *fakeReader, opts Options) *Viewer {
	t.Helper()

	ropts := skeleton.DefaultOptions()
	ropts.Thickness = 8
	renderer, err := skeleton.NewRenderer(testJointMap(), ropts)
	if err != nil {
		t.Fatalf("NewRenderer() error: %s", err)
	}

	opts.FrameSize = image.Pt(200, 200)
	if opts.Scale == 0 {
		opts.Scale = 0.5
	}
	return New(r, renderer, opts)
}

func near(a, b color.Color, tolerance float64) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	d := func(x, y uint32) bool {
		return math.Abs(float64(x>>8)-float64(y>>8)) <= tolerance
	}
	return d(ar, br) && d(ag, bg) && d(ab, bb)
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		frame image.Point
		scale float64
		want  image.Point
	}{
		{image.Pt(640, 480), 0.5, image.Pt(320, 240)},
		{image.Pt(640, 480), 1, image.Pt(640, 480)},
		{image.Pt(640, 480), 0, image.Pt(640, 480)},
		{image.Pt(3, 3), 0.1, image.Pt(1, 1)},
	}

	for _, tt := range tests {
		if got := scaledSize(tt.frame, tt.scale); got != tt.want {
			t.Errorf("scaledSize(%v, %v) = %v, expected %v", tt.frame, tt.scale, got, tt.want)
		}
	}
}

func TestStepWithoutColorFrame(t *testing.T) {
	r := &fakeReader{color: blackFrame()}
	v := newTestViewer(t, r, Options{})

	if frame := v.Step(); frame != nil {
		t.Error("expected no frame when no color frame is available")
	}

	r.colorReady, r.colorErr = true, errors.New("usb hiccup")
	if frame := v.Step(); frame != nil {
		t.Error("expected no frame when the color update fails")
	}
}

func TestStepOverlaysSkeleton(t *testing.T) {
	src := blackFrame()
	r := &fakeReader{color: src, colorReady: true, body: torso(testJointMap())}
	v := newTestViewer(t, r, Options{})

	frame := v.Step()
	if frame == nil {
		t.Fatal("expected a frame")
	}

	if frame.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Errorf("frame bounds = %v, expected 100x100", frame.Bounds())
	}
	// Spine between spine shoulder and spine mid, scaled by 0.5.
	if got := frame.At(50, 37); !near(got, color.White, 40) {
		t.Errorf("spine pixel = %v, expected white", got)
	}
	if got := frame.At(80, 80); !near(got, black, 0) {
		t.Errorf("background pixel = %v, expected black", got)
	}
	if !near(src.At(100, 105), black, 0) {
		t.Error("reader color frame was modified")
	}
}

func TestStepRendererErrorLeavesFrameBare(t *testing.T) {
	m := testJointMap()
	pts := torso(m)
	pts.Set(m[joints.Neck], math.NaN(), math.NaN())

	r := &fakeReader{color: blackFrame(), colorReady: true, body: pts}
	v := newTestViewer(t, r, Options{})

	frame := v.Step()
	if frame == nil {
		t.Fatal("expected a bare frame")
	}
	if got := frame.At(50, 37); !near(got, black, 0) {
		t.Errorf("spine pixel = %v, expected a bare frame", got)
	}
}

func TestStepMirror(t *testing.T) {
	src := blackFrame()
	draw.Draw(src, image.Rect(10, 100, 30, 120), image.NewUniform(red), image.Point{}, draw.Src)

	tests := []struct {
		mirror bool
		redAt  image.Point
		dark   image.Point
	}{
		{false, image.Pt(10, 55), image.Pt(90, 55)},
		{true, image.Pt(90, 55), image.Pt(10, 55)},
	}

	for _, tt := range tests {
		r := &fakeReader{color: src, colorReady: true}
		v := newTestViewer(t, r, Options{Mirror: tt.mirror})

		frame := v.Step()
		if got := frame.At(tt.redAt.X, tt.redAt.Y); !near(got, red, 2) {
			t.Errorf("mirror=%v: pixel %v = %v, expected red", tt.mirror, tt.redAt, got)
		}
		if got := frame.At(tt.dark.X, tt.dark.Y); !near(got, black, 0) {
			t.Errorf("mirror=%v: pixel %v = %v, expected black", tt.mirror, tt.dark, got)
		}
	}
}

func TestStepDepthOverlay(t *testing.T) {
	depth := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(depth, image.Rect(140, 140, 180, 180), image.NewUniform(depthColor), image.Point{}, draw.Src)

	r := &fakeReader{color: blackFrame(), colorReady: true, depth: depth}

	v := newTestViewer(t, r, Options{})
	v.Step()
	if r.depthCalls != 0 {
		t.Errorf("depth polled %d times without overlay", r.depthCalls)
	}

	v = newTestViewer(t, r, Options{DepthOverlay: true, MaxDepth: 1500})
	frame := v.Step()
	if r.depthCalls != 1 {
		t.Errorf("depth polled %d times, expected 1", r.depthCalls)
	}

	want := color.RGBA{0, 64, 128, 255}
	if got := frame.At(80, 80); !near(got, want, 3) {
		t.Errorf("depth pixel = %v, expected %v", got, want)
	}
	if got := frame.At(30, 80); !near(got, black, 0) {
		t.Errorf("far pixel = %v, expected black", got)
	}
}

func TestStepRecordsAndDetectsGestures(t *testing.T) {
	m := testJointMap()
	r := &fakeReader{
		color:      blackFrame(),
		colorTS:    1000,
		body:       torso(m),
		bodyTS:     990,
		bodyReady:  true,
		trackingID: 3,
	}
	v := newTestViewer(t, r, Options{})

	rec := &fakeRecorder{}
	v.Record(rec)

	d, err := gesture.NewDetector(m, 0.2)
	if err != nil {
		t.Fatalf("NewDetector() error: %s", err)
	}
	pub := &fakePublisher{}
	v.DetectGestures(d, pub)

	// Hands down, no color frame yet.
	v.Step()

	r.body = torso(m)
	r.body.Set(m[joints.HandRight], 160, 40)
	r.bodyTS = 1020
	r.colorReady = true
	if v.Step() == nil {
		t.Fatal("expected a frame")
	}

	if len(rec.colors) != 1 || rec.colors[0] != 1000 {
		t.Errorf("recorded color frames %v, expected [1000]", rec.colors)
	}
	if len(rec.bodies) != 2 || rec.bodies[1] != 3 {
		t.Errorf("recorded body tracking ids %v, expected [3 3]", rec.bodies)
	}

	want := gesture.Event{Hand: gesture.Right, Raised: true, Timestamp: 1020}
	if len(pub.events) != 1 || pub.events[0] != want {
		t.Errorf("published %v, expected [%+v]", pub.events, want)
	}

	if hud := v.hud(1000); hud != "ts 1000  frames 1  bodies 2  REC  right hand up" {
		t.Errorf("hud = %q", hud)
	}
}

func TestDrawHUD(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 20))
	drawHUD(img, "ts 1")

	lit := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if near(img.At(x, y), hudColor, 0) {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("hud text not drawn")
	}
}

func TestIsQuitKey(t *testing.T) {
	tests := []struct {
		name string
		e    key.Event
		want bool
	}{
		{"q", key.Event{Rune: 'q', Code: key.CodeQ, Direction: key.DirPress}, true},
		{"escape", key.Event{Rune: -1, Code: key.CodeEscape, Direction: key.DirPress}, true},
		{"q release", key.Event{Rune: 'q', Code: key.CodeQ, Direction: key.DirRelease}, false},
		{"other", key.Event{Rune: 'a', Code: key.CodeA, Direction: key.DirPress}, false},
	}

	for _, tt := range tests {
		if got := isQuitKey(tt.e); got != tt.want {
			t.Errorf("%s: isQuitKey() = %v, expected %v", tt.name, got, tt.want)
		}
	}
}
