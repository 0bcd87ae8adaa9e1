package gesture

import (
	"encoding/json"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"essaim.dev/kinectskel/joints"
)

var frame = image.Rect(0, 0, 200, 200)

func testJointMap() joints.Map {
	return joints.Map{
		joints.SpineBase: 0,
		joints.Neck:      1,
		joints.HandLeft:  2,
		joints.HandRight: 3,
	}
}

// pose returns a skeleton whose threshold (level 0.2) lies at y=106.
func pose(leftY, rightY float64) joints.Points {
	pts := joints.NewPoints(4)
	pts.Set(0, 100, 120)
	pts.Set(1, 100, 50)
	pts.Set(2, 60, leftY)
	pts.Set(3, 140, rightY)
	return pts
}

func TestDetector(t *testing.T) {
	d, err := NewDetector(testJointMap(), 0.2)
	if err != nil {
		t.Fatalf("NewDetector() error: %s", err)
	}

	noTorso := pose(20, 20)
	noTorso.Set(1, math.NaN(), math.NaN())

	steps := []struct {
		name   string
		pts    joints.Points
		events []Event
	}{
		{"hands down", pose(150, 150), nil},
		{"left up", pose(80, 150), []Event{{Left, true, 2}}},
		{"left stays up", pose(70, 150), nil},
		{"torso lost", noTorso, nil},
		{"both switch", pose(150, 90), []Event{{Left, false, 5}, {Right, true, 5}}},
		{"right hand lost", pose(150, math.Inf(1)), nil},
		{"right down", pose(150, 110), []Event{{Right, false, 7}}},
	}

	for i, step := range steps {
		got := d.Update(step.pts, frame, uint32(i+1))
		if len(got) != len(step.events) {
			t.Fatalf("%s: Update() = %v, expected %v", step.name, got, step.events)
		}
		for j := range got {
			if got[j] != step.events[j] {
				t.Errorf("%s: event %d = %+v, expected %+v", step.name, j, got[j], step.events[j])
			}
		}
	}

	if d.Raised(Left) || d.Raised(Right) {
		t.Error("hands still reported raised")
	}
}

func TestNewDetectorUnknownJoint(t *testing.T) {
	m := testJointMap()
	delete(m, joints.HandRight)

	if _, err := NewDetector(m, 0.2); !errors.Is(err, joints.ErrUnknownJoint) {
		t.Errorf("expected ErrUnknownJoint, got %v", err)
	}
}

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publication struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mqtt.Client

	err       error
	published []publication
}

func (c *fakeClient) IsConnected() bool { return true }
func (c *fakeClient) Disconnect(uint)   {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, publication{topic, qos, payload.([]byte)})
	return fakeToken{err: c.err}
}

func TestMQTTPublish(t *testing.T) {
	client := &fakeClient{}
	p := NewMQTTPublisher(MQTTOptions{Topic: "kinect/gestures", QoS: 1})

	if err := p.Publish(Event{Left, true, 1}); err == nil {
		t.Error("expected an error before connecting")
	}

	p.client = client
	p.setConnected(true)

	if err := p.Publish(Event{Hand: Right, Raised: true, Timestamp: 42}); err != nil {
		t.Fatalf("Publish() error: %s", err)
	}

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, expected 1", len(client.published))
	}
	msg := client.published[0]
	if msg.topic != "kinect/gestures" || msg.qos != 1 {
		t.Errorf("published to %s qos %d, expected kinect/gestures qos 1", msg.topic, msg.qos)
	}

	var got map[string]any
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %s", err)
	}
	if got["hand"] != "right" || got["raised"] != true || got["timestamp"] != float64(42) {
		t.Errorf("payload = %v", got)
	}

	client.err = errors.New("broker gone")
	if err := p.Publish(Event{Left, false, 2}); err == nil {
		t.Error("expected publish error")
	}

	if published, errs := p.Stats(); published != 1 || errs != 2 {
		t.Errorf("Stats() = %d, %d, expected 1, 2", published, errs)
	}

	p.Disconnect()
	if p.isConnected() {
		t.Error("publisher still connected after Disconnect")
	}
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(e Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestPublishers(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("offline")}
	working := &recordingPublisher{}

	ps := Publishers{failing, working}
	err := ps.Publish(Event{Left, true, 3})
	if !errors.Is(err, failing.err) {
		t.Errorf("expected the failing publisher error, got %v", err)
	}
	if len(working.events) != 1 {
		t.Errorf("working publisher received %d events, expected 1", len(working.events))
	}

	if err := (Publishers{}).Publish(Event{Left, true, 3}); err != nil {
		t.Errorf("empty publishers returned %v", err)
	}
}
