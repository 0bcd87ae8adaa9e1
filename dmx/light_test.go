package dmx

import (
	"fmt"
	"testing"

	"essaim.dev/kinectskel/gesture"
)

type fakeUniverse struct {
	channels [Channels + 1]byte
	renders  int
}

func (u *fakeUniverse) SetChannel(channel int, value byte) error {
	if channel < 1 || channel > Channels {
		return fmt.Errorf("channel %d out of range", channel)
	}
	u.channels[channel] = value
	return nil
}

func (u *fakeUniverse) Render() error {
	u.renders++
	return nil
}

func TestGestureLight(t *testing.T) {
	u := &fakeUniverse{}
	l := NewGestureLight(u, Fixture{Address: 1}, Fixture{Address: 4})

	for i := range u.channels {
		u.channels[i] = 7
	}
	if err := l.Reset(); err != nil {
		t.Fatalf("Reset() error: %s", err)
	}
	for ch := 1; ch <= 6; ch++ {
		if u.channels[ch] != 0 {
			t.Errorf("channel %d = %d after reset, expected 0", ch, u.channels[ch])
		}
	}

	if err := l.Publish(gesture.Event{Hand: gesture.Right, Raised: true}); err != nil {
		t.Fatalf("Publish() error: %s", err)
	}

	want := [7]byte{7, 0, 0, 0, 255, 0, 50}
	for ch := 1; ch <= 6; ch++ {
		if u.channels[ch] != want[ch] {
			t.Errorf("channel %d = %d, expected %d", ch, u.channels[ch], want[ch])
		}
	}
	if u.renders != 2 {
		t.Errorf("rendered %d times, expected 2", u.renders)
	}

	if err := l.Publish(gesture.Event{Hand: gesture.Right, Raised: false}); err != nil {
		t.Fatalf("Publish() error: %s", err)
	}
	if u.channels[4] != 0 || u.channels[6] != 0 {
		t.Errorf("right fixture still lit: %v", u.channels[4:7])
	}
}

func TestGestureLightOutOfRange(t *testing.T) {
	u := &fakeUniverse{}
	l := NewGestureLight(u, Fixture{Address: 1}, Fixture{Address: Channels - 1})

	if err := l.Publish(gesture.Event{Hand: gesture.Right, Raised: true}); err == nil {
		t.Error("expected an error for a fixture past the last channel")
	}
	if err := l.Publish(gesture.Event{Hand: "both"}); err == nil {
		t.Error("expected an error for an unknown hand")
	}
}
