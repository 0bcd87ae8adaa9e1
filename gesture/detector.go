// Package gesture detects hands raised above the gesture threshold and
// publishes the transitions.
package gesture

import (
	"fmt"
	"image"

	"essaim.dev/kinectskel/joints"
	"essaim.dev/kinectskel/skeleton"
)

type Hand string

const (
	Left  Hand = "left"
	Right Hand = "right"
)

// Event reports that a hand crossed the gesture threshold.
type Event struct {
	Hand      Hand   `json:"hand"`
	Raised    bool   `json:"raised"`
	Timestamp uint32 `json:"timestamp"`
}

type hand struct {
	name   Hand
	index  int
	raised bool
}

// Detector tracks whether each hand is above the gesture threshold of the
// skeleton. It is not safe for concurrent use.
type Detector struct {
	joints joints.Map
	level  float64
	hands  []*hand
}

func NewDetector(m joints.Map, level float64) (*Detector, error) {
	d := &Detector{joints: m, level: level}

	for _, h := range []struct {
		name  Hand
		joint string
	}{
		{Left, joints.HandLeft},
		{Right, joints.HandRight},
	} {
		idx, err := m.Index(h.joint)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s hand: %w", h.name, err)
		}
		d.hands = append(d.hands, &hand{name: h.name, index: idx})
	}

	return d, nil
}

// Update feeds a skeleton frame and returns the hands whose state changed.
// A frame without torso or without a hand leaves the affected state as is.
func (d *Detector) Update(pts joints.Points, bounds image.Rectangle, timestamp uint32) []Event {
	th, err := skeleton.ComputeThreshold(d.joints, pts, d.level, bounds)
	if err != nil {
		return nil
	}

	var events []Event
	for _, h := range d.hands {
		_, y, ok := pts.At(h.index)
		if !ok {
			continue
		}

		raised := y < float64(th.Center.Y)
		if raised == h.raised {
			continue
		}

		h.raised = raised
		events = append(events, Event{Hand: h.name, Raised: raised, Timestamp: timestamp})
	}
	return events
}

// Raised reports the current state of a hand.
func (d *Detector) Raised(name Hand) bool {
	for _, h := range d.hands {
		if h.name == name {
			return h.raised
		}
	}
	return false
}
