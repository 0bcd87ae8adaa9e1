package dmx

import (
	"fmt"
	"image/color"
	"sync"

	"essaim.dev/kinectskel/gesture"
)

// Universe is a set of DMX channels sent as a whole.
type Universe interface {
	SetChannel(channel int, value byte) error
	Render() error
}

// Fixture is an RGB light occupying three consecutive channels starting at
// Address.
type Fixture struct {
	Address int
}

func (f Fixture) set(u Universe, c color.RGBA) error {
	for i, v := range []byte{c.R, c.G, c.B} {
		if err := u.SetChannel(f.Address+i, v); err != nil {
			return err
		}
	}
	return nil
}

var _ gesture.Publisher = (*GestureLight)(nil)

// GestureLight lights one fixture per hand while the hand is raised.
type GestureLight struct {
	universe Universe
	fixtures map[gesture.Hand]Fixture

	Raised  color.RGBA
	Lowered color.RGBA

	mu sync.Mutex
}

func NewGestureLight(u Universe, left, right Fixture) *GestureLight {
	return &GestureLight{
		universe: u,
		fixtures: map[gesture.Hand]Fixture{
			gesture.Left:  left,
			gesture.Right: right,
		},
		Raised:  color.RGBA{255, 0, 50, 255},
		Lowered: color.RGBA{0, 0, 0, 255},
	}
}

// Reset switches every fixture to the lowered color.
func (l *GestureLight) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for hand, f := range l.fixtures {
		if err := f.set(l.universe, l.Lowered); err != nil {
			return fmt.Errorf("could not reset %s fixture: %w", hand, err)
		}
	}
	return l.universe.Render()
}

func (l *GestureLight) Publish(e gesture.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.fixtures[e.Hand]
	if !ok {
		return fmt.Errorf("no fixture for %s hand", e.Hand)
	}

	c := l.Lowered
	if e.Raised {
		c = l.Raised
	}
	if err := f.set(l.universe, c); err != nil {
		return fmt.Errorf("could not set %s fixture: %w", e.Hand, err)
	}
	return l.universe.Render()
}
