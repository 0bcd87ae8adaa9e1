package kinect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"essaim.dev/kinectskel/clock"
)

const DefaultPollInterval = 500 * time.Millisecond

var ErrConnectionTimeout = errors.New("kinect did not connect in time")

type modality struct {
	name   string
	update func() (bool, error)
}

// Gate polls a Reader until its color, depth and body streams have each
// delivered a frame.
type Gate struct {
	PollInterval time.Duration
	Clock        clock.Clock
}

func NewGate() *Gate {
	return &Gate{
		PollInterval: DefaultPollInterval,
		Clock:        clock.NewRealClock(),
	}
}

// WaitForConnection blocks until every modality of r is connected. It fails
// with ErrConnectionTimeout once more than timeout has elapsed.
func WaitForConnection(ctx context.Context, r Reader, timeout time.Duration) error {
	return NewGate().Wait(ctx, r, timeout)
}

// Wait is WaitForConnection with the gate's settings. A zero PollInterval
// or nil Clock uses the defaults.
func (g *Gate) Wait(ctx context.Context, r Reader, timeout time.Duration) error {
	interval := g.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	c := g.Clock
	if c == nil {
		c = clock.NewRealClock()
	}

	modalities := []modality{
		{"rgb", r.UpdateRGB},
		{"depth", r.UpdateDepth},
		{"body", r.UpdateBody},
	}
	connected := make([]bool, len(modalities))

	start := c.Now()
	slog.Info("connecting to kinect", "timeout", timeout)

	for attempt := 1; ; attempt++ {
		if g.poll(attempt, modalities, connected) {
			slog.Info("all kinect modules connected", "attempts", attempt, "elapsed", c.Now().Sub(start))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.After(interval):
		}

		if elapsed := c.Now().Sub(start); elapsed > timeout {
			return fmt.Errorf("%w: waited for more than %s", ErrConnectionTimeout, timeout)
		}
	}
}

// poll refreshes every modality once. Modalities already connected are
// still refreshed so their frames keep flowing. An error aborts the round.
func (g *Gate) poll(attempt int, modalities []modality, connected []bool) bool {
	for idx, m := range modalities {
		ok, err := m.update()
		if err != nil {
			slog.Warn("kinect update failed", "modality", m.name, "attempt", attempt, "error", err)
			return false
		}
		if ok && !connected[idx] {
			slog.Debug("kinect module connected", "modality", m.name, "attempt", attempt)
			connected[idx] = true
		}
	}

	for _, c := range connected {
		if !c {
			return false
		}
	}
	return true
}
