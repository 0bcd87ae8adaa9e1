package replay

import (
	"context"
	"fmt"
	"log/slog"

	"essaim.dev/kinectskel/bodystream"
	"essaim.dev/kinectskel/clock"
	"essaim.dev/kinectskel/recording"
)

// FramePublisher sends skeleton frames, usually a bodystream.Server.
type FramePublisher interface {
	Publish(bodystream.Frame) error
}

// Stream publishes the skeleton frames of a session spaced as they were
// recorded. With loop set it starts over at the end until ctx is canceled.
// It returns the number of published frames.
func Stream(ctx context.Context, tl *recording.Timeline, p FramePublisher, c clock.Clock, loop bool) (int, error) {
	if len(tl.Body) == 0 {
		return 0, fmt.Errorf("session %s has no skeleton frames", tl.Session.ID)
	}

	published := 0
	for {
		for i, f := range tl.Body {
			if err := ctx.Err(); err != nil {
				return published, err
			}

			if i > 0 {
				gap := f.RecordedAt.Sub(tl.Body[i-1].RecordedAt)
				select {
				case <-ctx.Done():
					return published, ctx.Err()
				case <-c.After(gap):
				}
			}

			err := p.Publish(bodystream.Frame{
				Timestamp:  uint32(f.Timestamp),
				TrackingID: f.TrackingID,
				Points:     f.Points,
			})
			if err != nil {
				return published, fmt.Errorf("could not publish frame %d: %w", i, err)
			}
			published++
		}

		if !loop {
			return published, nil
		}
		slog.Debug("session replay finished, starting over", "session", tl.Session.ID, "frames", published)
	}
}
