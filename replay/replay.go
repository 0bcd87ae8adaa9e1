// Package replay renders the skeleton overlay of a recorded session frame by
// frame.
package replay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"essaim.dev/kinectskel/recording"
	"essaim.dev/kinectskel/skeleton"
	"essaim.dev/kinectskel/timesync"
)

const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.01f%%" "?"}} {{etime . "%s elapsed"}} {{rtime . "%s remain" "%s total" "???"}}`

type Options struct {
	// Workers is the number of frames rendered concurrently. Zero uses one
	// worker per CPU.
	Workers int

	// Start skips the color frames recorded before the one nearest to this
	// device timestamp. Zero renders every frame.
	Start int64

	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
}

// Result counts what happened to the color frames of a session.
type Result struct {
	Frames   int
	Overlaid int
	// Bare frames were written without overlay because the torso was not
	// detected or no skeleton was recorded.
	Bare int
}

type job struct {
	index int
	color recording.ColorFrame
	body  *recording.BodyFrame
}

type outcome struct {
	overlaid bool
	err      error
}

// Render pairs every color frame of the session with the skeleton frame
// recorded closest in time, draws the overlay and writes the result as a numbered
// PNG file into outDir.
func Render(ctx context.Context, tl *recording.Timeline, r *skeleton.Renderer, outDir string, opts Options) (Result, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("could not create output directory: %w", err)
	}

	jobs, err := pair(tl, opts.Start)
	if err != nil {
		return Result{}, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var bar *pb.ProgressBar
	if opts.Progress != nil {
		bar = pb.ProgressBarTemplate(progressTemplate).New(len(jobs)).SetWriter(opts.Progress)
		bar.Set("prefix", tl.Session.ID[:min(8, len(tl.Session.ID))])
		bar.Start()
		defer bar.Finish()
	}

	jobCh := make(chan job)
	outCh := make(chan outcome, len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				overlaid, err := renderFrame(j, r, outDir)
				outCh <- outcome{overlaid: overlaid, err: err}
				if bar != nil {
					bar.Increment()
				}
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case jobCh <- j:
		}
	}
	close(jobCh)
	wg.Wait()
	close(outCh)

	res := Result{}
	var errs []error
	for o := range outCh {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		res.Frames++
		if o.overlaid {
			res.Overlaid++
		} else {
			res.Bare++
		}
	}

	if err := errors.Join(errs...); err != nil {
		return res, err
	}
	return res, ctx.Err()
}

// pair assigns to every color frame from start on the body frame recorded
// closest to it.
func pair(tl *recording.Timeline, start int64) ([]job, error) {
	colorTS := tl.ColorTimestamps()

	first := 0
	if start != 0 && len(colorTS) > 0 {
		idx, err := timesync.Nearest(colorTS, start)
		if err != nil {
			return nil, fmt.Errorf("could not find start frame: %w", err)
		}
		first = idx
	}

	// Device and tracker timestamps come from unrelated clocks, the host
	// clock instants of the recording are comparable.
	colorToBody, _, err := timesync.Sync(tl.ColorRecordedAt(), tl.BodyRecordedAt())
	switch {
	case errors.Is(err, timesync.ErrEmptySequence) && len(tl.Body) == 0:
		slog.Warn("session has no skeleton frames, writing bare frames", "session", tl.Session.ID)
	case errors.Is(err, timesync.ErrEmptySequence):
		slog.Warn("session has no color frames, nothing to render", "session", tl.Session.ID)
	case err != nil:
		return nil, fmt.Errorf("could not sync timestamps: %w", err)
	}

	jobs := make([]job, 0, len(tl.Color)-first)
	for i := first; i < len(tl.Color); i++ {
		j := job{index: i, color: tl.Color[i]}
		if colorToBody != nil {
			j.body = &tl.Body[colorToBody[i]]
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func renderFrame(j job, r *skeleton.Renderer, outDir string) (bool, error) {
	img, err := j.color.LoadImage()
	if err != nil {
		return false, err
	}

	out := image.Image(img)
	overlaid := false
	if j.body != nil {
		drawn, err := r.Draw(img, j.body.Points)
		switch {
		case err == nil:
			out, overlaid = drawn, true
		case errors.Is(err, skeleton.ErrTorsoNotDetected), errors.Is(err, skeleton.ErrNoPoints):
			slog.Debug("writing frame without overlay", "frame", j.index, "reason", err)
		default:
			return false, fmt.Errorf("could not draw frame %d: %w", j.index, err)
		}
	}

	if err := writePNG(filepath.Join(outDir, fmt.Sprintf("%08d.png", j.index)), out); err != nil {
		return false, err
	}
	return overlaid, nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create output frame: %w", err)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("could not encode output frame %s: %w", path, err)
	}
	return file.Close()
}
