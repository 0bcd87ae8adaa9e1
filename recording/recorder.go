package recording

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"essaim.dev/kinectskel/joints"
)

// Recorder appends frames to one session.
type Recorder struct {
	store   *Store
	session Session

	mu     sync.Mutex
	colors int
	bodies int
}

func (r *Recorder) Session() Session {
	return r.session
}

// AddColorFrame writes img as a PNG file and indexes it under the device
// timestamp.
func (r *Recorder) AddColorFrame(timestamp uint32, img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rel := filepath.Join(r.session.ID, fmt.Sprintf("%08d.png", r.colors))
	if err := writePNG(filepath.Join(r.store.dir, rel), img); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.conn.Exec(`
		INSERT INTO color_frames (session_id, timestamp, recorded_at, path)
		VALUES (?, ?, ?, ?)
	`, r.session.ID, int64(timestamp), r.store.clock.Now().UnixNano(), rel)
	if err != nil {
		return fmt.Errorf("could not insert color frame: %w", err)
	}

	r.colors++
	return nil
}

// AddBodyFrame stores the joint coordinates of one tracked body.
func (r *Recorder) AddBodyFrame(timestamp uint32, trackingID uint64, pts joints.Points) error {
	blob, err := msgpack.Marshal(pts)
	if err != nil {
		return fmt.Errorf("could not encode body frame points: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err = r.store.conn.Exec(`
		INSERT INTO body_frames (session_id, timestamp, recorded_at, tracking_id, points)
		VALUES (?, ?, ?, ?, ?)
	`, r.session.ID, int64(timestamp), r.store.clock.Now().UnixNano(), trackingID, blob)
	if err != nil {
		return fmt.Errorf("could not insert body frame: %w", err)
	}

	r.bodies++
	return nil
}

// Counts returns how many color and body frames were recorded so far.
func (r *Recorder) Counts() (colors, bodies int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.colors, r.bodies
}

// LoadImage decodes the PNG file of a recorded color frame.
func (f ColorFrame) LoadImage() (image.Image, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("could not open color frame: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("could not decode color frame %s: %w", f.Path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create frame file: %w", err)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("could not encode frame %s: %w", path, err)
	}
	return file.Close()
}
