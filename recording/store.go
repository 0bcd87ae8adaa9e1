// Package recording stores Kinect sessions: color frames as PNG files and
// skeleton frames as msgpack blobs, indexed in a sqlite database.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"essaim.dev/kinectskel/clock"
	"essaim.dev/kinectskel/joints"
)

var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	joint_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS color_frames (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL,
	path TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS body_frames (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL,
	tracking_id INTEGER NOT NULL,
	points BLOB NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_color_frames_session ON color_frames(session_id);
CREATE INDEX IF NOT EXISTS idx_body_frames_session ON body_frames(session_id);
`

// Store indexes recorded sessions. Frame images live under dir, one
// directory per session.
type Store struct {
	conn  *sql.DB
	mu    sync.RWMutex
	dir   string
	clock clock.Clock
}

// Open opens or creates the session database at dbPath. Color frames are
// written below frameDir.
func Open(dbPath, frameDir string) (*Store, error) {
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create frame directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return &Store{
		conn:  conn,
		dir:   frameDir,
		clock: clock.NewRealClock(),
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Session describes one recording.
type Session struct {
	ID         string
	StartedAt  time.Time
	JointCount int
}

// CreateSession starts a new recording for skeletons of jointCount joints.
func (s *Store) CreateSession(jointCount int) (*Recorder, error) {
	sess := Session{
		ID:         uuid.NewString(),
		StartedAt:  s.clock.Now(),
		JointCount: jointCount,
	}

	if err := os.MkdirAll(filepath.Join(s.dir, sess.ID), 0o755); err != nil {
		return nil, fmt.Errorf("could not create session directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`INSERT INTO sessions (id, started_at, joint_count) VALUES (?, ?, ?)`,
		sess.ID, sess.StartedAt.UnixNano(), sess.JointCount)
	if err != nil {
		return nil, fmt.Errorf("could not insert session: %w", err)
	}

	return &Recorder{store: s, session: sess}, nil
}

// Sessions lists every recorded session, oldest first.
func (s *Store) Sessions() ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`SELECT id, started_at, joint_count FROM sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("could not query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess    Session
			started int64
		)
		if err := rows.Scan(&sess.ID, &started, &sess.JointCount); err != nil {
			return nil, fmt.Errorf("could not scan session: %w", err)
		}
		sess.StartedAt = time.Unix(0, started)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// LoadSession returns the frames of a session in the order they were
// recorded.
func (s *Store) LoadSession(id string) (*Timeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tl := &Timeline{}

	var started int64
	err := s.conn.QueryRow(`SELECT id, started_at, joint_count FROM sessions WHERE id = ?`, id).
		Scan(&tl.Session.ID, &started, &tl.Session.JointCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("could not get session: %w", err)
	}
	tl.Session.StartedAt = time.Unix(0, started)

	if tl.Color, err = s.colorFrames(id); err != nil {
		return nil, err
	}
	if tl.Body, err = s.bodyFrames(id); err != nil {
		return nil, err
	}
	return tl, nil
}

func (s *Store) colorFrames(id string) ([]ColorFrame, error) {
	rows, err := s.conn.Query(`
		SELECT timestamp, recorded_at, path
		FROM color_frames WHERE session_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("could not query color frames: %w", err)
	}
	defer rows.Close()

	var frames []ColorFrame
	for rows.Next() {
		var (
			f        ColorFrame
			recorded int64
			rel      string
		)
		if err := rows.Scan(&f.Timestamp, &recorded, &rel); err != nil {
			return nil, fmt.Errorf("could not scan color frame: %w", err)
		}
		f.RecordedAt = time.Unix(0, recorded)
		f.Path = filepath.Join(s.dir, rel)
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

func (s *Store) bodyFrames(id string) ([]BodyFrame, error) {
	rows, err := s.conn.Query(`
		SELECT timestamp, recorded_at, tracking_id, points
		FROM body_frames WHERE session_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("could not query body frames: %w", err)
	}
	defer rows.Close()

	var frames []BodyFrame
	for rows.Next() {
		var (
			f        BodyFrame
			recorded int64
			blob     []byte
		)
		if err := rows.Scan(&f.Timestamp, &recorded, &f.TrackingID, &blob); err != nil {
			return nil, fmt.Errorf("could not scan body frame: %w", err)
		}
		if err := msgpack.Unmarshal(blob, &f.Points); err != nil {
			return nil, fmt.Errorf("could not decode body frame points: %w", err)
		}
		f.RecordedAt = time.Unix(0, recorded)
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// ColorFrame references a recorded color image on disk.
type ColorFrame struct {
	Timestamp  int64
	RecordedAt time.Time
	Path       string
}

type BodyFrame struct {
	Timestamp  int64
	RecordedAt time.Time
	TrackingID uint64
	Points     joints.Points
}

// Timeline is a loaded session.
type Timeline struct {
	Session Session
	Color   []ColorFrame
	Body    []BodyFrame
}

func (t *Timeline) ColorTimestamps() []int64 {
	ts := make([]int64, len(t.Color))
	for i, f := range t.Color {
		ts[i] = f.Timestamp
	}
	return ts
}

func (t *Timeline) BodyTimestamps() []int64 {
	ts := make([]int64, len(t.Body))
	for i, f := range t.Body {
		ts[i] = f.Timestamp
	}
	return ts
}

// ColorRecordedAt returns the host clock instants, in nanoseconds, at which
// the color frames were recorded. Unlike the device timestamps they share a
// clock with BodyRecordedAt.
func (t *Timeline) ColorRecordedAt() []int64 {
	at := make([]int64, len(t.Color))
	for i, f := range t.Color {
		at[i] = f.RecordedAt.UnixNano()
	}
	return at
}

func (t *Timeline) BodyRecordedAt() []int64 {
	at := make([]int64, len(t.Body))
	for i, f := range t.Body {
		at[i] = f.RecordedAt.UnixNano()
	}
	return at
}
