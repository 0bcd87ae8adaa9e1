// Package joints holds the Kinect joint-name mapping and the flat skeleton
// point arrays produced by the body tracker.
package joints

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Joint names as they appear in kinect_joint_names.json.
const (
	SpineBase     = "JointType_SpineBase"
	SpineMid      = "JointType_SpineMid"
	Neck          = "JointType_Neck"
	Head          = "JointType_Head"
	ShoulderLeft  = "JointType_ShoulderLeft"
	ElbowLeft     = "JointType_ElbowLeft"
	WristLeft     = "JointType_WristLeft"
	HandLeft      = "JointType_HandLeft"
	ShoulderRight = "JointType_ShoulderRight"
	ElbowRight    = "JointType_ElbowRight"
	WristRight    = "JointType_WristRight"
	HandRight     = "JointType_HandRight"
	HipLeft       = "JointType_HipLeft"
	KneeLeft      = "JointType_KneeLeft"
	AnkleLeft     = "JointType_AnkleLeft"
	FootLeft      = "JointType_FootLeft"
	HipRight      = "JointType_HipRight"
	KneeRight     = "JointType_KneeRight"
	AnkleRight    = "JointType_AnkleRight"
	FootRight     = "JointType_FootRight"
	SpineShoulder = "JointType_SpineShoulder"
	HandTipLeft   = "JointType_HandTipLeft"
	ThumbLeft     = "JointType_ThumbLeft"
	HandTipRight  = "JointType_HandTipRight"
	ThumbRight    = "JointType_ThumbRight"
)

var ErrUnknownJoint = errors.New("unknown joint")

// Map associates a joint name with its index in a Points array. It is loaded
// once at startup and never modified afterwards.
type Map map[string]int

// Load reads a joint-name mapping from a JSON document.
func Load(path string) (Map, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read joint names file: %w", err)
	}

	m := Map{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("could not parse joint names file %s: %w", path, err)
	}

	for name, idx := range m {
		if idx < 0 {
			return nil, fmt.Errorf("joint %s has negative index %d", name, idx)
		}
	}

	return m, nil
}

// Index returns the index of the named joint.
func (m Map) Index(name string) (int, error) {
	idx, ok := m[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJoint, name)
	}
	return idx, nil
}

// Count is the number of joints a Points array needs to cover every entry
// of the map.
func (m Map) Count() int {
	n := 0
	for _, idx := range m {
		if idx+1 > n {
			n = idx + 1
		}
	}
	return n
}

// Points is a flat [x0, y0, x1, y1, ...] array of joint pixel coordinates.
// Undetected joints carry NaN or infinite coordinates.
type Points []float64

// NewPoints returns an array for n joints with every joint undetected.
func NewPoints(n int) Points {
	p := make(Points, 2*n)
	for i := range p {
		p[i] = math.NaN()
	}
	return p
}

// Len is the number of joints held by the array.
func (p Points) Len() int {
	return len(p) / 2
}

// At returns the coordinates of joint i. ok is false if the joint is
// outside the array or was not detected.
func (p Points) At(i int) (x, y float64, ok bool) {
	if i < 0 || 2*i+1 >= len(p) {
		return 0, 0, false
	}

	x, y = p[2*i], p[2*i+1]
	if !finite(x) || !finite(y) {
		return 0, 0, false
	}

	return x, y, true
}

// Set stores the coordinates of joint i. It reports false if i is outside
// the array.
func (p Points) Set(i int, x, y float64) bool {
	if i < 0 || 2*i+1 >= len(p) {
		return false
	}
	p[2*i], p[2*i+1] = x, y
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
