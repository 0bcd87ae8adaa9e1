// Package timesync matches frames of two streams by timestamp.
//
// Skeleton and color frames come from independent streams running at
// different rates. Sync maps every sample of one stream to the sample of the
// other stream that is nearest in time, in both directions. When several
// samples are equally near, the one with the lowest index wins.
package timesync

import (
	"errors"
)

var ErrEmptySequence = errors.New("cannot map against an empty sequence")

// Timestamp is any numeric timestamp representation.
type Timestamp interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Sync returns, for each element of a, the index of the nearest element of b
// and, for each element of b, the index of the nearest element of a.
//
// Two empty sequences give two empty mappings. If only one of them is empty
// the other one has nothing to map against and ErrEmptySequence is returned.
func Sync[T Timestamp](a, b []T) (aToB, bToA []int, err error) {
	if len(a) == 0 && len(b) == 0 {
		return []int{}, []int{}, nil
	}
	if len(a) == 0 || len(b) == 0 {
		return nil, nil, ErrEmptySequence
	}

	return nearestAll(a, b), nearestAll(b, a), nil
}

// Nearest returns the index of the element of ts nearest to x.
func Nearest[T Timestamp](ts []T, x T) (int, error) {
	if len(ts) == 0 {
		return 0, ErrEmptySequence
	}

	best := 0
	for i := 1; i < len(ts); i++ {
		if distance(ts[i], x) < distance(ts[best], x) {
			best = i
		}
	}
	return best, nil
}

func nearestAll[T Timestamp](from, to []T) []int {
	if isSorted(from) && isSorted(to) {
		return mergeScan(from, to)
	}

	out := make([]int, len(from))
	for i, x := range from {
		out[i], _ = Nearest(to, x)
	}
	return out
}

// mergeScan walks both sorted sequences once. The cursor always rests on the
// first element of a run of equal values so ties keep resolving to the
// lowest index.
func mergeScan[T Timestamp](from, to []T) []int {
	out := make([]int, len(from))

	j := 0
	for i, x := range from {
		for {
			k := j + 1
			for k < len(to) && to[k] == to[j] {
				k++
			}
			if k >= len(to) || distance(to[k], x) >= distance(to[j], x) {
				break
			}
			j = k
		}
		out[i] = j
	}

	return out
}

func distance[T Timestamp](a, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}

func isSorted[T Timestamp](ts []T) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i] < ts[i-1] {
			return false
		}
	}
	return true
}
