// Package obstacles converts voxel occupancy frames into the 2D obstacle points the
// planner works with.
package obstacles

import (
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrMalformedFrame denotes an occupancy frame whose keys and log-odds do not line up.
var ErrMalformedFrame = errors.New("occupancy frame keys and logodds differ in length")

// Frame is one occupancy snapshot: a log-odds value per voxel key.
type Frame struct {
	Keys      []uint64
	LogOdds   []int
	Timestamp time.Time
}

// LogOddsNormalizer maps clamped integer log-odds linearly onto [0, 1].
type LogOddsNormalizer struct {
	Min int
	Max int
}

// Normalize returns v rescaled to [0, 1].
func (n LogOddsNormalizer) Normalize(v int) float64 {
	if n.Max <= n.Min {
		return 0
	}
	if v < n.Min {
		v = n.Min
	}
	if v > n.Max {
		v = n.Max
	}
	return float64(v-n.Min) / float64(n.Max-n.Min)
}

// Extractor selects occupied voxels inside the robot's collision height band and projects
// them onto the ground plane.
type Extractor struct {
	Codec      KeyCodec
	Normalizer LogOddsNormalizer
	// Threshold is the normalized occupancy a voxel must exceed to count as an obstacle.
	Threshold float64
	// MinHeight and MaxHeight bound the collision band as [MinHeight, MaxHeight).
	MinHeight float64
	MaxHeight float64
}

// Extract returns the 2D centers of the occupied voxels in frame.
func (e Extractor) Extract(frame Frame) ([]r2.Point, error) {
	if len(frame.Keys) != len(frame.LogOdds) {
		return nil, errors.Wrapf(ErrMalformedFrame, "%d keys, %d logodds", len(frame.Keys), len(frame.LogOdds))
	}

	points := make([]r2.Point, 0, len(frame.Keys))
	for i, key := range frame.Keys {
		if e.Normalizer.Normalize(frame.LogOdds[i]) <= e.Threshold {
			continue
		}
		v := e.Codec.Decode(key)
		if v.Z < e.MinHeight || v.Z >= e.MaxHeight {
			continue
		}
		points = append(points, r2.Point{X: v.X, Y: v.Y})
	}
	return points, nil
}
