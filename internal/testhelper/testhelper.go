// Package testhelper contains builders for obstacle sets, occupancy frames and scripted
// sensor fakes shared across the localnav tests.
package testhelper

import (
	"context"
	"sync"
	"time"

	"github.com/viam-modules/viam-localnav/grid"
	"github.com/viam-modules/viam-localnav/obstacles"
	"github.com/viam-modules/viam-localnav/pursuit"
	s "github.com/viam-modules/viam-localnav/sensors"
	"github.com/viam-modules/viam-localnav/sensors/inject"
)

const (
	// VoxelSize is the voxel edge length used by test frames.
	VoxelSize = 0.1
	// BandZ is a voxel z index whose center lies inside the default collision band.
	BandZ = 5
	// OccupiedLogOdds is a log-odds value that clears the default occupancy threshold.
	OccupiedLogOdds = 127
)

// Codec is the key codec test frames are encoded with.
var Codec = obstacles.PackedKeyCodec{VoxelSize: VoxelSize}

// Extractor returns an extractor with the default thresholds and Codec.
func Extractor() obstacles.Extractor {
	return obstacles.Extractor{
		Codec:      Codec,
		Normalizer: obstacles.LogOddsNormalizer{Min: -127, Max: 127},
		Threshold:  0.75,
		MinHeight:  0.3,
		MaxHeight:  1.0,
	}
}

// OccupiedFrame returns a frame marking every cell as an occupied voxel inside the
// collision band. Cells are in units of VoxelSize.
func OccupiedFrame(cells ...grid.Cell) obstacles.Frame {
	frame := obstacles.Frame{
		Keys:      make([]uint64, 0, len(cells)),
		LogOdds:   make([]int, 0, len(cells)),
		Timestamp: time.Now().UTC(),
	}
	for _, c := range cells {
		frame.Keys = append(frame.Keys, Codec.Encode(c.X, c.Y, BandZ))
		frame.LogOdds = append(frame.LogOdds, OccupiedLogOdds)
	}
	return frame
}

// Cage returns obstacle cells that leave the origin cell safe for a one-cell footprint
// while making every neighbor of the origin unsafe.
func Cage() []grid.Cell {
	return []grid.Cell{
		{X: 2, Y: 0}, {X: -2, Y: 0}, {X: 0, Y: 2}, {X: 0, Y: -2},
		{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
	}
}

// Script feeds queued inputs to a loop, one per poll, and captures what it sends to the
// drive. An empty queue means no fresh input.
type Script struct {
	mu     sync.Mutex
	poses  []pursuit.Pose
	frames []obstacles.Frame
	keys   []rune
	twists []s.Twist
	seen   bool

	Pose      *inject.TimedPoseSource
	Occupancy *inject.OccupancySource
	Keyboard  *inject.Keyboard
	Drive     *inject.Drive
}

// NewScript returns a Script with empty queues.
func NewScript() *Script {
	sc := &Script{}
	sc.Pose = &inject.TimedPoseSource{
		NameFunc:    func() string { return "pose" },
		HasDataFunc: sc.hasPose,
		LatestPoseFunc: func() (s.TimedPoseReading, bool) {
			sc.mu.Lock()
			defer sc.mu.Unlock()
			if len(sc.poses) == 0 {
				return s.TimedPoseReading{}, false
			}
			next := sc.poses[0]
			sc.poses = sc.poses[1:]
			return s.TimedPoseReading{Pose: next, ReadingTime: time.Now().UTC()}, true
		},
	}
	sc.Occupancy = &inject.OccupancySource{
		NameFunc:    func() string { return "occupancy" },
		HasDataFunc: func() bool { return true },
		LatestOccupancyFunc: func() (obstacles.Frame, bool) {
			sc.mu.Lock()
			defer sc.mu.Unlock()
			if len(sc.frames) == 0 {
				return obstacles.Frame{}, false
			}
			next := sc.frames[0]
			sc.frames = sc.frames[1:]
			return next, true
		},
	}
	sc.Keyboard = &inject.Keyboard{
		ReadKeyFunc: func() (rune, bool) {
			sc.mu.Lock()
			defer sc.mu.Unlock()
			if len(sc.keys) == 0 {
				return 0, false
			}
			key := sc.keys[0]
			sc.keys = sc.keys[1:]
			return key, true
		},
		CloseFunc: func() error { return nil },
	}
	sc.Drive = &inject.Drive{
		NameFunc: func() string { return "drive" },
		WriteTwistFunc: func(ctx context.Context, twist s.Twist) error {
			sc.mu.Lock()
			defer sc.mu.Unlock()
			sc.twists = append(sc.twists, twist)
			return nil
		},
		CloseFunc: func() error { return nil },
	}
	return sc
}

func (sc *Script) hasPose() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.seen || len(sc.poses) > 0
}

// QueuePose queues a pose for the next poll.
func (sc *Script) QueuePose(pose pursuit.Pose) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.seen = true
	sc.poses = append(sc.poses, pose)
}

// QueueFrame queues an occupancy frame for the next poll.
func (sc *Script) QueueFrame(frame obstacles.Frame) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.frames = append(sc.frames, frame)
}

// QueueKeys queues key presses, one per poll.
func (sc *Script) QueueKeys(keys string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.keys = append(sc.keys, []rune(keys)...)
}

// Twists returns every twist written to the drive so far.
func (sc *Script) Twists() []s.Twist {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]s.Twist, len(sc.twists))
	copy(out, sc.twists)
	return out
}

// LastTwist returns the most recent twist written to the drive.
func (sc *Script) LastTwist() (s.Twist, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if len(sc.twists) == 0 {
		return s.Twist{}, false
	}
	return sc.twists[len(sc.twists)-1], true
}
