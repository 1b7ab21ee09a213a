// Package inject provides dependency injected structures for mocking interfaces.
package inject

import (
	s "github.com/viam-modules/viam-localnav/sensors"
)

// TimedPoseSource is an injected TimedPoseSource.
type TimedPoseSource struct {
	s.TimedPoseSource
	NameFunc       func() string
	HasDataFunc    func() bool
	LatestPoseFunc func() (s.TimedPoseReading, bool)
}

// Name calls the injected Name or the real version.
func (tps *TimedPoseSource) Name() string {
	if tps.NameFunc == nil {
		return tps.TimedPoseSource.Name()
	}
	return tps.NameFunc()
}

// HasData calls the injected HasData or the real version.
func (tps *TimedPoseSource) HasData() bool {
	if tps.HasDataFunc == nil {
		return tps.TimedPoseSource.HasData()
	}
	return tps.HasDataFunc()
}

// LatestPose calls the injected LatestPose or the real version.
func (tps *TimedPoseSource) LatestPose() (s.TimedPoseReading, bool) {
	if tps.LatestPoseFunc == nil {
		return tps.TimedPoseSource.LatestPose()
	}
	return tps.LatestPoseFunc()
}
