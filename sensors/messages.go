package sensors

import (
	"encoding/json"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"

	"github.com/viam-modules/viam-localnav/obstacles"
	"github.com/viam-modules/viam-localnav/pursuit"
)

type quatMessage struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
	Jmag float64 `json:"jmag"`
	Kmag float64 `json:"kmag"`
}

type poseMessage struct {
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Theta     *float64     `json:"theta"`
	Quat      *quatMessage `json:"quat"`
	Timestamp float64      `json:"timestamp"`
}

type occupancyMessage struct {
	Keys      []uint64 `json:"keys"`
	LogOdds   []int    `json:"logodds"`
	Timestamp float64  `json:"timestamp"`
}

type twistMessage struct {
	Twist [2]float32 `json:"twist"`
}

// DecodePoseMessage parses a pose datagram. The heading is either given directly as
// theta or as a quaternion whose yaw is taken as theta, so an identity quaternion faces +y.
func DecodePoseMessage(data []byte) (TimedPoseReading, error) {
	var msg poseMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return TimedPoseReading{}, errors.Wrap(err, "error decoding pose message")
	}

	var theta float64
	switch {
	case msg.Theta != nil:
		theta = *msg.Theta
	case msg.Quat != nil:
		pose := spatialmath.NewPose(r3.Vector{X: msg.X, Y: msg.Y},
			&spatialmath.Quaternion{Real: msg.Quat.Real, Imag: msg.Quat.Imag, Jmag: msg.Quat.Jmag, Kmag: msg.Quat.Kmag})
		theta = HeadingFromOrientation(pose.Orientation())
	default:
		return TimedPoseReading{}, errors.Errorf("pose message has neither theta nor quat: %s", string(data))
	}

	return TimedPoseReading{
		Pose:        pursuit.Pose{X: msg.X, Y: msg.Y, Theta: theta},
		ReadingTime: readingTime(msg.Timestamp),
	}, nil
}

// DecodeOccupancyMessage parses an occupancy datagram.
func DecodeOccupancyMessage(data []byte) (obstacles.Frame, error) {
	var msg occupancyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return obstacles.Frame{}, errors.Wrap(err, "error decoding occupancy message")
	}
	if len(msg.Keys) != len(msg.LogOdds) {
		return obstacles.Frame{}, errors.Wrapf(obstacles.ErrMalformedFrame, "%d keys, %d logodds", len(msg.Keys), len(msg.LogOdds))
	}
	return obstacles.Frame{
		Keys:      msg.Keys,
		LogOdds:   msg.LogOdds,
		Timestamp: readingTime(msg.Timestamp),
	}, nil
}

// EncodeTwistMessage renders a twist as a JSON datagram.
func EncodeTwistMessage(twist Twist) ([]byte, error) {
	return json.Marshal(twistMessage{Twist: [2]float32{twist.Linear, twist.Angular}})
}

// readingTime converts fractional unix seconds, falling back to now when unset.
func readingTime(seconds float64) time.Time {
	if seconds <= 0 {
		return time.Now().UTC()
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
