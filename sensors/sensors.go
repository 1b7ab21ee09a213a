// Package sensors defines the data-bus boundary of the navigator: latest-value pose and
// occupancy sources fed by UDP or rdk movement sensors, the keyboard and the drive
// actuator behind a serial port, UDP or an rdk base.
package sensors

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	"github.com/viam-modules/viam-localnav/obstacles"
	"github.com/viam-modules/viam-localnav/pursuit"
)

// ErrNoData denotes that a source has not delivered any reading yet.
var ErrNoData = errors.New("no data received")

// DataSensor is anything that can report whether it has received data.
type DataSensor interface {
	Name() string
	HasData() bool
}

// TimedPoseReading is a pose along with the time it was produced.
type TimedPoseReading struct {
	Pose        pursuit.Pose
	ReadingTime time.Time
}

// TimedPoseSource provides the most recent pose. LatestPose returns false when no pose
// arrived since the previous call.
type TimedPoseSource interface {
	DataSensor
	LatestPose() (TimedPoseReading, bool)
}

// OccupancySource provides the most recent occupancy frame. LatestOccupancy returns false
// when no frame arrived since the previous call.
type OccupancySource interface {
	DataSensor
	LatestOccupancy() (obstacles.Frame, bool)
}

// Keyboard yields single key presses without blocking.
type Keyboard interface {
	ReadKey() (rune, bool)
	Close() error
}

// Twist is the drive command as sent on the wire.
type Twist struct {
	Linear  float32
	Angular float32
}

// Drive accepts velocity commands.
type Drive interface {
	Name() string
	WriteTwist(ctx context.Context, twist Twist) error
	Close() error
}

// ValidateGetData checks every sensorValidationInterval whether the sensor has
// received data until either it has or sensorValidationMaxTimeout has elapsed.
// Returns an error if no data arrived.
func ValidateGetData(
	ctx context.Context,
	sensor DataSensor,
	sensorValidationMaxTimeout time.Duration,
	sensorValidationInterval time.Duration,
	logger logging.Logger,
) error {
	ctx, span := trace.StartSpan(ctx, "localnav::sensors::ValidateGetData")
	defer span.End()

	startTime := time.Now().UTC()

	for !sensor.HasData() {
		logger.Debugw("ValidateGetData waiting for data", "sensor", sensor.Name())
		if time.Since(startTime) >= sensorValidationMaxTimeout {
			return errors.Wrapf(ErrNoData, "ValidateGetData timeout for %s", sensor.Name())
		}
		if !goutils.SelectContextOrWait(ctx, sensorValidationInterval) {
			return ctx.Err()
		}
	}

	return nil
}
