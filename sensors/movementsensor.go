package sensors

import (
	"context"
	"math"
	"sync"
	"time"

	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/components/movementsensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"
	rdkutils "go.viam.com/rdk/utils"
	"go.viam.com/rdk/utils/contextutils"
	goutils "go.viam.com/utils"

	"github.com/viam-modules/viam-localnav/pursuit"
)

// PoseFrame names how a movement sensor's position maps onto the planning plane.
type PoseFrame string

const (
	// PoseFrameLocal reads the position as local meters, longitude as x and latitude as y,
	// and the heading from the sensor orientation.
	PoseFrameLocal PoseFrame = "local"
	// PoseFrameGPS projects fixes onto an east/north plane centered on the first fix and
	// reads the heading from the compass.
	PoseFrameGPS PoseFrame = "gps"
)

const (
	metersPerKilometer     = 1000
	replayTimestampErrText = "replay sensor timestamp parse RFC3339Nano error"
)

// ErrMovementSensorUnsupported denotes a movement sensor that cannot report a planar pose.
var ErrMovementSensorUnsupported = errors.New("movement sensor must support Position and either Orientation or CompassHeading")

// MovementSensorPoseSource polls an rdk movement sensor and keeps the most recent pose.
type MovementSensorPoseSource struct {
	name   string
	sensor movementsensor.MovementSensor
	frame  PoseFrame
	logger logging.Logger

	mu     sync.Mutex
	origin *geo.Point

	latest                  Latest[TimedPoseReading]
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewMovementSensorPoseSource checks that sensor can report a planar pose in frame and
// starts polling it pollRateHz times a second until Close.
func NewMovementSensorPoseSource(
	ctx context.Context,
	name string,
	sensor movementsensor.MovementSensor,
	frame PoseFrame,
	pollRateHz float64,
	logger logging.Logger,
) (*MovementSensorPoseSource, error) {
	ctx, span := trace.StartSpan(ctx, "localnav::sensors::NewMovementSensorPoseSource")
	defer span.End()

	if frame == "" {
		frame = PoseFrameLocal
	}
	properties, err := sensor.Properties(ctx, make(map[string]interface{}))
	if err != nil {
		return nil, errors.Wrapf(err, "error getting movement sensor properties from \"%v\"", name)
	}
	headingSupported := properties.OrientationSupported
	if frame == PoseFrameGPS {
		headingSupported = properties.CompassHeadingSupported
	}
	if !properties.PositionSupported || !headingSupported {
		return nil, errors.Wrapf(ErrMovementSensorUnsupported, "\"%v\" in %s frame", name, frame)
	}
	if pollRateHz <= 0 {
		return nil, errors.Errorf("invalid poll rate %v for movement sensor \"%v\"", pollRateHz, name)
	}

	pollCtx, cancelFunc := context.WithCancel(context.Background())
	src := &MovementSensorPoseSource{
		name:       name,
		sensor:     sensor,
		frame:      frame,
		logger:     logger,
		cancelFunc: cancelFunc,
	}
	interval := time.Duration(float64(time.Second) / pollRateHz)
	src.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer src.activeBackgroundWorkers.Done()
		src.poll(pollCtx, interval)
	})
	return src, nil
}

func (src *MovementSensorPoseSource) poll(ctx context.Context, interval time.Duration) {
	for {
		reading, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			src.logger.Debugw("movement sensor read failed", "sensor", src.name, "error", err)
		} else {
			src.latest.Store(reading)
		}
		if !goutils.SelectContextOrWait(ctx, interval) {
			return
		}
	}
}

// Read queries the sensor once. The reading time is taken from replay metadata when the
// sensor supplies it.
func (src *MovementSensorPoseSource) Read(ctx context.Context) (TimedPoseReading, error) {
	ctxWithMetadata, md := contextutils.ContextWithMetadata(ctx)
	position, _, err := src.sensor.Position(ctxWithMetadata, make(map[string]interface{}))
	if err != nil {
		return TimedPoseReading{}, errors.Wrap(err, "Position error")
	}
	if position == nil {
		return TimedPoseReading{}, errors.Errorf("movement sensor \"%v\" returned no position", src.name)
	}

	readAt := time.Now().UTC()
	if timeRequestedMetadata, ok := md[contextutils.TimeRequestedMetadataKey]; ok {
		if readAt, err = time.Parse(time.RFC3339Nano, timeRequestedMetadata[0]); err != nil {
			return TimedPoseReading{}, errors.Wrap(err, replayTimestampErrText)
		}
	}

	var pose pursuit.Pose
	switch src.frame {
	case PoseFrameGPS:
		compass, err := src.sensor.CompassHeading(ctx, make(map[string]interface{}))
		if err != nil {
			return TimedPoseReading{}, errors.Wrap(err, "CompassHeading error")
		}
		pose.X, pose.Y = src.project(position)
		pose.Theta = HeadingFromCompass(compass)
	default:
		orientation, err := src.sensor.Orientation(ctx, make(map[string]interface{}))
		if err != nil {
			return TimedPoseReading{}, errors.Wrap(err, "Orientation error")
		}
		if orientation == nil {
			return TimedPoseReading{}, errors.Errorf("movement sensor \"%v\" returned no orientation", src.name)
		}
		pose.X, pose.Y = position.Lng(), position.Lat()
		pose.Theta = HeadingFromOrientation(orientation)
	}
	return TimedPoseReading{Pose: pose, ReadingTime: readAt}, nil
}

// project returns the east and north offset in meters of fix from the first fix seen.
func (src *MovementSensorPoseSource) project(fix *geo.Point) (float64, float64) {
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.origin == nil {
		src.origin = geo.NewPoint(fix.Lat(), fix.Lng())
		src.logger.Infow("pose origin set", "sensor", src.name, "lat", fix.Lat(), "lng", fix.Lng())
		return 0, 0
	}
	dist := src.origin.GreatCircleDistance(fix) * metersPerKilometer
	bearing := rdkutils.DegToRad(src.origin.BearingTo(fix))
	return dist * math.Sin(bearing), dist * math.Cos(bearing)
}

// Name returns the name of the source.
func (src *MovementSensorPoseSource) Name() string {
	return src.name
}

// HasData reports whether a pose was ever read.
func (src *MovementSensorPoseSource) HasData() bool {
	return src.latest.Seen()
}

// LatestPose returns the newest pose not yet consumed.
func (src *MovementSensorPoseSource) LatestPose() (TimedPoseReading, bool) {
	return src.latest.Take()
}

// Close stops polling. The sensor itself belongs to the robot client.
func (src *MovementSensorPoseSource) Close() error {
	src.cancelFunc()
	src.activeBackgroundWorkers.Wait()
	return nil
}

// HeadingFromOrientation returns the yaw of o as a pose theta. Bodies face +y at zero
// yaw, as rdk bases do, so no offset is applied.
func HeadingFromOrientation(o spatialmath.Orientation) float64 {
	return normalizeAngle(o.EulerAngles().Yaw)
}

// HeadingFromCompass converts a compass heading in degrees clockwise from north into a
// pose theta on an east/north plane.
func HeadingFromCompass(degrees float64) float64 {
	return normalizeAngle(-rdkutils.DegToRad(degrees))
}

// normalizeAngle wraps a to (-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
