// Package localnav implements a reactive local navigator: it plans a footprint-safe path
// through a bounded window around the robot every time a fresh occupancy frame arrives
// and follows it with a pure-pursuit controller.
package localnav

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/components/movementsensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/robot"
	"go.viam.com/rdk/robot/client"
	"go.viam.com/utils/rpc"

	vnConfig "github.com/viam-modules/viam-localnav/config"
	"github.com/viam-modules/viam-localnav/controlloop"
	"github.com/viam-modules/viam-localnav/dataprocess"
	"github.com/viam-modules/viam-localnav/planner"
	"github.com/viam-modules/viam-localnav/pursuit"
	s "github.com/viam-modules/viam-localnav/sensors"
	"github.com/viam-modules/viam-localnav/telemetry"
)

var (
	// ErrClosed denotes that a navigator method was called after Close.
	ErrClosed = errors.New("local navigator is closed")
	// ErrQuit denotes that the operator asked the navigator to stop.
	ErrQuit = controlloop.ErrQuit
)

const (
	configPath    = "localnav"
	poseName      = "pose"
	occupancyName = "occupancy"
	driveName     = "drive"
)

// Overrides replaces the bus endpoints built from the config. Nil fields are built
// from the config as usual.
type Overrides struct {
	Pose      s.TimedPoseSource
	Occupancy s.OccupancySource
	Keyboard  s.Keyboard
	Drive     s.Drive
	// Robot is used instead of dialing robot_address.
	Robot robot.Robot
}

// poseSource is a pose source the navigator owns and closes.
type poseSource interface {
	s.TimedPoseSource
	io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

// Navigator owns the bus endpoints and the goroutine running the control loop.
type Navigator struct {
	mu     sync.Mutex
	closed bool
	runID  uuid.UUID
	logger logging.Logger

	drive   s.Drive
	closers []io.Closer

	loop           *controlloop.Config
	cancelLoopFunc func()
	loopWorkers    sync.WaitGroup
	done           chan struct{}
	loopErr        error
}

// New validates cfg, opens every bus endpoint, waits for pose and occupancy data and
// starts the control loop.
func New(ctx context.Context, cfg *vnConfig.Config, logger logging.Logger, overrides Overrides) (*Navigator, error) {
	ctx, span := trace.StartSpan(ctx, "localnav::Navigator::New")
	defer span.End()

	if err := cfg.Validate(configPath); err != nil {
		return nil, err
	}
	params := vnConfig.GetOptionalParameters(cfg, logger)

	nav := &Navigator{
		runID:  uuid.New(),
		logger: logger,
		done:   make(chan struct{}),
	}
	logger.Infow("starting local navigator", "run_id", nav.runID.String())

	var err error
	defer func() {
		if err != nil {
			logger.Errorw("New() hit error, closing...", "error", err)
			if closeErr := nav.closeEndpoints(); closeErr != nil {
				logger.Errorw("error closing out after error", "error", closeErr)
			}
		}
	}()

	// the loop outlives ctx, which only bounds startup
	cancelLoopCtx, cancelLoopFunc := context.WithCancel(context.Background())
	nav.cancelLoopFunc = cancelLoopFunc

	robotClient := overrides.Robot
	needsRobot := (overrides.Pose == nil && cfg.MovementSensor != "") || (overrides.Drive == nil && cfg.Base != "")
	if robotClient == nil && needsRobot {
		var rc *client.RobotClient
		if rc, err = dialRobot(ctx, cfg, logger); err != nil {
			return nil, err
		}
		nav.closers = append(nav.closers, closerFunc(func() error { return rc.Close(context.Background()) }))
		robotClient = rc
	}

	pose := overrides.Pose
	if pose == nil {
		var src poseSource
		if src, err = openPose(cancelLoopCtx, cfg, params, robotClient, logger); err != nil {
			return nil, err
		}
		nav.closers = append(nav.closers, src)
		pose = src
	}

	occupancy := overrides.Occupancy
	if occupancy == nil {
		var src *s.UDPOccupancySource
		if src, err = s.NewUDPOccupancySource(cancelLoopCtx, occupancyName, cfg.OccupancyAddress, logger); err != nil {
			return nil, err
		}
		nav.closers = append(nav.closers, src)
		occupancy = src
	}

	if nav.drive, err = openDrive(cfg, params, robotClient, overrides.Drive); err != nil {
		return nil, err
	}
	nav.closers = append(nav.closers, nav.drive)

	keyboard := overrides.Keyboard
	if keyboard == nil && cfg.KeyboardEnabled {
		if keyboard, err = s.NewTerminalKeyboard(logger); err != nil {
			return nil, err
		}
	}
	if keyboard != nil {
		nav.closers = append(nav.closers, keyboard)
		logger.Info("keyboard enabled: w/s move the goal along y, a/d along x, q quits")
	}

	for _, sensor := range []s.DataSensor{pose, occupancy} {
		if err = s.ValidateGetData(
			ctx,
			sensor,
			params.SensorValidationMaxTimeout,
			params.SensorValidationInterval,
			logger); err != nil {
			err = errors.Wrapf(err, "failed to get data from %s", sensor.Name())
			return nil, err
		}
	}

	var recorders telemetry.Recorders
	if cfg.DebugRecord {
		recorders = append(recorders, telemetry.NewDebugRecorder(logger))
	}
	if cfg.DebugDataDirectory != "" {
		var dataRecorder *dataprocess.Recorder
		if dataRecorder, err = dataprocess.NewRecorder(cfg.DebugDataDirectory, params.DebugDataEveryN, logger); err != nil {
			return nil, err
		}
		recorders = append(recorders, dataRecorder)
	}
	var recorder controlloop.Recorder
	if len(recorders) > 0 {
		recorder = recorders
	}

	nav.loop = &controlloop.Config{
		Planner:    planner.New(cfg.PlannerOptions(params)),
		Controller: pursuit.New(params.PursuitOptions()),
		Extractor:  params.Extractor(),
		Pose:       pose,
		Occupancy:  occupancy,
		Keyboard:   keyboard,
		Drive:      nav.drive,
		Recorder:   recorder,
		Rate:       params.ControlRateHz,
		GoalStep:   params.GoalStep,
		Logger:     logger,
	}

	nav.loopWorkers.Add(1)
	go func() {
		defer nav.loopWorkers.Done()
		defer close(nav.done)
		nav.loopErr = nav.loop.Start(cancelLoopCtx)
		if errors.Is(nav.loopErr, controlloop.ErrQuit) {
			logger.Info("control loop stopped by operator")
		}
	}()

	return nav, nil
}

// dialRobot connects to the robot serving the movement sensor or base. Without an API key
// the connection is insecure, which suits a robot on the local network.
func dialRobot(ctx context.Context, cfg *vnConfig.Config, logger logging.Logger) (*client.RobotClient, error) {
	dialOpts := []rpc.DialOption{rpc.WithInsecure()}
	if cfg.RobotAPIKey != "" {
		dialOpts = []rpc.DialOption{rpc.WithEntityCredentials(cfg.RobotAPIKeyID, rpc.Credentials{
			Type:    rpc.CredentialsTypeAPIKey,
			Payload: cfg.RobotAPIKey,
		})}
	}
	robotClient, err := client.New(ctx, cfg.RobotAddress, logger, client.WithDialOptions(dialOpts...))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to robot at %s", cfg.RobotAddress)
	}
	return robotClient, nil
}

func openPose(
	ctx context.Context,
	cfg *vnConfig.Config,
	params vnConfig.OptionalConfigParams,
	robotClient robot.Robot,
	logger logging.Logger,
) (poseSource, error) {
	if cfg.MovementSensor == "" {
		return s.NewUDPPoseSource(ctx, poseName, cfg.PoseAddress, logger)
	}
	ms, err := movementsensor.FromRobot(robotClient, cfg.MovementSensor)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting movement sensor \"%v\"", cfg.MovementSensor)
	}
	return s.NewMovementSensorPoseSource(ctx, cfg.MovementSensor, ms, s.PoseFrame(cfg.PoseFrame), params.ControlRateHz, logger)
}

func openDrive(
	cfg *vnConfig.Config,
	params vnConfig.OptionalConfigParams,
	robotClient robot.Robot,
	override s.Drive,
) (s.Drive, error) {
	switch {
	case override != nil:
		return override, nil
	case cfg.DriveSerialPath != "":
		return s.NewSerialDrive(driveName, cfg.DriveSerialPath, params.DriveBaudRate)
	case cfg.Base != "":
		b, err := base.FromRobot(robotClient, cfg.Base)
		if err != nil {
			return nil, errors.Wrapf(err, "error getting base \"%v\"", cfg.Base)
		}
		return s.NewBaseDrive(cfg.Base, b), nil
	default:
		return s.NewUDPDrive(driveName, cfg.DriveAddress)
	}
}

// RunID returns the id attached to this navigator's logs.
func (nav *Navigator) RunID() uuid.UUID {
	return nav.runID
}

// Done is closed once the control loop has exited.
func (nav *Navigator) Done() <-chan struct{} {
	return nav.done
}

// Wait blocks until the control loop exits or ctx is done. It returns ErrQuit when the
// operator pressed the quit key and ErrClosed when the navigator was closed.
func (nav *Navigator) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-nav.done:
	}
	nav.mu.Lock()
	defer nav.mu.Unlock()
	if nav.closed {
		return ErrClosed
	}
	return nav.loopErr
}

// Close stops the control loop, halts the drive and releases every endpoint.
func (nav *Navigator) Close(ctx context.Context) error {
	nav.mu.Lock()
	defer nav.mu.Unlock()
	if nav.closed {
		nav.logger.Warn("Close() called multiple times")
		return nil
	}
	nav.logger.Info("Closing local navigator")

	nav.cancelLoopFunc()
	nav.loopWorkers.Wait()

	var err error
	if stopErr := nav.drive.WriteTwist(ctx, s.Twist{}); stopErr != nil {
		err = errors.Wrap(stopErr, "failed to stop drive")
	}
	err = multierr.Combine(err, nav.closeEndpoints())
	nav.closed = true

	if err != nil {
		nav.logger.Errorw("close hit error", "error", err)
		return err
	}
	nav.logger.Info("Closing complete")
	return nil
}

func (nav *Navigator) closeEndpoints() error {
	if nav.cancelLoopFunc != nil {
		nav.cancelLoopFunc()
	}
	var err error
	for i := len(nav.closers) - 1; i >= 0; i-- {
		err = multierr.Combine(err, nav.closers[i].Close())
	}
	nav.closers = nil
	return err
}
