// Package controlloop runs the fixed-rate sense, plan and act cycle of the navigator.
package controlloop

import (
	"context"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/viam-localnav/obstacles"
	"github.com/viam-modules/viam-localnav/planner"
	"github.com/viam-modules/viam-localnav/pursuit"
	s "github.com/viam-modules/viam-localnav/sensors"
)

// ErrQuit is returned once the quit key was pressed.
var ErrQuit = errors.New("quit requested")

const (
	// DefaultRate is the loop frequency in Hz used when Config.Rate is unset.
	DefaultRate = 30.0
	// MaxRate is the highest loop frequency in Hz. Faster rates are clamped.
	MaxRate = 1000.0
)

// Record is a snapshot of one replanning cycle.
type Record struct {
	Pose      pursuit.Pose
	Goal      r2.Point
	Path      []r2.Point
	Obstacles []r2.Point
	Outcome   planner.Outcome
	Status    pursuit.Status
	Command   pursuit.Command
}

// Recorder receives a Record after every replanning cycle.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// StepResult describes what a single Step did.
type StepResult struct {
	Replanned bool
	Outcome   planner.Outcome
	Status    pursuit.Status
	Command   pursuit.Command
	Goal      r2.Point
	Path      []r2.Point
}

// Config holds the components of the loop along with the state it carries between ticks.
type Config struct {
	Planner    *planner.Planner
	Controller *pursuit.Controller
	Extractor  obstacles.Extractor

	Pose      s.TimedPoseSource
	Occupancy s.OccupancySource
	// Keyboard is optional.
	Keyboard s.Keyboard
	Drive    s.Drive
	// Recorder is optional.
	Recorder Recorder

	// Rate is the loop frequency in Hz.
	Rate float64
	// GoalStep is how far one key press moves the goal, in meters.
	GoalStep float64
	Logger   logging.Logger

	state state
}

// tickInterval returns the period of a loop running at rate Hz, falling back to
// DefaultRate when rate is unset and clamping to MaxRate.
func tickInterval(rate float64) time.Duration {
	switch {
	case rate <= 0:
		rate = DefaultRate
	case rate > MaxRate:
		rate = MaxRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// state is everything the loop remembers from one tick to the next.
type state struct {
	pose     pursuit.Pose
	havePose bool
	goal     r2.Point
	haveGoal bool
	path     []r2.Point
	outcome  planner.Outcome
	status   pursuit.Status
	command  pursuit.Command
}

// Start calls Step at Rate until ctx is done or the quit key is pressed. It returns nil
// on cancellation and ErrQuit on quit.
func (config *Config) Start(ctx context.Context) error {
	if config.Rate > MaxRate {
		config.Logger.Warnw("control rate too high, clamping", "rate_hz", config.Rate, "max_rate_hz", MaxRate)
	}
	ticker := time.NewTicker(tickInterval(config.Rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := config.Step(ctx); err != nil {
				if errors.Is(err, ErrQuit) {
					return err
				}
				config.Logger.Warnw("control step failed", "error", err)
			}
		}
	}
}

// Step runs one cycle: it polls every input without blocking, replans on a fresh
// occupancy frame and sends the current command to the drive.
func (config *Config) Step(ctx context.Context) (StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "localnav::controlloop::Step")
	defer span.End()

	if reading, ok := config.Pose.LatestPose(); ok {
		config.state.pose = reading.Pose
		config.state.havePose = true
		if !config.state.haveGoal {
			config.state.goal = reading.Pose.Point()
			config.state.haveGoal = true
			config.Logger.Infow("goal initialized to first pose", "x", config.state.goal.X, "y", config.state.goal.Y)
		}
	}

	if config.Keyboard != nil {
		if key, ok := config.Keyboard.ReadKey(); ok {
			if quit := config.handleKey(key); quit {
				config.state.command = pursuit.Command{}
				if err := config.send(ctx); err != nil {
					config.Logger.Warnw("failed to stop drive on quit", "error", err)
				}
				return config.result(false), ErrQuit
			}
		}
	}

	replanned := false
	if frame, ok := config.Occupancy.LatestOccupancy(); ok && config.state.havePose {
		if err := config.replan(ctx, frame); err != nil {
			config.Logger.Warnw("skipping occupancy frame", "error", err)
		} else {
			replanned = true
		}
	}

	return config.result(replanned), config.send(ctx)
}

// Goal returns the current goal and whether it was initialized.
func (config *Config) Goal() (r2.Point, bool) {
	return config.state.goal, config.state.haveGoal
}

// handleKey applies a key press and reports whether it asked to quit.
func (config *Config) handleKey(key rune) bool {
	var delta r2.Point
	switch key {
	case 'q', 'Q':
		config.Logger.Info("quit key pressed")
		return true
	case 'w', 'W':
		delta = r2.Point{Y: -config.GoalStep}
	case 's', 'S':
		delta = r2.Point{Y: config.GoalStep}
	case 'a', 'A':
		delta = r2.Point{X: -config.GoalStep}
	case 'd', 'D':
		delta = r2.Point{X: config.GoalStep}
	default:
		return false
	}
	if !config.state.haveGoal {
		config.Logger.Debugw("ignoring goal key before first pose", "key", string(key))
		return false
	}
	config.state.goal = config.state.goal.Add(delta)
	config.Logger.Infow("goal moved", "x", config.state.goal.X, "y", config.state.goal.Y)
	return false
}

func (config *Config) replan(ctx context.Context, frame obstacles.Frame) error {
	obs, err := config.Extractor.Extract(frame)
	if err != nil {
		return err
	}

	pose, goal := config.state.pose, config.state.goal
	if config.Controller.AtGoal(pose, goal) {
		config.state.path = nil
		config.state.status = pursuit.StatusAtGoal
		config.state.command = pursuit.Command{}
		config.record(ctx, obs)
		return nil
	}

	result := config.Planner.Plan(ctx, pose.Point(), goal, obs)
	config.state.path = result.Path
	config.state.outcome = result.Outcome
	if result.GoalSnapped {
		config.Logger.Debugw("goal is not safe, planning to nearest safe cell",
			"goal_x", goal.X, "goal_y", goal.Y, "cell", result.Goal)
	}

	cmd, status := config.Controller.Command(result.Path, pose, goal)
	config.state.status = status
	if status != pursuit.StatusHold {
		config.state.command = cmd
	}
	config.Logger.Debugw("replanned",
		"outcome", result.Outcome.String(),
		"status", status.String(),
		"path_length", len(result.Path),
		"expanded", result.Expanded,
		"obstacles", len(obs))
	config.record(ctx, obs)
	return nil
}

func (config *Config) record(ctx context.Context, obs []r2.Point) {
	if config.Recorder == nil {
		return
	}
	config.Recorder.Record(ctx, Record{
		Pose:      config.state.pose,
		Goal:      config.state.goal,
		Path:      config.state.path,
		Obstacles: obs,
		Outcome:   config.state.outcome,
		Status:    config.state.status,
		Command:   config.state.command,
	})
}

func (config *Config) send(ctx context.Context) error {
	twist := s.Twist{
		Linear:  float32(config.state.command.Linear),
		Angular: float32(config.state.command.Angular),
	}
	if err := config.Drive.WriteTwist(ctx, twist); err != nil {
		return errors.Wrapf(err, "failed to send command to %s", config.Drive.Name())
	}
	return nil
}

func (config *Config) result(replanned bool) StepResult {
	return StepResult{
		Replanned: replanned,
		Outcome:   config.state.outcome,
		Status:    config.state.status,
		Command:   config.state.command,
		Goal:      config.state.goal,
		Path:      config.state.path,
	}
}
