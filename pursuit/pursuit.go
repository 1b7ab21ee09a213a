// Package pursuit implements a fixed-lookahead pure pursuit controller that turns a
// planned path into linear and angular velocity commands.
package pursuit

import (
	"math"

	"github.com/golang/geo/r2"
)

// Pose is a planar robot pose. Theta is in radians and theta=0 faces +y.
type Pose struct {
	X, Y, Theta float64
}

// Point returns the pose position.
func (p Pose) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Heading returns the unit forward axis of the pose.
func (p Pose) Heading() r2.Point {
	return r2.Point{X: -math.Sin(p.Theta), Y: math.Cos(p.Theta)}
}

// Command is a velocity command: linear in m/s and angular in rad/s.
type Command struct {
	Linear  float64
	Angular float64
}

// Status tells the caller how a command was produced.
type Status int

const (
	// StatusTracking means the command steers towards the lookahead waypoint.
	StatusTracking Status = iota
	// StatusAtGoal means the robot is within the goal tolerance and must stop.
	StatusAtGoal
	// StatusNoPath means there is nothing to follow and the robot must stop.
	StatusNoPath
	// StatusHold means the lookahead point is too close to steer towards; the caller
	// keeps whatever command it last issued.
	StatusHold
)

func (s Status) String() string {
	switch s {
	case StatusTracking:
		return "tracking"
	case StatusAtGoal:
		return "at_goal"
	case StatusNoPath:
		return "no_path"
	case StatusHold:
		return "hold"
	default:
		return "unknown"
	}
}

// Options configures a Controller.
type Options struct {
	Lookahead         float64
	CellSize          float64
	KP                float64
	Speed             float64
	GoalTolerance     float64
	MinTargetDistance float64
}

// Controller computes velocity commands from a path and the current pose.
type Controller struct {
	opts Options
}

// New returns a Controller for the given options.
func New(opts Options) *Controller {
	return &Controller{opts: opts}
}

// AtGoal reports whether pose is within the goal tolerance of goal.
func (c *Controller) AtGoal(pose Pose, goal r2.Point) bool {
	return goal.Sub(pose.Point()).Norm() < c.opts.GoalTolerance
}

// LookaheadIndex returns the index of the waypoint to steer towards in a path of n
// waypoints. It assumes roughly one cell between consecutive waypoints. Halves round
// to even.
func (c *Controller) LookaheadIndex(n int) int {
	idx := int(math.RoundToEven(c.opts.Lookahead / c.opts.CellSize))
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

// HeadingError returns the signed angle in (-pi, pi] from the pose heading to the unit
// direction dir, along with the cosine of that angle. Positive values are counter-clockwise.
func HeadingError(pose Pose, dir r2.Point) (float64, float64) {
	h := pose.Heading()
	cross := h.Cross(dir)
	dot := h.Dot(dir)
	return math.Atan2(cross, dot), dot
}

// Command returns the velocity command for following path from pose towards goal.
func (c *Controller) Command(path []r2.Point, pose Pose, goal r2.Point) (Command, Status) {
	if c.AtGoal(pose, goal) {
		return Command{}, StatusAtGoal
	}
	if len(path) == 0 {
		return Command{}, StatusNoPath
	}

	d := path[c.LookaheadIndex(len(path))].Sub(pose.Point())
	if d.Norm() < c.opts.MinTargetDistance {
		return Command{}, StatusHold
	}

	err, dot := HeadingError(pose, d.Normalize())
	return Command{
		Linear:  c.opts.Speed * math.Max(0, dot),
		Angular: c.opts.KP * err,
	}, StatusTracking
}
