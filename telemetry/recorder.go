package telemetry

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.viam.com/rdk/logging"
	"go.uber.org/zap/zapcore"

	"github.com/viam-modules/viam-localnav/controlloop"
)

// maxRecordedWaypoints caps how many waypoints a single record logs.
const maxRecordedWaypoints = 32

// DebugRecorder logs every replanning cycle along with the run it belongs to.
type DebugRecorder struct {
	runID   uuid.UUID
	logger  logging.Logger
	records atomic.Int64
}

// NewDebugRecorder returns a recorder tagged with a fresh run id.
func NewDebugRecorder(logger logging.Logger) *DebugRecorder {
	return &DebugRecorder{runID: uuid.New(), logger: logger}
}

// RunID returns the id attached to every record.
func (r *DebugRecorder) RunID() uuid.UUID {
	return r.runID
}

// Count returns how many records were written.
func (r *DebugRecorder) Count() int64 {
	return r.records.Load()
}

// Record logs rec at debug level. It does nothing when debug logging is disabled.
func (r *DebugRecorder) Record(ctx context.Context, rec controlloop.Record) {
	if r.logger.Level() != zapcore.DebugLevel {
		return
	}
	n := r.records.Add(1)

	waypoints := rec.Path
	if len(waypoints) > maxRecordedWaypoints {
		waypoints = waypoints[:maxRecordedWaypoints]
	}
	path := make([][2]float64, 0, len(waypoints))
	for _, p := range waypoints {
		path = append(path, [2]float64{p.X, p.Y})
	}

	r.logger.Debugw("plan record",
		"run_id", r.runID.String(),
		"seq", n,
		"pose", [3]float64{rec.Pose.X, rec.Pose.Y, rec.Pose.Theta},
		"goal", [2]float64{rec.Goal.X, rec.Goal.Y},
		"outcome", rec.Outcome.String(),
		"status", rec.Status.String(),
		"obstacles", len(rec.Obstacles),
		"path_length", len(rec.Path),
		"path", path,
		"linear", rec.Command.Linear,
		"angular", rec.Command.Angular,
	)
}

// Recorders fans every record out to each of its members.
type Recorders []controlloop.Recorder

// Record passes rec to every member.
func (rs Recorders) Record(ctx context.Context, rec controlloop.Record) {
	for _, r := range rs {
		r.Record(ctx, rec)
	}
}
