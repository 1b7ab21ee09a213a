package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-modules/viam-localnav/controlloop"
	"github.com/viam-modules/viam-localnav/planner"
	"github.com/viam-modules/viam-localnav/pursuit"
)

func TestSetupTelemetry(t *testing.T) {
	exporter, err := SetupTelemetry(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, exporter, test.ShouldNotBeNil)
	exporter.Stop()

	t.Run("sub-second intervals are raised to a second", func(t *testing.T) {
		exporter, err := SetupTelemetry(50 * time.Millisecond)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, exporter, test.ShouldNotBeNil)
		exporter.Stop()

		test.That(t, clampReportingInterval(50*time.Millisecond), test.ShouldEqual, time.Second)
		test.That(t, clampReportingInterval(-time.Second), test.ShouldEqual, time.Second)
		test.That(t, clampReportingInterval(5*time.Second), test.ShouldEqual, 5*time.Second)
	})
}

func TestDebugRecorder(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := NewDebugRecorder(logger)
	test.That(t, r.RunID(), test.ShouldNotEqual, uuid.Nil)
	test.That(t, NewDebugRecorder(logger).RunID(), test.ShouldNotEqual, r.RunID())

	long := make([]r2.Point, 2*maxRecordedWaypoints)
	for i := range long {
		long[i] = r2.Point{X: float64(i) * 0.1}
	}
	rec := controlloop.Record{
		Pose:    pursuit.Pose{X: 1, Y: 2, Theta: 0.5},
		Goal:    r2.Point{X: 3, Y: 4},
		Path:    long,
		Outcome: planner.Reached,
		Status:  pursuit.StatusTracking,
		Command: pursuit.Command{Linear: 0.05, Angular: -0.1},
	}
	r.Record(context.Background(), rec)
	r.Record(context.Background(), controlloop.Record{})

	expected := int64(0)
	if logger.Level() == zapcore.DebugLevel {
		expected = 2
	}
	test.That(t, r.Count(), test.ShouldEqual, expected)
}
