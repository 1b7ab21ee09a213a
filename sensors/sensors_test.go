package sensors_test

import (
	"context"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	s "github.com/viam-modules/viam-localnav/sensors"
	"github.com/viam-modules/viam-localnav/sensors/inject"
)

func TestValidateGetData(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()

	sensorValidationMaxTimeout := time.Duration(50) * time.Millisecond
	sensorValidationInterval := time.Duration(10) * time.Millisecond

	newSource := func(hasData func() bool) *inject.TimedPoseSource {
		src := &inject.TimedPoseSource{}
		src.NameFunc = func() string { return "pose" }
		src.HasDataFunc = hasData
		return src
	}

	t.Run("returns nil if data is already present", func(t *testing.T) {
		src := newSource(func() bool { return true })
		err := s.ValidateGetData(ctx, src, sensorValidationMaxTimeout, sensorValidationInterval, logger)
		test.That(t, err, test.ShouldBeNil)
	})

	t.Run("returns nil if data arrives within the timeout", func(t *testing.T) {
		calls := 0
		src := newSource(func() bool {
			calls++
			return calls > 2
		})
		err := s.ValidateGetData(ctx, src, sensorValidationMaxTimeout, sensorValidationInterval, logger)
		test.That(t, err, test.ShouldBeNil)
	})

	t.Run("returns error if no data arrives within the timeout", func(t *testing.T) {
		src := newSource(func() bool { return false })
		err := s.ValidateGetData(ctx, src, sensorValidationMaxTimeout, sensorValidationInterval, logger)
		test.That(t, err, test.ShouldBeError, "ValidateGetData timeout for pose: no data received")
	})

	t.Run("returns error if the context is cancelled first", func(t *testing.T) {
		cancelledCtx, cancelFunc := context.WithCancel(context.Background())
		cancelFunc()

		src := newSource(func() bool { return false })
		err := s.ValidateGetData(cancelledCtx, src, time.Minute, sensorValidationInterval, logger)
		test.That(t, err, test.ShouldBeError, context.Canceled)
	})
}

func TestLatest(t *testing.T) {
	var l s.Latest[int]

	_, ok := l.Take()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, l.Seen(), test.ShouldBeFalse)

	l.Store(1)
	l.Store(2)
	v, ok := l.Take()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 2)

	_, ok = l.Take()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, l.Seen(), test.ShouldBeTrue)

	l.Store(3)
	v, ok = l.Take()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 3)
}
