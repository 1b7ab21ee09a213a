package inject

import (
	"context"

	s "github.com/viam-modules/viam-localnav/sensors"
)

// Drive is an injected Drive.
type Drive struct {
	s.Drive
	NameFunc       func() string
	WriteTwistFunc func(ctx context.Context, twist s.Twist) error
	CloseFunc      func() error
}

// Name calls the injected Name or the real version.
func (d *Drive) Name() string {
	if d.NameFunc == nil {
		return d.Drive.Name()
	}
	return d.NameFunc()
}

// WriteTwist calls the injected WriteTwist or the real version.
func (d *Drive) WriteTwist(ctx context.Context, twist s.Twist) error {
	if d.WriteTwistFunc == nil {
		return d.Drive.WriteTwist(ctx, twist)
	}
	return d.WriteTwistFunc(ctx, twist)
}

// Close calls the injected Close or the real version.
func (d *Drive) Close() error {
	if d.CloseFunc == nil {
		return d.Drive.Close()
	}
	return d.CloseFunc()
}
