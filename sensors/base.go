package sensors

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/components/base"
	rdkutils "go.viam.com/rdk/utils"
)

const millimetersPerMeter = 1000

// BaseDrive sends twists to an rdk base. Linear velocity goes along the base's forward
// +y axis in mm/s and angular velocity about +z in deg/s.
type BaseDrive struct {
	name string
	base base.Base
}

// NewBaseDrive wraps b.
func NewBaseDrive(name string, b base.Base) *BaseDrive {
	return &BaseDrive{name: name, base: b}
}

// Name returns the name of the drive.
func (d *BaseDrive) Name() string {
	return d.name
}

// WriteTwist sets the base velocity. A zero twist stops the base.
func (d *BaseDrive) WriteTwist(ctx context.Context, twist Twist) error {
	if twist == (Twist{}) {
		return errors.Wrapf(d.base.Stop(ctx, make(map[string]interface{})), "failed to stop base %v", d.name)
	}
	linear := r3.Vector{Y: float64(twist.Linear) * millimetersPerMeter}
	angular := r3.Vector{Z: rdkutils.RadToDeg(float64(twist.Angular))}
	if err := d.base.SetVelocity(ctx, linear, angular, make(map[string]interface{})); err != nil {
		return errors.Wrapf(err, "failed to set velocity on base %v", d.name)
	}
	return nil
}

// Close stops the base. The base itself belongs to the robot client.
func (d *BaseDrive) Close() error {
	return d.base.Stop(context.Background(), make(map[string]interface{}))
}
