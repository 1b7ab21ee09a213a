package inject

import (
	"github.com/viam-modules/viam-localnav/obstacles"
	s "github.com/viam-modules/viam-localnav/sensors"
)

// OccupancySource is an injected OccupancySource.
type OccupancySource struct {
	s.OccupancySource
	NameFunc            func() string
	HasDataFunc         func() bool
	LatestOccupancyFunc func() (obstacles.Frame, bool)
}

// Name calls the injected Name or the real version.
func (occ *OccupancySource) Name() string {
	if occ.NameFunc == nil {
		return occ.OccupancySource.Name()
	}
	return occ.NameFunc()
}

// HasData calls the injected HasData or the real version.
func (occ *OccupancySource) HasData() bool {
	if occ.HasDataFunc == nil {
		return occ.OccupancySource.HasData()
	}
	return occ.HasDataFunc()
}

// LatestOccupancy calls the injected LatestOccupancy or the real version.
func (occ *OccupancySource) LatestOccupancy() (obstacles.Frame, bool) {
	if occ.LatestOccupancyFunc == nil {
		return occ.OccupancySource.LatestOccupancy()
	}
	return occ.LatestOccupancyFunc()
}
