// Package grid implements the metric/cell conversions, planning window and footprint
// safety checks used by the local planner.
package grid

import (
	"math"

	"github.com/golang/geo/r2"
)

// Cell is an integer grid cell index.
type Cell struct {
	X, Y int
}

// Add returns the cell offset by o.
func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

// Mapper converts between metric coordinates and grid cells for a fixed cell size.
type Mapper struct {
	cellSize float64
}

// NewMapper returns a Mapper for cells of the given edge length in meters.
func NewMapper(cellSize float64) Mapper {
	return Mapper{cellSize: cellSize}
}

// ToCell returns the cell containing p.
func (m Mapper) ToCell(p r2.Point) Cell {
	return Cell{
		X: int(math.Floor(p.X / m.cellSize)),
		Y: int(math.Floor(p.Y / m.cellSize)),
	}
}

// ToMetric returns the metric center of c. It is not an exact inverse of ToCell.
func (m Mapper) ToMetric(c Cell) r2.Point {
	return r2.Point{
		X: (float64(c.X) + 0.5) * m.cellSize,
		Y: (float64(c.Y) + 0.5) * m.cellSize,
	}
}

// ToCells maps every point to its cell, collapsing duplicates.
func (m Mapper) ToCells(points []r2.Point) map[Cell]struct{} {
	cells := make(map[Cell]struct{}, len(points))
	for _, p := range points {
		cells[m.ToCell(p)] = struct{}{}
	}
	return cells
}
