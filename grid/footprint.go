package grid

import (
	"math"

	"github.com/golang/geo/r2"
)

// FootprintCells returns the footprint radius in whole cells for an inflation radius.
func FootprintCells(inflateRadius, cellSize float64) int {
	r := int(math.Ceil(inflateRadius / cellSize))
	if r < 0 {
		return 0
	}
	return r
}

// DiskOffsets returns every integer offset (ox, oy) with ox*ox+oy*oy <= r*r.
func DiskOffsets(r int) []Cell {
	offsets := make([]Cell, 0, (2*r+1)*(2*r+1))
	for ox := -r; ox <= r; ox++ {
		for oy := -r; oy <= r; oy++ {
			if ox*ox+oy*oy <= r*r {
				offsets = append(offsets, Cell{X: ox, Y: oy})
			}
		}
	}
	return offsets
}

// SafetyMap holds the free cells of a window and answers footprint safety queries.
// A cell is safe when every cell of its footprint disk is free; cells near the window
// edge whose disk leaves the window are therefore never safe.
type SafetyMap struct {
	window Window
	disk   []Cell
	free   map[Cell]struct{}
	safe   map[Cell]bool
}

// NewSafetyMap computes the free set of window given the obstacle cells.
func NewSafetyMap(window Window, obstacleCells map[Cell]struct{}, disk []Cell) *SafetyMap {
	free := make(map[Cell]struct{}, window.Size())
	for _, c := range window.Cells() {
		if _, blocked := obstacleCells[c]; !blocked {
			free[c] = struct{}{}
		}
	}
	return &SafetyMap{
		window: window,
		disk:   disk,
		free:   free,
		safe:   make(map[Cell]bool, len(free)),
	}
}

// Window returns the window the map was built over.
func (sm *SafetyMap) Window() Window {
	return sm.window
}

// FreeCount returns the number of free cells.
func (sm *SafetyMap) FreeCount() int {
	return len(sm.free)
}

// IsFree reports whether c is inside the window and not an obstacle.
func (sm *SafetyMap) IsFree(c Cell) bool {
	_, ok := sm.free[c]
	return ok
}

// IsSafe reports whether the footprint disk around c lies entirely in free space.
func (sm *SafetyMap) IsSafe(c Cell) bool {
	if safe, ok := sm.safe[c]; ok {
		return safe
	}
	safe := sm.IsFree(c)
	if safe {
		for _, o := range sm.disk {
			if !sm.IsFree(c.Add(o)) {
				safe = false
				break
			}
		}
	}
	sm.safe[c] = safe
	return safe
}

// SafeCells returns every safe cell of the window.
func (sm *SafetyMap) SafeCells() []Cell {
	var cells []Cell
	for _, c := range sm.window.Cells() {
		if sm.IsSafe(c) {
			cells = append(cells, c)
		}
	}
	return cells
}

// ResolveGoal returns goal's cell when it is safe, otherwise the safe cell whose metric
// center is closest to goal. It returns false when no cell is safe.
func (sm *SafetyMap) ResolveGoal(goal r2.Point, mapper Mapper) (Cell, bool) {
	goalCell := mapper.ToCell(goal)
	if sm.IsSafe(goalCell) {
		return goalCell, true
	}

	var best Cell
	bestDist := math.Inf(1)
	found := false
	for _, c := range sm.SafeCells() {
		if d := mapper.ToMetric(c).Sub(goal).Norm(); d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}
