package grid

import "math"

// Window is the square of cells searched around the robot.
type Window struct {
	center Cell
	bound  int
}

// WindowBound returns the half-width b, in cells, of a window covering planRadius.
func WindowBound(planRadius, cellSize float64) int {
	return int(math.Ceil(planRadius / cellSize))
}

// NewWindow returns the (2*bound+1)^2 window centered on center.
func NewWindow(center Cell, bound int) Window {
	if bound < 0 {
		bound = 0
	}
	return Window{center: center, bound: bound}
}

// Size returns the number of cells in the window.
func (w Window) Size() int {
	side := 2*w.bound + 1
	return side * side
}

// Contains reports whether c lies inside the window.
func (w Window) Contains(c Cell) bool {
	return c.X >= w.center.X-w.bound && c.X <= w.center.X+w.bound &&
		c.Y >= w.center.Y-w.bound && c.Y <= w.center.Y+w.bound
}

// Cells returns every cell of the window in row-major order.
func (w Window) Cells() []Cell {
	cells := make([]Cell, 0, w.Size())
	for x := w.center.X - w.bound; x <= w.center.X+w.bound; x++ {
		for y := w.center.Y - w.bound; y <= w.center.Y+w.bound; y++ {
			cells = append(cells, Cell{X: x, Y: y})
		}
	}
	return cells
}
