package planner

import (
	"math"

	"github.com/viam-modules/viam-localnav/grid"
)

const (
	orthogonalCost = 1.0
	diagonalCost   = math.Sqrt2
)

// moves are the 8-connected neighbor offsets, orthogonal first.
var moves = []grid.Cell{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1},
}

// Octile returns the octile distance between a and b in cell units. It is admissible and
// consistent for unit orthogonal and sqrt(2) diagonal steps.
func Octile(a, b grid.Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return orthogonalCost*(dx+dy) + (diagonalCost-2*orthogonalCost)*math.Min(dx, dy)
}

func stepCost(move grid.Cell) float64 {
	if move.X != 0 && move.Y != 0 {
		return diagonalCost
	}
	return orthogonalCost
}
