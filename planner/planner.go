// Package planner implements footprint-aware A* search over a bounded window around the robot.
package planner

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"go.opencensus.io/trace"

	"github.com/viam-modules/viam-localnav/grid"
)

// Outcome describes how a search ended.
type Outcome int

const (
	// Infeasible means no path could be produced and the robot must hold position.
	Infeasible Outcome = iota
	// Reached means the path ends at the resolved goal cell.
	Reached
	// BestEffort means the goal was unreachable and the path ends at the explored cell
	// closest to the goal.
	BestEffort
)

func (o Outcome) String() string {
	switch o {
	case Reached:
		return "reached"
	case BestEffort:
		return "best_effort"
	default:
		return "infeasible"
	}
}

// Options configures a Planner.
type Options struct {
	CellSize      float64
	PlanRadius    float64
	InflateRadius float64
	// PreventCornerCutting additionally requires both orthogonal cells flanking a
	// diagonal move to be safe.
	PreventCornerCutting bool
}

// Result is the output of a single search.
type Result struct {
	// Path holds metric cell centers, start first. It is empty when Outcome is Infeasible.
	Path        []r2.Point
	Goal        grid.Cell
	GoalSnapped bool
	Outcome     Outcome
	Expanded    int
}

// Planner runs A* over the safe cells of a window centered on the robot.
type Planner struct {
	opts   Options
	mapper grid.Mapper
	bound  int
	disk   []grid.Cell
}

// New returns a Planner for the given options. The footprint disk is computed once.
func New(opts Options) *Planner {
	return &Planner{
		opts:   opts,
		mapper: grid.NewMapper(opts.CellSize),
		bound:  grid.WindowBound(opts.PlanRadius, opts.CellSize),
		disk:   grid.DiskOffsets(grid.FootprintCells(opts.InflateRadius, opts.CellSize)),
	}
}

// Mapper returns the coordinate mapper used by the planner.
func (p *Planner) Mapper() grid.Mapper {
	return p.mapper
}

// Disk returns the footprint offsets used for safety checks.
func (p *Planner) Disk() []grid.Cell {
	return p.disk
}

// SafetyMap builds the safety map for a window centered on start.
func (p *Planner) SafetyMap(start r2.Point, obstacles []r2.Point) *grid.SafetyMap {
	window := grid.NewWindow(p.mapper.ToCell(start), p.bound)
	return grid.NewSafetyMap(window, p.mapper.ToCells(obstacles), p.disk)
}

// Plan searches from start towards goal avoiding obstacles. It never fails; the absence
// of a route is reported through an empty path and the Infeasible outcome.
func (p *Planner) Plan(ctx context.Context, start, goal r2.Point, obstacles []r2.Point) Result {
	_, span := trace.StartSpan(ctx, "localnav::planner::Plan")
	defer span.End()

	sm := p.SafetyMap(start, obstacles)
	if sm.FreeCount() == 0 {
		return Result{Outcome: Infeasible}
	}

	startCell := p.mapper.ToCell(start)
	goalCell, ok := sm.ResolveGoal(goal, p.mapper)
	if !ok {
		return Result{Outcome: Infeasible}
	}
	res := Result{Goal: goalCell, GoalSnapped: goalCell != p.mapper.ToCell(goal)}

	// a start without footprint clearance has no safe neighbors worth exploring from
	if !sm.IsSafe(startCell) {
		res.Outcome = Infeasible
		return res
	}

	cameFrom := map[grid.Cell]grid.Cell{}
	g := map[grid.Cell]float64{startCell: 0}
	open := &nodeQueue{}
	open.push(startCell, 0, Octile(startCell, goalCell))

	for open.Len() > 0 {
		cur := open.pop()
		if cur.g > g[cur.cell] {
			continue
		}
		res.Expanded++
		if cur.cell == goalCell {
			res.Path = p.reconstruct(cameFrom, startCell, goalCell)
			res.Outcome = Reached
			return res
		}

		for _, move := range moves {
			next := cur.cell.Add(move)
			if !sm.Window().Contains(next) || !sm.IsSafe(next) {
				continue
			}
			if p.opts.PreventCornerCutting && move.X != 0 && move.Y != 0 {
				if !sm.IsSafe(cur.cell.Add(grid.Cell{X: move.X})) || !sm.IsSafe(cur.cell.Add(grid.Cell{Y: move.Y})) {
					continue
				}
			}
			cost := cur.g + stepCost(move)
			if known, seen := g[next]; !seen || cost < known {
				g[next] = cost
				cameFrom[next] = cur.cell
				open.push(next, cost, cost+Octile(next, goalCell))
			}
		}
	}

	// unreachable: head for the explored cell closest to the true goal
	closest := startCell
	closestDist := math.Inf(1)
	for c := range g {
		if d := p.mapper.ToMetric(c).Sub(goal).Norm(); d < closestDist {
			closest, closestDist = c, d
		}
	}
	res.Path = p.reconstruct(cameFrom, startCell, closest)
	res.Outcome = BestEffort
	return res
}

func (p *Planner) reconstruct(cameFrom map[grid.Cell]grid.Cell, start, end grid.Cell) []r2.Point {
	var reversed []r2.Point
	for c := end; ; {
		reversed = append(reversed, p.mapper.ToMetric(c))
		if c == start {
			break
		}
		c = cameFrom[c]
	}
	path := make([]r2.Point, len(reversed))
	for i, pt := range reversed {
		path[len(reversed)-1-i] = pt
	}
	return path
}
