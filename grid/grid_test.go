package grid

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestMapper(t *testing.T) {
	m := NewMapper(0.1)

	t.Run("floors metric coordinates into cells", func(t *testing.T) {
		test.That(t, m.ToCell(r2.Point{X: 0, Y: 0}), test.ShouldResemble, Cell{0, 0})
		test.That(t, m.ToCell(r2.Point{X: 0.25, Y: 0.99}), test.ShouldResemble, Cell{2, 9})
		test.That(t, m.ToCell(r2.Point{X: -0.01, Y: -0.15}), test.ShouldResemble, Cell{-1, -2})
	})

	t.Run("maps cells to their centers", func(t *testing.T) {
		p := m.ToMetric(Cell{10, -3})
		test.That(t, p.X, test.ShouldAlmostEqual, 1.05)
		test.That(t, p.Y, test.ShouldAlmostEqual, -0.25)
	})

	t.Run("cell centers map back to the same cell", func(t *testing.T) {
		for _, c := range []Cell{{0, 0}, {-7, 4}, {13, -21}} {
			test.That(t, m.ToCell(m.ToMetric(c)), test.ShouldResemble, c)
		}
	})

	t.Run("collapses points sharing a cell", func(t *testing.T) {
		cells := m.ToCells([]r2.Point{{X: 0.01, Y: 0.01}, {X: 0.09, Y: 0.02}, {X: 0.5, Y: 0.5}})
		test.That(t, len(cells), test.ShouldEqual, 2)
	})
}

func TestWindow(t *testing.T) {
	test.That(t, WindowBound(2.0, 0.1), test.ShouldEqual, 20)
	test.That(t, WindowBound(0.25, 0.1), test.ShouldEqual, 3)

	w := NewWindow(Cell{5, -5}, 2)
	test.That(t, w.Size(), test.ShouldEqual, 25)
	test.That(t, len(w.Cells()), test.ShouldEqual, 25)
	test.That(t, w.Contains(Cell{7, -3}), test.ShouldBeTrue)
	test.That(t, w.Contains(Cell{8, -5}), test.ShouldBeFalse)
	test.That(t, w.Contains(Cell{5, -8}), test.ShouldBeFalse)
	for _, c := range w.Cells() {
		test.That(t, w.Contains(c), test.ShouldBeTrue)
	}
}

func TestDiskOffsets(t *testing.T) {
	test.That(t, DiskOffsets(0), test.ShouldResemble, []Cell{{0, 0}})
	test.That(t, len(DiskOffsets(1)), test.ShouldEqual, 5)
	test.That(t, len(DiskOffsets(2)), test.ShouldEqual, 13)
	for _, o := range DiskOffsets(3) {
		test.That(t, o.X*o.X+o.Y*o.Y, test.ShouldBeLessThanOrEqualTo, 9)
	}
	test.That(t, FootprintCells(0.15, 0.1), test.ShouldEqual, 2)
	test.That(t, FootprintCells(0.1, 0.1), test.ShouldEqual, 1)
	test.That(t, FootprintCells(0, 0.1), test.ShouldEqual, 0)
}

func TestSafetyMap(t *testing.T) {
	mapper := NewMapper(0.1)
	window := NewWindow(Cell{0, 0}, 5)

	t.Run("no safe cell's footprint touches an obstacle", func(t *testing.T) {
		obstacles := map[Cell]struct{}{{1, 1}: {}, {-2, 3}: {}, {0, -4}: {}}
		disk := DiskOffsets(2)
		sm := NewSafetyMap(window, obstacles, disk)
		test.That(t, sm.FreeCount(), test.ShouldEqual, window.Size()-3)

		safe := sm.SafeCells()
		test.That(t, len(safe), test.ShouldBeGreaterThan, 0)
		for _, c := range safe {
			for _, o := range disk {
				_, hit := obstacles[c.Add(o)]
				test.That(t, hit, test.ShouldBeFalse)
				test.That(t, window.Contains(c.Add(o)), test.ShouldBeTrue)
			}
		}
	})

	t.Run("boundary cells without full clearance are unsafe", func(t *testing.T) {
		sm := NewSafetyMap(window, nil, DiskOffsets(1))
		test.That(t, sm.IsSafe(Cell{5, 0}), test.ShouldBeFalse)
		test.That(t, sm.IsSafe(Cell{4, 0}), test.ShouldBeTrue)
		test.That(t, sm.IsSafe(Cell{9, 9}), test.ShouldBeFalse)
	})

	t.Run("goal in a safe cell is kept", func(t *testing.T) {
		sm := NewSafetyMap(window, nil, DiskOffsets(1))
		goal := r2.Point{X: 0.12, Y: 0.27}
		c, ok := sm.ResolveGoal(goal, mapper)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, c, test.ShouldResemble, mapper.ToCell(goal))
	})

	t.Run("unsafe goal snaps to the nearest safe cell", func(t *testing.T) {
		obstacles := map[Cell]struct{}{{2, 2}: {}}
		sm := NewSafetyMap(window, obstacles, DiskOffsets(1))
		goal := mapper.ToMetric(Cell{2, 2})
		c, ok := sm.ResolveGoal(goal, mapper)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, c, test.ShouldNotResemble, Cell{2, 2})
		test.That(t, sm.IsSafe(c), test.ShouldBeTrue)

		got := mapper.ToMetric(c).Sub(goal).Norm()
		for _, other := range sm.SafeCells() {
			test.That(t, got, test.ShouldBeLessThanOrEqualTo, mapper.ToMetric(other).Sub(goal).Norm()+1e-12)
		}
	})

	t.Run("goal outside the window snaps inside", func(t *testing.T) {
		sm := NewSafetyMap(window, nil, DiskOffsets(1))
		c, ok := sm.ResolveGoal(r2.Point{X: 5, Y: 0.05}, mapper)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, c, test.ShouldResemble, Cell{4, 0})
	})

	t.Run("no safe cells reports failure", func(t *testing.T) {
		sm := NewSafetyMap(NewWindow(Cell{0, 0}, 1), nil, DiskOffsets(2))
		test.That(t, len(sm.SafeCells()), test.ShouldEqual, 0)
		_, ok := sm.ResolveGoal(r2.Point{X: 0.05, Y: 0.05}, mapper)
		test.That(t, ok, test.ShouldBeFalse)
	})
}

func TestCellAdd(t *testing.T) {
	test.That(t, Cell{1, 2}.Add(Cell{-3, 4}), test.ShouldResemble, Cell{-2, 6})
}
