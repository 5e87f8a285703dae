package systems

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

// point is a test entity addressed by index into pointLocator.
type point int

type pointLocator struct {
	pos    []r2.Vec
	stable []r2.Vec
}

func (l *pointLocator) Position(e point) r2.Vec             { return l.pos[e] }
func (l *pointLocator) StablePosition(e point) r2.Vec       { return l.stable[e] }
func (l *pointLocator) SetStablePosition(e point, p r2.Vec) { l.stable[e] = p }

func (l *pointLocator) add(p r2.Vec) point {
	l.pos = append(l.pos, p)
	l.stable = append(l.stable, r2.Vec{})
	return point(len(l.pos) - 1)
}

// threeByThree returns a 30x30 grid of 10-unit cells with one point per cell.
func threeByThree(t *testing.T, wrap bool) (*SpatialGrid[point], *pointLocator) {
	t.Helper()
	loc := &pointLocator{}
	g, err := NewSpatialGrid[point](30, 30, 10, 10, wrap, loc)
	if err != nil {
		t.Fatalf("NewSpatialGrid: %v", err)
	}
	for y := 0.0; y <= 20; y += 10 {
		for x := 0.0; x <= 20; x += 10 {
			g.Insert(loc.add(r2.Vec{X: x, Y: y}))
		}
	}
	return g, loc
}

func TestNewSpatialGridDimensions(t *testing.T) {
	loc := &pointLocator{}
	g, err := NewSpatialGrid[point](95, 40, 10, 10, true, loc)
	if err != nil {
		t.Fatal(err)
	}
	if g.Columns() != 10 || g.Rows() != 4 {
		t.Errorf("expected 10x4 cells, got %dx%d", g.Columns(), g.Rows())
	}
}

func TestNewSpatialGridInvalid(t *testing.T) {
	tests := []struct {
		name           string
		w, h, cw, ch   float64
		withoutLocator bool
	}{
		{name: "zero width", w: 0, h: 10, cw: 1, ch: 1},
		{name: "negative height", w: 10, h: -1, cw: 1, ch: 1},
		{name: "zero cell", w: 10, h: 10, cw: 0, ch: 1},
		{name: "nil locator", w: 10, h: 10, cw: 1, ch: 1, withoutLocator: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc Locator[point] = &pointLocator{}
			if tt.withoutLocator {
				loc = nil
			}
			_, err := NewSpatialGrid(tt.w, tt.h, tt.cw, tt.ch, false, loc)
			if !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}

func TestQueryVisitsWholeNeighborhoodOnce(t *testing.T) {
	g, loc := threeByThree(t, false)

	seen := make(map[point]int)
	q := g.Query(r2.Vec{X: 10, Y: 10})
	for q.Next() {
		seen[q.Get()]++
	}

	if len(seen) != len(loc.pos) {
		t.Fatalf("expected %d entities, visited %d", len(loc.pos), len(seen))
	}
	for e, n := range seen {
		if n != 1 {
			t.Errorf("entity %d visited %d times", e, n)
		}
	}

	// Exhausted cursors stay exhausted
	if q.Next() {
		t.Error("expected exhausted query to stay exhausted")
	}
	if !q.Done() {
		t.Error("expected Done after exhaustion")
	}
}

func TestQueryCornerWithoutWrap(t *testing.T) {
	g, _ := threeByThree(t, false)

	c := g.CellAt(r2.Vec{X: 0, Y: 0})
	nils := 0
	for _, n := range c.Neighbors {
		if n == nil {
			nils++
		}
	}
	if nils != 5 {
		t.Errorf("expected 5 missing neighbors at corner, got %d", nils)
	}

	count := 0
	for range g.Neighbors(r2.Vec{X: 1, Y: 1}) {
		count++
	}
	if count != 4 {
		t.Errorf("expected 4 entities around corner, got %d", count)
	}
}

func TestQueryCornerWithWrap(t *testing.T) {
	g, loc := threeByThree(t, true)

	c := g.CellAt(r2.Vec{X: 0, Y: 0})
	for i, n := range c.Neighbors {
		if n == nil {
			t.Errorf("neighbor %d is nil on a wrapped grid", i)
		}
	}
	// top-left wraps to bottom-right
	if n := c.Neighbors[0]; n.Column != 2 || n.Row != 2 {
		t.Errorf("expected wrapped neighbor (2,2), got (%d,%d)", n.Column, n.Row)
	}

	count := 0
	for range g.Neighbors(r2.Vec{X: 1, Y: 1}) {
		count++
	}
	if count != len(loc.pos) {
		t.Errorf("expected all %d entities on a wrapped 3x3 grid, got %d", len(loc.pos), count)
	}
}

func TestSmallWrappedGridDeduplicatesCells(t *testing.T) {
	loc := &pointLocator{}
	g, err := NewSpatialGrid[point](20, 10, 10, 10, true, loc)
	if err != nil {
		t.Fatal(err)
	}
	g.Insert(loc.add(r2.Vec{X: 1, Y: 1}))
	g.Insert(loc.add(r2.Vec{X: 11, Y: 1}))

	count := 0
	for range g.Neighbors(r2.Vec{X: 1, Y: 1}) {
		count++
	}
	if count != 2 {
		t.Errorf("expected each entity once on an aliased grid, got %d visits", count)
	}
}

func TestLazyMembership(t *testing.T) {
	loc := &pointLocator{}
	g, err := NewSpatialGrid[point](100, 100, 10, 10, false, loc)
	if err != nil {
		t.Fatal(err)
	}
	e := loc.add(r2.Vec{X: 5, Y: 5})
	g.Insert(e)

	if loc.stable[e] != loc.pos[e] {
		t.Fatalf("Insert should record the stable position")
	}

	// Move across a cell boundary without updating
	loc.pos[e] = r2.Vec{X: 55, Y: 5}
	if g.CellAt(loc.pos[e]).Contains(e) {
		t.Error("stale: new cell should not contain entity before Update")
	}
	if !g.CellAt(r2.Vec{X: 5, Y: 5}).Contains(e) {
		t.Error("stale: old cell should still contain entity")
	}

	g.Update(e)
	if !g.CellAt(loc.pos[e]).Contains(e) {
		t.Error("fresh: new cell should contain entity after Update")
	}
	if g.CellAt(r2.Vec{X: 5, Y: 5}).Contains(e) {
		t.Error("fresh: old cell should no longer contain entity")
	}
	if g.Len() != 1 {
		t.Errorf("expected 1 entity, got %d", g.Len())
	}

	// Move inside the same cell: only the stable position changes
	loc.pos[e] = r2.Vec{X: 57, Y: 8}
	g.Update(e)
	if loc.stable[e] != loc.pos[e] {
		t.Errorf("expected stable position refreshed to %v, got %v", loc.pos[e], loc.stable[e])
	}

	g.Erase(e)
	if g.CellAt(loc.pos[e]).Contains(e) || g.Len() != 0 {
		t.Error("expected entity gone after Erase")
	}
}

func TestOutOfPlaneClampsToBorder(t *testing.T) {
	loc := &pointLocator{}
	g, err := NewSpatialGrid[point](30, 30, 10, 10, false, loc)
	if err != nil {
		t.Fatal(err)
	}
	e := loc.add(r2.Vec{X: -50, Y: 500})
	g.Insert(e)

	c := g.CellAt(loc.pos[e])
	if c.Column != 0 || c.Row != 2 {
		t.Errorf("expected clamp to (0,2), got (%d,%d)", c.Column, c.Row)
	}
	if !c.Contains(e) {
		t.Error("expected border cell to hold clamped entity")
	}
}

func TestClear(t *testing.T) {
	g, _ := threeByThree(t, true)
	g.Clear()
	if g.Len() != 0 {
		t.Errorf("expected empty grid, got %d", g.Len())
	}
	if q := g.Query(r2.Vec{X: 10, Y: 10}); q.Next() {
		t.Error("expected no entities after Clear")
	}
}
