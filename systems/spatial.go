// Package systems provides the flocking simulation's spatial index, forces and kinematics.
package systems

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidGrid is returned for grids with non-positive dimensions or no cells.
var ErrInvalidGrid = errors.New("invalid spatial grid dimensions")

// Locator gives the grid access to an entity's live and stable positions.
type Locator[T comparable] interface {
	Position(e T) r2.Vec
	StablePosition(e T) r2.Vec
	SetStablePosition(e T, p r2.Vec)
}

// Cell is one grid bucket. Members are non-owning handles.
type Cell[T comparable] struct {
	Column, Row int

	// Neighbors holds self and the 8 adjacent cells in row-major 3x3 order.
	// Entries are wrapped around the plane or nil at unwrapped borders.
	Neighbors [9]*Cell[T]

	// ring is Neighbors without nils and duplicates (small wrapped grids alias cells).
	ring    []*Cell[T]
	members []T
}

// Len returns the number of entities in the cell.
func (c *Cell[T]) Len() int {
	return len(c.members)
}

// Contains reports whether e is a member of the cell.
func (c *Cell[T]) Contains(e T) bool {
	for _, m := range c.members {
		if m == e {
			return true
		}
	}
	return false
}

func (c *Cell[T]) insert(e T) {
	c.members = append(c.members, e)
}

func (c *Cell[T]) erase(e T) bool {
	for i, m := range c.members {
		if m == e {
			last := len(c.members) - 1
			c.members[i] = c.members[last]
			var zero T
			c.members[last] = zero
			c.members = c.members[:last]
			return true
		}
	}
	return false
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid.
// Membership is lazy: an entity stays in the cell of its stable position
// until Update is called.
type SpatialGrid[T comparable] struct {
	width, height         float64
	cellWidth, cellHeight float64
	cols, rows            int
	wrap                  bool
	cells                 []Cell[T]
	count                 int
	loc                   Locator[T]
}

// NewSpatialGrid creates a grid covering width x height with ceil(width/cellWidth)
// columns and ceil(height/cellHeight) rows.
func NewSpatialGrid[T comparable](width, height, cellWidth, cellHeight float64, wrap bool, loc Locator[T]) (*SpatialGrid[T], error) {
	for _, v := range []float64{width, height, cellWidth, cellHeight} {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: plane %vx%v, cell %vx%v", ErrInvalidGrid, width, height, cellWidth, cellHeight)
		}
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: nil locator", ErrInvalidGrid)
	}

	cols := int(math.Ceil(width / cellWidth))
	rows := int(math.Ceil(height / cellHeight))
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %d columns, %d rows", ErrInvalidGrid, cols, rows)
	}

	g := &SpatialGrid[T]{
		width:      width,
		height:     height,
		cellWidth:  cellWidth,
		cellHeight: cellHeight,
		cols:       cols,
		rows:       rows,
		wrap:       wrap,
		cells:      make([]Cell[T], cols*rows),
		loc:        loc,
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := &g.cells[row*cols+col]
			c.Column = col
			c.Row = row
		}
	}
	for i := range g.cells {
		g.linkNeighborhood(&g.cells[i])
	}

	return g, nil
}

// linkNeighborhood stores the 3x3 block around c.
func (g *SpatialGrid[T]) linkNeighborhood(c *Cell[T]) {
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			n := g.neighborAt(c.Column+i, c.Row+j)
			c.Neighbors[(j+1)*3+i+1] = n
			if n == nil {
				continue
			}
			dup := false
			for _, r := range c.ring {
				if r == n {
					dup = true
					break
				}
			}
			if !dup {
				c.ring = append(c.ring, n)
			}
		}
	}
}

// neighborAt resolves a possibly out-of-range coordinate, wrapping if enabled.
func (g *SpatialGrid[T]) neighborAt(col, row int) *Cell[T] {
	if g.wrap {
		col = ((col % g.cols) + g.cols) % g.cols
		row = ((row % g.rows) + g.rows) % g.rows
	} else if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return nil
	}
	return &g.cells[row*g.cols+col]
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid[T]) cellIndex(p r2.Vec) int {
	col := clampCell(p.X/g.cellWidth, g.cols)
	row := clampCell(p.Y/g.cellHeight, g.rows)
	return row*g.cols + col
}

// clampCell floors v into [0, n). Positions outside the plane land in border cells.
func clampCell(v float64, n int) int {
	if !(v >= 0) {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}

// CellAt returns the cell owning position p.
func (g *SpatialGrid[T]) CellAt(p r2.Vec) *Cell[T] {
	return &g.cells[g.cellIndex(p)]
}

// Cell returns the cell at the given coordinates, or nil if out of range.
func (g *SpatialGrid[T]) Cell(col, row int) *Cell[T] {
	if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return nil
	}
	return &g.cells[row*g.cols+col]
}

// Insert places e in the cell of its current position and records that position as stable.
func (g *SpatialGrid[T]) Insert(e T) {
	p := g.loc.Position(e)
	g.cells[g.cellIndex(p)].insert(e)
	g.loc.SetStablePosition(e, p)
	g.count++
}

// Erase removes e from the cell of its stable position.
func (g *SpatialGrid[T]) Erase(e T) {
	if g.cells[g.cellIndex(g.loc.StablePosition(e))].erase(e) {
		g.count--
	}
}

// Update relocates e if its current position left the cell of its stable position;
// otherwise it only refreshes the stable position.
func (g *SpatialGrid[T]) Update(e T) {
	p := g.loc.Position(e)
	if g.cellIndex(p) != g.cellIndex(g.loc.StablePosition(e)) {
		g.Erase(e)
		g.Insert(e)
		return
	}
	g.loc.SetStablePosition(e, p)
}

// Clear empties every cell without releasing cell storage.
func (g *SpatialGrid[T]) Clear() {
	for i := range g.cells {
		c := &g.cells[i]
		clear(c.members)
		c.members = c.members[:0]
	}
	g.count = 0
}

// Len returns the number of entities in the grid.
func (g *SpatialGrid[T]) Len() int { return g.count }

// Columns returns the number of cell columns.
func (g *SpatialGrid[T]) Columns() int { return g.cols }

// Rows returns the number of cell rows.
func (g *SpatialGrid[T]) Rows() int { return g.rows }

// CellSize returns the cell dimensions.
func (g *SpatialGrid[T]) CellSize() (w, h float64) { return g.cellWidth, g.cellHeight }

// Bounds returns the plane dimensions.
func (g *SpatialGrid[T]) Bounds() (w, h float64) { return g.width, g.height }

// Wraps reports whether neighborhoods wrap around the plane edges.
func (g *SpatialGrid[T]) Wraps() bool { return g.wrap }

// Query starts a single-pass enumeration of every entity in the 3x3 block of
// cells around p. The grid must not be mutated while the query is in use.
func (g *SpatialGrid[T]) Query(p r2.Vec) *GridQuery[T] {
	return &GridQuery[T]{ring: g.cells[g.cellIndex(p)].ring, idx: -1}
}

// Neighbors returns the entities around p as a sequence.
// Each range over the result issues a fresh query.
func (g *SpatialGrid[T]) Neighbors(p r2.Vec) iter.Seq[T] {
	return func(yield func(T) bool) {
		q := g.Query(p)
		for q.Next() {
			if !yield(q.Get()) {
				return
			}
		}
	}
}

// GridQuery is a forward-only cursor over a cell neighborhood.
// It cannot be rewound; once Next returns false it stays exhausted.
type GridQuery[T comparable] struct {
	ring []*Cell[T]
	cell int
	idx  int
}

// Next advances to the next entity, skipping empty cells.
func (q *GridQuery[T]) Next() bool {
	for q.cell < len(q.ring) {
		q.idx++
		if q.idx < len(q.ring[q.cell].members) {
			return true
		}
		q.cell++
		q.idx = -1
	}
	return false
}

// Get returns the current entity. Only valid after Next returned true.
func (q *GridQuery[T]) Get() T {
	return q.ring[q.cell].members[q.idx]
}

// Done reports whether the cursor is exhausted.
func (q *GridQuery[T]) Done() bool {
	return q.cell >= len(q.ring)
}
