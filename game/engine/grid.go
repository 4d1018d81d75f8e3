package engine

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Grid owns the cell state of one game. Cells are stored row-major:
// index = row*cols + col.
type Grid struct {
	rows  int
	cols  int
	cells []Cell
}

// orthogonal offsets in up, down, left, right order
var orthogonal = [4]Coord{
	{Row: -1, Col: 0},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
}

// NewGrid creates a rows x cols grid with every cell neutral and empty
func NewGrid(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}

	g := &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]Cell, rows*cols),
	}
	for i := range g.cells {
		g.cells[i] = Cell{Stock: 0, Owner: Neutral}
	}
	return g, nil
}

// Rows returns the number of rows
func (g *Grid) Rows() int {
	return g.rows
}

// Cols returns the number of columns
func (g *Grid) Cols() int {
	return g.cols
}

// InBounds reports whether c lies inside the grid
func (g *Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

func (g *Grid) index(c Coord) int {
	return c.Row*g.cols + c.Col
}

// Get returns the cell at c
func (g *Grid) Get(c Coord) (Cell, error) {
	if !g.InBounds(c) {
		return Cell{}, fmt.Errorf("%w: (%d,%d) not in %dx%d", ErrOutOfBounds, c.Row, c.Col, g.rows, g.cols)
	}
	return g.cells[g.index(c)], nil
}

// Neighbors yields the in-bounds orthogonal neighbours of c. The sequence
// is lazy and can be ranged over any number of times.
func (g *Grid) Neighbors(c Coord) iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		for _, d := range orthogonal {
			n := Coord{Row: c.Row + d.Row, Col: c.Col + d.Col}
			if !g.InBounds(n) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// Degree returns how many neighbours c has: 2 for corners, 3 for edges, 4 inside
func (g *Grid) Degree(c Coord) int {
	n := 0
	for range g.Neighbors(c) {
		n++
	}
	return n
}

// setCell is reserved for the cascade engine. Callers derive coordinates
// from Neighbors or a bounds-checked move, so a bad coordinate is a bug.
func (g *Grid) setCell(c Coord, stock int, owner Player) {
	if !g.InBounds(c) {
		panic(fmt.Sprintf("engine: setCell out of bounds (%d,%d) on %dx%d grid", c.Row, c.Col, g.rows, g.cols))
	}
	g.cells[g.index(c)] = Cell{Stock: stock, Owner: owner}
}

// Cells returns a row-major copy of every cell
func (g *Grid) Cells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

// All yields every coordinate with its cell, row by row
func (g *Grid) All() iter.Seq2[Coord, Cell] {
	return func(yield func(Coord, Cell) bool) {
		for i, cell := range g.cells {
			c := Coord{Row: i / g.cols, Col: i % g.cols}
			if !yield(c, cell) {
				return
			}
		}
	}
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	return &Grid{
		rows:  g.rows,
		cols:  g.cols,
		cells: g.Cells(),
	}
}

// Equal reports whether two grids have the same dimensions and contents
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.rows != other.rows || g.cols != other.cols {
		return false
	}
	for i, cell := range g.cells {
		if cell != other.cells[i] {
			return false
		}
	}
	return true
}

// OwnedCounts returns the number of cells owned by each non-neutral player
func (g *Grid) OwnedCounts() map[Player]int {
	counts := make(map[Player]int)
	for _, cell := range g.cells {
		if cell.Owner != Neutral {
			counts[cell.Owner]++
		}
	}
	return counts
}

// Validate checks the resting-state invariants of every cell
func (g *Grid) Validate() error {
	for c, cell := range g.All() {
		if cell.Stock < 0 || cell.Stock >= Capacity {
			return fmt.Errorf("%w: cell (%d,%d) stock %d outside [0,%d]", ErrInvariantViolation, c.Row, c.Col, cell.Stock, Capacity-1)
		}
		if (cell.Owner == Neutral) != (cell.Stock == 0) {
			return fmt.Errorf("%w: cell (%d,%d) owner %q with stock %d", ErrInvariantViolation, c.Row, c.Col, cell.Owner, cell.Stock)
		}
	}
	return nil
}

type gridJSON struct {
	Rows  int      `json:"rows"`
	Cols  int      `json:"cols"`
	Cells [][]Cell `json:"cells"`
}

// MarshalJSON encodes the grid as a rows x cols matrix
func (g *Grid) MarshalJSON() ([]byte, error) {
	out := gridJSON{
		Rows:  g.rows,
		Cols:  g.cols,
		Cells: make([][]Cell, g.rows),
	}
	for r := 0; r < g.rows; r++ {
		out.Cells[r] = g.cells[r*g.cols : (r+1)*g.cols]
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a matrix produced by MarshalJSON and validates it
func (g *Grid) UnmarshalJSON(data []byte) error {
	var in gridJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	decoded, err := NewGrid(in.Rows, in.Cols)
	if err != nil {
		return err
	}
	if len(in.Cells) != in.Rows {
		return fmt.Errorf("%w: grid has %d rows of cells, want %d", ErrInvalidDimensions, len(in.Cells), in.Rows)
	}
	for r, row := range in.Cells {
		if len(row) != in.Cols {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidDimensions, r, len(row), in.Cols)
		}
		copy(decoded.cells[r*in.Cols:], row)
	}
	if err := decoded.Validate(); err != nil {
		return err
	}

	*g = *decoded
	return nil
}
