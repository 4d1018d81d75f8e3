package engine

import "fmt"

// pendingSpread is an overflowed cell waiting to push markers to its neighbours
type pendingSpread struct {
	at   Coord
	wave int
}

// cascadeLimit bounds queue processing for a grid. Any finite grid
// stabilizes well below it, so hitting the bound means the engine is broken.
var cascadeLimit = func(g *Grid) int {
	n := g.rows * g.cols
	return n*n*Capacity + Capacity
}

// ApplyMove places one marker for player at c and resolves the resulting
// overflow cascade breadth-first until the grid is stable.
//
// The target must be neutral or already owned by player; otherwise the grid
// is left untouched and an ErrIllegalMove MoveError is returned. Whose turn it
// is is not checked here, that belongs to TurnManager.
func ApplyMove(g *Grid, c Coord, player Player) (*CascadeReport, error) {
	if player == Neutral || player == NoWinner {
		return nil, moveError(ErrIllegalMove, c, player, "%q is not a player", player)
	}

	cell, err := g.Get(c)
	if err != nil {
		return nil, moveError(ErrOutOfBounds, c, player, "outside %dx%d grid", g.rows, g.cols)
	}
	if cell.Owner != Neutral && cell.Owner != player {
		return nil, moveError(ErrIllegalMove, c, player, "cell owned by %s", cell.Owner)
	}

	report := &CascadeReport{
		Overflows: []Coord{},
		Captures:  []Capture{},
	}

	stock := cell.Stock + 1
	if stock < Capacity {
		g.setCell(c, stock, player)
		return report, validateAfterMove(g, c)
	}

	g.setCell(c, 0, Neutral)
	report.Overflows = append(report.Overflows, c)

	limit := cascadeLimit(g)
	queue := []pendingSpread{{at: c, wave: 1}}
	for head := 0; head < len(queue); head++ {
		report.QueueOps++
		if report.QueueOps > limit {
			return report, moveError(ErrInvariantViolation, c, player, "cascade exceeded %d queue operations", limit)
		}

		src := queue[head]
		if src.wave > report.Waves {
			report.Waves = src.wave
		}

		for n := range g.Neighbors(src.at) {
			prev := g.cells[g.index(n)]
			if prev.Owner != Neutral && prev.Owner != player {
				report.Captures = append(report.Captures, Capture{Coord: n, From: prev.Owner, To: player})
			}

			next := prev.Stock + 1
			if next >= Capacity {
				g.setCell(n, 0, Neutral)
				report.Overflows = append(report.Overflows, n)
				queue = append(queue, pendingSpread{at: n, wave: src.wave + 1})
				continue
			}
			g.setCell(n, next, player)
		}
	}

	return report, validateAfterMove(g, c)
}

// validateAfterMove checks the whole grid once a move has settled
func validateAfterMove(g *Grid, c Coord) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("after move at (%d,%d): %w", c.Row, c.Col, err)
	}
	return nil
}
