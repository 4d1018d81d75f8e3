package service

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
)

// RenderBoard draws the grid one line per row. Neutral cells print as "."
// and owned cells as owner followed by stock, e.g. "A2".
func RenderBoard(g *engine.Grid) []string {
	if g == nil {
		return nil
	}

	cells := g.Cells()
	lines := make([]string, 0, g.Rows())
	for r := 0; r < g.Rows(); r++ {
		tokens := make([]string, g.Cols())
		for c := 0; c < g.Cols(); c++ {
			cell := cells[r*g.Cols()+c]
			if cell.IsNeutral() {
				tokens[c] = "."
				continue
			}
			tokens[c] = fmt.Sprintf("%s%d", cell.Owner, cell.Stock)
		}
		lines = append(lines, strings.Join(tokens, " "))
	}
	return lines
}

// snapshot copies state with its own grid and fills in the derived views,
// so callers can encode it after the service lock is released
func snapshot(state *engine.GameState) *engine.GameState {
	if state == nil {
		return nil
	}

	view := *state
	if state.Grid != nil {
		view.Grid = state.Grid.Clone()
	}
	view.Board = RenderBoard(view.Grid)

	view.OwnedCells = make(map[engine.Player]int, len(view.Players))
	for _, p := range view.Players {
		view.OwnedCells[p] = 0
	}
	if view.Grid != nil {
		for p, n := range view.Grid.OwnedCounts() {
			view.OwnedCells[p] = n
		}
	}
	return &view
}
