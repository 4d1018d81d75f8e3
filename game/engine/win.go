package engine

// minWinningCells is the owned-cell count a sole survivor must exceed.
// A lone cell is not a win.
const minWinningCells = 1

// WinDetector decides whether one player has taken over the board
type WinDetector struct{}

// Evaluate returns the winner when exactly one of players owns cells and
// owns more than one of them.
func (WinDetector) Evaluate(g *Grid, players []Player) (Player, bool) {
	counts := g.OwnedCounts()

	var sole Player
	present := 0
	for _, p := range players {
		if counts[p] > 0 {
			present++
			sole = p
		}
	}

	if present != 1 || counts[sole] <= minWinningCells {
		return NoWinner, false
	}
	return sole, true
}
