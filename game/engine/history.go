package engine

import "time"

// AddMoveToHistory records an accepted move in the game's move history
func (gs *GameState) AddMoveToHistory(player Player, c Coord, report *CascadeReport) {
	entry := MoveHistoryEntry{
		GameID:     gs.GameID,
		Player:     player,
		Coord:      c,
		Winner:     gs.Winner,
		Timestamp:  time.Now().Unix(),
		MoveNumber: gs.TotalMoves + 1,
	}
	if report != nil {
		entry.Overflows = len(report.Overflows)
		entry.Captures = len(report.Captures)
		entry.Waves = report.Waves
	}

	// Append to cumulative history (never cleared by reset) and increment total
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++

	// Append to current segment history and increment its counter
	gs.CurrentMoves = append(gs.CurrentMoves, entry)
	gs.CurrentMovesCount++
}
