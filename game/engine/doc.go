// Package engine implements the rules of the Chain Reaction board game.
//
// The engine package implements the game mechanics including:
//   - A rectangular grid of cells, each holding a marker stock and an owner
//   - Overflow cascades resolved breadth-first with a FIFO work queue
//   - Turn rotation over a fixed, configured player order
//   - Win detection from the ownership distribution of the board
//   - Rule-set loading and validation
//
// Core Types:
//
// Grid owns cell state and exposes bounds-checked reads and lazy neighbour
// iteration. ApplyMove is the cascade engine. TurnManager and WinDetector
// hold the turn and victory rules. GameEngine ties them together behind the
// Engine interface, and GameState is the serialisable snapshot of a game.
//
// Usage:
//
//	game, err := engine.NewGame(10, 6, []engine.Player{"A", "B"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := game.Move(engine.Coord{Row: 0, Col: 0}, "A")
//	if errors.Is(err, engine.ErrIllegalMove) {
//		// ignore the input, state is unchanged
//	}
//
//	cell, _ := game.CellAt(engine.Coord{Row: 0, Col: 0})
//	next := game.CurrentTurn()
//
// Game Rules:
//
// A player may add a marker to a neutral cell or one they already own. When
// a cell reaches Capacity markers it overflows: it becomes neutral and empty
// and every orthogonal neighbour gains a marker and switches to the mover,
// possibly overflowing in turn. A player wins once they are the only one
// owning cells and own more than one.
//
// The engine performs no locking and no I/O. Callers serialize moves on a
// given game.
package engine
