package engine

import (
	"fmt"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	Winner() (Player, bool)
	CurrentTurn() Player
	CellAt(c Coord) (Cell, error)
	OwnedCounts() map[Player]int

	// Move operations
	Move(c Coord, player Player) (*MoveOutcome, error)
	CanMove(c Coord, player Player) bool
	GetPossibleMoves() []Coord

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access per game.
type GameEngine struct {
	state  *GameState
	config *GameConfig
	turns  *TurnManager
	wins   WinDetector
}

// NewEngine creates a new game engine from a rule set. The rule set must
// pass ValidateGameConfig, which caps boards at MaxGridDim.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return newEngine(config)
}

func newEngine(config *GameConfig) (*GameEngine, error) {
	state, err := InitGameStateFromConfig(config)
	if err != nil {
		return nil, err
	}
	turns, err := NewTurnManager(config.Players)
	if err != nil {
		return nil, err
	}

	return &GameEngine{
		config: config,
		state:  state,
		turns:  turns,
	}, nil
}

// NewEngineWithDefaults creates a new game engine with the classic rule set
func NewEngineWithDefaults() *GameEngine {
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("engine: default config rejected: %v", err))
	}
	return engine
}

// NewGame starts a rows x cols game for players using the default messages.
// Any positive size is accepted; the MaxGridDim cap only applies to rule
// sets.
func NewGame(rows, cols int, players []Player) (*GameEngine, error) {
	if _, err := NewGrid(rows, cols); err != nil {
		return nil, err
	}
	if err := validatePlayers(players); err != nil {
		return nil, err
	}
	return newEngine(CustomConfig(rows, cols, players))
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the game state (used for persistence loading). The
// state must fit the engine's configuration and satisfy the grid invariants.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid == nil {
		return fmt.Errorf("state grid cannot be nil")
	}
	if state.Grid.Rows() != e.config.Rows || state.Grid.Cols() != e.config.Cols {
		return fmt.Errorf("%w: state grid is %dx%d, config wants %dx%d",
			ErrInvalidDimensions, state.Grid.Rows(), state.Grid.Cols(), e.config.Rows, e.config.Cols)
	}
	if err := state.Grid.Validate(); err != nil {
		return err
	}

	turns, err := NewTurnManager(e.config.Players)
	if err != nil {
		return err
	}
	if err := turns.SetCurrent(state.CurrentPlayer); err != nil {
		return err
	}
	if state.Winner != NoWinner && !turns.has(state.Winner) {
		return fmt.Errorf("%w: winner %q is not a player", ErrInvalidConfig, state.Winner)
	}

	state.Players = turns.Players()
	state.GameOver = state.Winner != NoWinner
	if state.MoveHistory == nil {
		state.MoveHistory = []MoveHistoryEntry{}
	}
	if state.CurrentMoves == nil {
		state.CurrentMoves = []MoveHistoryEntry{}
	}

	e.state = state
	e.turns = turns
	return nil
}

// Reset starts a new game with the same configuration
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	state, err := InitGameStateFromConfig(e.config)
	if err != nil {
		// config was validated when it was installed
		panic(fmt.Sprintf("engine: reset with validated config failed: %v", err))
	}
	e.state = state
	e.turns.Reset()

	// Restore cumulative history and totals; clear only the current segment
	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal
	e.state.CurrentMoves = []MoveHistoryEntry{}
	e.state.CurrentMovesCount = 0

	return e.state
}

// IsGameOver returns whether a winner has been declared
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// Winner returns the winner, if any
func (e *GameEngine) Winner() (Player, bool) {
	return e.state.Winner, e.state.Winner != NoWinner
}

// CurrentTurn returns the player expected to move next
func (e *GameEngine) CurrentTurn() Player {
	return e.turns.Current()
}

// CellAt returns the cell at c
func (e *GameEngine) CellAt(c Coord) (Cell, error) {
	return e.state.Grid.Get(c)
}

// OwnedCounts returns how many cells each player owns
func (e *GameEngine) OwnedCounts() map[Player]int {
	counts := e.state.Grid.OwnedCounts()
	for _, p := range e.turns.Players() {
		if _, ok := counts[p]; !ok {
			counts[p] = 0
		}
	}
	return counts
}

// Move places a marker for player at c. Rejected moves leave the state
// untouched and return a *MoveError.
func (e *GameEngine) Move(c Coord, player Player) (*MoveOutcome, error) {
	if err := e.checkMove(c, player); err != nil {
		return nil, err
	}

	report, err := ApplyMove(e.state.Grid, c, player)
	if err != nil {
		return nil, err
	}

	outcome := &MoveOutcome{
		Player:  player,
		Coord:   c,
		Cascade: report,
	}

	if winner, ok := e.wins.Evaluate(e.state.Grid, e.turns.Players()); ok {
		e.state.Winner = winner
		e.state.GameOver = true
		outcome.Winner = winner
	}

	outcome.Next = e.turns.Advance()
	e.state.CurrentPlayer = outcome.Next

	switch {
	case e.state.GameOver:
		e.state.Message = fmt.Sprintf(e.config.Messages.Victory, e.state.Winner)
	case len(report.Overflows) > 0 && e.config.Messages.Overflow != "":
		e.state.Message = e.config.Messages.Overflow + " " + fmt.Sprintf(e.config.Messages.Turn, outcome.Next)
	default:
		e.state.Message = fmt.Sprintf(e.config.Messages.Turn, outcome.Next)
	}

	e.state.AddMoveToHistory(player, c, report)
	return outcome, nil
}

// checkMove applies the turn and ownership rules without touching the grid
func (e *GameEngine) checkMove(c Coord, player Player) error {
	if e.state.GameOver {
		return moveError(ErrIllegalMove, c, player, "game over, %s won", e.state.Winner)
	}
	if !e.turns.has(player) {
		return moveError(ErrIllegalMove, c, player, "%q is not playing", player)
	}
	if current := e.turns.Current(); player != current {
		return moveError(ErrIllegalMove, c, player, "it is %s's turn", current)
	}

	cell, err := e.state.Grid.Get(c)
	if err != nil {
		return moveError(ErrOutOfBounds, c, player, "outside %dx%d grid", e.state.Grid.Rows(), e.state.Grid.Cols())
	}
	if !e.turns.IsMoveAllowed(cell, player) {
		return moveError(ErrIllegalMove, c, player, "cell owned by %s", cell.Owner)
	}
	return nil
}

// CanMove checks if player may place a marker at c right now
func (e *GameEngine) CanMove(c Coord, player Player) bool {
	return e.checkMove(c, player) == nil
}

// GetPossibleMoves returns every coordinate the current player may play
func (e *GameEngine) GetPossibleMoves() []Coord {
	var possible []Coord
	if e.state.GameOver {
		return possible
	}

	current := e.turns.Current()
	for c, cell := range e.state.Grid.All() {
		if e.turns.IsMoveAllowed(cell, current) {
			possible = append(possible, c)
		}
	}
	return possible
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and starts a new game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	state, err := InitGameStateFromConfig(config)
	if err != nil {
		return err
	}
	turns, err := NewTurnManager(config.Players)
	if err != nil {
		return err
	}

	e.config = config
	e.state = state
	e.turns = turns
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// BulkMove plays each coordinate for whoever is on turn, stopping at the
// first rejected move or when the game ends. It returns the accepted outcomes.
func (e *GameEngine) BulkMove(moves []Coord) ([]*MoveOutcome, error) {
	outcomes := make([]*MoveOutcome, 0, len(moves))

	for _, c := range moves {
		if e.IsGameOver() {
			break
		}

		outcome, err := e.Move(c, e.CurrentTurn())
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}
