package service

import (
	"time"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
)

// Event types emitted by the service and forwarded over WebSocket
const (
	EventMove     = "move"
	EventOverflow = "overflow"
	EventCapture  = "capture"
	EventTurn     = "turn"
	EventVictory  = "victory"
	EventReset    = "reset"
)

// Rejection codes for moves the engine refused
const (
	RejectIllegalMove = "illegal_move"
	RejectNotYourTurn = "not_your_turn"
	RejectOutOfBounds = "out_of_bounds"
	RejectGameOver    = "game_over"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// Rejection explains why a move left the game untouched
type Rejection struct {
	Code   string        `json:"code"`
	Reason string        `json:"reason"`
	Player engine.Player `json:"player"`
	Coord  engine.Coord  `json:"coord"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
	Step      *StepInfo         `json:"step,omitempty"`
	Rejected  *Rejection        `json:"rejected,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // illegal_move|not_your_turn|out_of_bounds|game_over|victory
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Failure diagnostics
	Rejected *Rejection `json:"rejected,omitempty"`

	// Final status aids
	GameOver      bool           `json:"game_over"`
	Winner        engine.Player  `json:"winner,omitempty"`
	Message       string         `json:"message,omitempty"`
	PossibleMoves []engine.Coord `json:"possible_moves,omitempty"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx       int           `json:"idx"`
	Player    engine.Player `json:"player"`
	Coord     engine.Coord  `json:"coord"`
	Overflows int           `json:"overflows"`
	Captures  int           `json:"captures"`
	Waves     int           `json:"waves"`
	Next      engine.Player `json:"next_player"`
	Victory   bool          `json:"victory,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string         `json:"type"` // see Event* constants
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Player    engine.Player  `json:"player,omitempty"`
	Coord     *engine.Coord  `json:"coord,omitempty"`
	Cells     []engine.Coord `json:"cells,omitempty"`
	From      engine.Player  `json:"from,omitempty"`
}

// CellInfo describes one cell from the point of view of the player on turn
type CellInfo struct {
	Row      int           `json:"row"`
	Col      int           `json:"col"`
	Stock    int           `json:"stock"`
	Owner    engine.Player `json:"owner"`
	Degree   int           `json:"degree"`
	Critical bool          `json:"critical"` // next marker overflows it
	Playable bool          `json:"playable"` // current player may place here
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string          `json:"filename"`
	ConfigID    string          `json:"config_id"` // The identifier to use for session creation
	Name        string          `json:"name"`      // Display name
	Description string          `json:"description"`
	Rows        int             `json:"rows"`
	Cols        int             `json:"cols"`
	Players     []engine.Player `json:"players"`
}
