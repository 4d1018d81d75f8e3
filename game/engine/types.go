package engine

// Player identifies a participant. Players are configured per rule set.
type Player string

const (
	// Neutral owns every empty cell
	Neutral Player = "N"
	// NoWinner is the winner value of an undecided game
	NoWinner Player = ""
)

const (
	// Capacity is the overflow threshold shared by every cell
	Capacity = 4

	// Validation constants
	MinGridDim   = 1
	MaxGridDim   = 50
	MinPlayers   = 2
	MaxPlayers   = 8
	MaxBulkMoves = 50
)

// Coord is a (row, col) position on the grid
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell is the state of a single grid position
type Cell struct {
	Stock int    `json:"stock"`
	Owner Player `json:"owner"`
}

// IsNeutral reports whether nobody owns the cell
func (c Cell) IsNeutral() bool {
	return c.Owner == Neutral
}

// Capture records a neighbour taken over from another player during a cascade
type Capture struct {
	Coord Coord  `json:"coord"`
	From  Player `json:"from"`
	To    Player `json:"to"`
}

// CascadeReport describes how a single move resolved
type CascadeReport struct {
	Overflows []Coord   `json:"overflows"`
	Captures  []Capture `json:"captures"`
	Waves     int       `json:"waves"`
	QueueOps  int       `json:"queue_ops"`
}

// GameState represents the complete game state
type GameState struct {
	GameID        string   `json:"game_id"`
	ConfigName    string   `json:"config_name"`
	Grid          *Grid    `json:"grid"`
	Players       []Player `json:"players"`
	CurrentPlayer Player   `json:"current_player"`
	Winner        Player   `json:"winner,omitempty"`
	GameOver      bool     `json:"game_over"`
	Message       string   `json:"message"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`

	// Computed helper views (not required for core game logic)
	Board      []string       `json:"board,omitempty"`
	OwnedCells map[Player]int `json:"owned_cells,omitempty"`
}

// MoveHistoryEntry represents a single accepted move
type MoveHistoryEntry struct {
	GameID     string `json:"game_id"`
	Player     Player `json:"player"`
	Coord      Coord  `json:"coord"`
	Overflows  int    `json:"overflows"`
	Captures   int    `json:"captures"`
	Waves      int    `json:"waves"`
	Winner     Player `json:"winner,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	MoveNumber int    `json:"move_number"`
}

// MoveOutcome is returned for every accepted move
type MoveOutcome struct {
	Player  Player         `json:"player"`
	Coord   Coord          `json:"coord"`
	Cascade *CascadeReport `json:"cascade"`
	Next    Player         `json:"next_player"`
	Winner  Player         `json:"winner,omitempty"`
}
