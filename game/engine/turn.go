package engine

import "fmt"

// TurnManager cycles through the configured players in a fixed order
type TurnManager struct {
	players []Player
	current int
}

// NewTurnManager starts with the first player
func NewTurnManager(players []Player) (*TurnManager, error) {
	if len(players) < MinPlayers {
		return nil, fmt.Errorf("%w: need at least %d players, got %d", ErrInvalidConfig, MinPlayers, len(players))
	}
	ordered := make([]Player, len(players))
	copy(ordered, players)
	return &TurnManager{players: ordered}, nil
}

// Current returns the player whose turn it is
func (t *TurnManager) Current() Player {
	return t.players[t.current]
}

// Players returns the turn order
func (t *TurnManager) Players() []Player {
	out := make([]Player, len(t.players))
	copy(out, t.players)
	return out
}

// IsMoveAllowed reports whether player may place a marker on cell
func (t *TurnManager) IsMoveAllowed(cell Cell, player Player) bool {
	return cell.Owner == Neutral || cell.Owner == player
}

// Advance moves to the next player. Call only after a successful move.
func (t *TurnManager) Advance() Player {
	t.current = (t.current + 1) % len(t.players)
	return t.Current()
}

// Reset goes back to the first player
func (t *TurnManager) Reset() {
	t.current = 0
}

// SetCurrent restores the turn to player, used when loading saved state
func (t *TurnManager) SetCurrent(player Player) error {
	for i, p := range t.players {
		if p == player {
			t.current = i
			return nil
		}
	}
	return fmt.Errorf("%w: unknown player %q", ErrInvalidConfig, player)
}

// has reports whether player takes part in the game
func (t *TurnManager) has(player Player) bool {
	for _, p := range t.players {
		if p == player {
			return true
		}
	}
	return false
}
