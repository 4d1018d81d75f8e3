package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Messages are the texts shown to players. Turn, Victory and IllegalMove
// take a single %s verb (the player).
type Messages struct {
	Welcome     string `json:"welcome" yaml:"welcome"`
	Turn        string `json:"turn" yaml:"turn"`
	Victory     string `json:"victory" yaml:"victory"`
	IllegalMove string `json:"illegal_move" yaml:"illegal_move"`
	Overflow    string `json:"overflow,omitempty" yaml:"overflow,omitempty"`
}

// GameConfig is a rule set loaded from a JSON or YAML file
type GameConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Rows        int      `json:"rows" yaml:"rows"`
	Cols        int      `json:"cols" yaml:"cols"`
	Players     []Player `json:"players" yaml:"players"`
	Messages    Messages `json:"messages" yaml:"messages"`
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if config.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidConfig)
	}

	if config.Rows < MinGridDim || config.Rows > MaxGridDim {
		return fmt.Errorf("%w: rows must be between %d and %d, got %d", ErrInvalidConfig, MinGridDim, MaxGridDim, config.Rows)
	}
	if config.Cols < MinGridDim || config.Cols > MaxGridDim {
		return fmt.Errorf("%w: cols must be between %d and %d, got %d", ErrInvalidConfig, MinGridDim, MaxGridDim, config.Cols)
	}

	if err := validatePlayers(config.Players); err != nil {
		return err
	}
	// every player needs somewhere to stand before anyone can win
	if config.Rows*config.Cols < len(config.Players) {
		return fmt.Errorf("%w: %dx%d grid too small for %d players", ErrInvalidConfig, config.Rows, config.Cols, len(config.Players))
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("%w: messages.welcome is required", ErrInvalidConfig)
	}
	for key, format := range map[string]string{
		"turn":         config.Messages.Turn,
		"victory":      config.Messages.Victory,
		"illegal_move": config.Messages.IllegalMove,
	} {
		if !singlePlayerVerb(format) {
			return fmt.Errorf("%w: messages.%s must contain exactly one %%s for the player", ErrInvalidConfig, key)
		}
	}

	return nil
}

// validatePlayers checks the turn order: MinPlayers to MaxPlayers distinct
// ids, none of them reserved
func validatePlayers(players []Player) error {
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return fmt.Errorf("%w: players must number between %d and %d, got %d", ErrInvalidConfig, MinPlayers, MaxPlayers, len(players))
	}
	seen := make(map[Player]bool, len(players))
	for i, p := range players {
		if p == NoWinner || p == Neutral {
			return fmt.Errorf("%w: player %d has reserved id %q", ErrInvalidConfig, i+1, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate player %q", ErrInvalidConfig, p)
		}
		seen[p] = true
	}
	return nil
}

// singlePlayerVerb reports whether format has exactly one verb and it is a
// plain %s. "%%" is a literal percent sign.
func singlePlayerVerb(format string) bool {
	verbs := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			continue
		}
		if i >= len(format) || format[i] != 's' {
			return false
		}
		verbs++
	}
	return verbs == 1
}

// LoadGameConfig loads a game configuration from a .json, .yaml or .yml file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseGameConfig(filepath.Ext(filename), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseGameConfig decodes data according to the file extension ext
func ParseGameConfig(ext string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case ".json", "":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return &config, nil
}

// DefaultConfig returns the classic 10x6 two-player rule set
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Classic 10x6 board for two players",
		Rows:        10,
		Cols:        6,
		Players:     []Player{"A", "B"},
		Messages: Messages{
			Welcome:     "Welcome! Player A starts.",
			Turn:        "Turn %s",
			Victory:     "Winner %s",
			IllegalMove: "Player %s cannot play there",
			Overflow:    "Chain reaction!",
		},
	}
}

// CustomConfig derives an ad-hoc rule set from the classic one
func CustomConfig(rows, cols int, players []Player) *GameConfig {
	config := DefaultConfig()
	config.Name = fmt.Sprintf("custom_%dx%d", rows, cols)
	config.Description = fmt.Sprintf("Custom %dx%d board", rows, cols)
	config.Rows = rows
	config.Cols = cols
	config.Players = append([]Player(nil), players...)
	if len(players) > 0 {
		config.Messages.Welcome = fmt.Sprintf("Welcome! Player %s starts.", players[0])
	}
	return config
}

// InitGameStateFromConfig creates a fresh game state using the provided configuration
func InitGameStateFromConfig(config *GameConfig) (*GameState, error) {
	if config == nil {
		config = DefaultConfig()
	}

	grid, err := NewGrid(config.Rows, config.Cols)
	if err != nil {
		return nil, err
	}

	players := make([]Player, len(config.Players))
	copy(players, config.Players)

	var first Player
	if len(players) > 0 {
		first = players[0]
	}

	return &GameState{
		GameID:            uuid.NewString(),
		ConfigName:        config.Name,
		Grid:              grid,
		Players:           players,
		CurrentPlayer:     first,
		Winner:            NoWinner,
		GameOver:          false,
		Message:           config.Messages.Welcome,
		MoveHistory:       []MoveHistoryEntry{},
		TotalMoves:        0,
		CurrentMoves:      []MoveHistoryEntry{},
		CurrentMovesCount: 0,
	}, nil
}
