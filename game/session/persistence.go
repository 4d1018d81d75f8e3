package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
	"github.com/wricardo/mcp-training/chainreaction/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// The rule set is stored alongside the state so custom boards survive a
// restart; ConfigName is used when an older record has no GameConfig.
type PersistedSessionData struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameConfig     *engine.GameConfig `json:"game_config,omitempty"`
	GameState      *engine.GameState  `json:"game_state"`
}

// encodeSession renders a session the way every backend stores it
func encodeSession(session *service.Session, configID string) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameConfig:     session.Config,
		GameState:      session.Engine.GetState(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}
	return jsonData, nil
}

// decodeSession rebuilds a session and its engine from stored bytes
func decodeSession(jsonData []byte, configs service.ConfigManager) (*service.Session, error) {
	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", data.ID)
	}

	gameConfig := data.GameConfig
	if gameConfig == nil {
		if configs == nil {
			return nil, fmt.Errorf("session %s has no rule set and no config manager", data.ID)
		}
		loaded, err := configs.LoadConfig(data.ConfigName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
		}
		gameConfig = loaded
	}

	gameEngine, err := engine.NewEngine(gameConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := gameEngine.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// configIDFromName returns the config ID (filename without extension) for a display name
func configIDFromName(configs service.ConfigManager, displayName string) string {
	if configs == nil {
		return displayName
	}

	infos, err := configs.ListConfigs()
	if err != nil {
		return displayName
	}
	for _, info := range infos {
		if info.Name == displayName {
			return info.ConfigID
		}
	}

	// If not found, assume the displayName is already the config ID
	return displayName
}
