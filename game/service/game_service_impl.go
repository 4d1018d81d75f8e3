package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	publisher Publisher
	mu        sync.RWMutex
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// SetPublisher installs p to receive state changes. A nil p stops
// publishing.
func (s *gameServiceImpl) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// publish hands a change to the publisher. Caller holds s.mu.
func (s *gameServiceImpl) publish(sessionID string, state *engine.GameState, events []GameEvent) {
	if s.publisher != nil {
		s.publisher.PublishMove(sessionID, state, events)
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	log.WithFields(log.Fields{"session": session.ID, "config": configID}).Info("session created")
	return s.sessionInfo(session, configID), nil
}

// CreateCustomSession creates a session on an ad-hoc rows x cols board
func (s *gameServiceImpl) CreateCustomSession(ctx context.Context, rows, cols int, players []engine.Player) (*SessionInfo, error) {
	if _, err := engine.NewGrid(rows, cols); err != nil {
		return nil, err
	}
	if len(players) == 0 {
		players = engine.DefaultConfig().Players
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	config := engine.CustomConfig(rows, cols, players)
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.WithFields(log.Fields{"session": session.ID, "rows": rows, "cols": cols, "players": len(players)}).Info("custom session created")
	return s.sessionInfo(session, config.Name), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(session, s.getConfigID(session.Config.Name)), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, s.getConfigID(sess.Config.Name)))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return sessionError(sessionID, err)
	}
	log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// Move places one marker for player. An empty player means whoever is on
// turn. Moves the engine refuses come back as an unsuccessful result with a
// Rejection; only broken engine state is returned as an error.
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, at engine.Coord, player engine.Player, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	if player == engine.NoWinner {
		player = sess.Engine.CurrentTurn()
	}

	outcome, err := sess.Engine.Move(at, player)
	if err != nil {
		var moveErr *engine.MoveError
		if errors.Is(err, engine.ErrInvariantViolation) || !errors.As(err, &moveErr) {
			log.WithFields(log.Fields{
				"session": sessionID,
				"player":  player,
				"row":     at.Row,
				"col":     at.Col,
			}).WithError(err).Error("engine invariant violated")
			return nil, fmt.Errorf("move failed: %w", err)
		}

		rejection := s.rejection(sess, moveErr)
		log.WithFields(log.Fields{
			"session": sessionID,
			"player":  player,
			"row":     at.Row,
			"col":     at.Col,
			"code":    rejection.Code,
		}).Debug("move rejected")

		result := &MoveResult{
			Success:   false,
			GameState: snapshot(sess.Engine.GetState()),
			Message:   fmt.Sprintf(sess.Config.Messages.IllegalMove, player),
			Events:    events,
			Rejected:  rejection,
		}
		if reset {
			s.persist(sessionID, "reset")
			s.publish(sessionID, result.GameState, result.Events)
		}
		return result, nil
	}

	state := sess.Engine.GetState()
	events = append(events, outcomeEvents(outcome)...)
	step := stepInfo(1, outcome)

	log.WithFields(log.Fields{
		"session":   sessionID,
		"player":    player,
		"row":       at.Row,
		"col":       at.Col,
		"overflows": step.Overflows,
		"captures":  step.Captures,
		"waves":     step.Waves,
	}).Debug("move applied")
	if outcome.Winner != engine.NoWinner {
		log.WithFields(log.Fields{"session": sessionID, "winner": outcome.Winner}).Info("game won")
	}

	s.persist(sessionID, "move")

	result := &MoveResult{
		Success:   true,
		GameState: snapshot(state),
		Message:   state.Message,
		Events:    events,
		Step:      &step,
	}
	s.publish(sessionID, result.GameState, result.Events)
	return result, nil
}

// BulkMove plays each coordinate for whoever is on turn, stopping at the
// first rejected move or when the game ends
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []engine.Coord, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	startedOver := sess.Engine.IsGameOver()
	outcomes, err := sess.Engine.BulkMove(moves)

	for i, outcome := range outcomes {
		result.Events = append(result.Events, outcomeEvents(outcome)...)
		result.Steps = append(result.Steps, stepInfo(i+1, outcome))
	}
	result.MovesExecuted = len(outcomes)

	if err != nil {
		var moveErr *engine.MoveError
		if errors.Is(err, engine.ErrInvariantViolation) || !errors.As(err, &moveErr) {
			log.WithFields(log.Fields{
				"session": sessionID,
				"move":    len(outcomes) + 1,
			}).WithError(err).Error("engine invariant violated")
			return nil, fmt.Errorf("bulk move failed: %w", err)
		}

		result.Success = false
		result.Rejected = s.rejection(sess, moveErr)
		result.StopReasonCode = result.Rejected.Code
		result.StoppedOnMove = len(outcomes) + 1
		result.StoppedReason = fmt.Sprintf("move %d rejected: %s", result.StoppedOnMove, moveErr.Reason)
	} else if len(outcomes) < len(moves) {
		result.StoppedOnMove = len(outcomes) + 1
		if startedOver {
			result.StopReasonCode = RejectGameOver
			result.StoppedReason = "game already over"
		} else {
			result.StopReasonCode = EventVictory
			result.StoppedReason = fmt.Sprintf("game won on move %d", len(outcomes))
		}
	}

	state := sess.Engine.GetState()
	result.GameState = snapshot(state)
	result.GameOver = state.GameOver
	result.Winner = state.Winner
	result.Message = state.Message
	result.PossibleMoves = sess.Engine.GetPossibleMoves()

	log.WithFields(log.Fields{
		"session":   sessionID,
		"requested": result.RequestedMoves,
		"executed":  result.MovesExecuted,
		"stop":      result.StopReasonCode,
	}).Debug("bulk move applied")

	s.persist(sessionID, "bulk move")
	if result.MovesExecuted > 0 || reset {
		s.publish(sessionID, result.GameState, result.Events)
	}

	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state := sess.Engine.Reset()

	s.persist(sessionID, "reset")

	snap := snapshot(state)
	s.publish(sessionID, snap, nil)
	return snap, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return snapshot(sess.Engine.GetState()), nil
}

// GetCell describes a single cell
func (s *gameServiceImpl) GetCell(ctx context.Context, sessionID string, at engine.Coord) (*CellInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(sessionID, err)
	}

	cell, err := sess.Engine.CellAt(at)
	if err != nil {
		return nil, err
	}

	grid := sess.Engine.GetState().Grid
	return &CellInfo{
		Row:      at.Row,
		Col:      at.Col,
		Stock:    cell.Stock,
		Owner:    cell.Owner,
		Degree:   grid.Degree(at),
		Critical: cell.Stock == engine.Capacity-1,
		Playable: sess.Engine.CanMove(at, sess.Engine.CurrentTurn()),
	}, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionError(sessionID, err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if err := s.configs.SaveConfig(configName, config); err != nil {
		return err
	}
	log.WithField("config", configName).Info("config saved")
	return nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      snapshot(sess.Engine.GetState()),
		GameConfig:     sess.Config,
	}
}

// persist saves the session, logging rather than failing the operation
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.WithFields(log.Fields{"session": sessionID, "after": after}).WithError(err).Warn("failed to persist session")
	}
}

// rejection classifies a refused move. The engine state is unchanged, so
// the turn and game-over flags still describe why it was refused.
func (s *gameServiceImpl) rejection(sess *Session, moveErr *engine.MoveError) *Rejection {
	code := RejectIllegalMove
	switch {
	case errors.Is(moveErr, engine.ErrOutOfBounds):
		code = RejectOutOfBounds
	case sess.Engine.IsGameOver():
		code = RejectGameOver
	case moveErr.Player != sess.Engine.CurrentTurn():
		code = RejectNotYourTurn
	}

	return &Rejection{
		Code:   code,
		Reason: moveErr.Reason,
		Player: moveErr.Player,
		Coord:  moveErr.Coord,
	}
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      EventReset,
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
	}
}

// outcomeEvents turns one accepted move into game events
func outcomeEvents(outcome *engine.MoveOutcome) []GameEvent {
	now := time.Now()
	at := outcome.Coord

	events := []GameEvent{{
		Type:      EventMove,
		Message:   fmt.Sprintf("%s placed a marker at (%d,%d)", outcome.Player, at.Row, at.Col),
		Timestamp: now,
		Player:    outcome.Player,
		Coord:     &at,
	}}

	if report := outcome.Cascade; report != nil && len(report.Overflows) > 0 {
		events = append(events, GameEvent{
			Type:      EventOverflow,
			Message:   fmt.Sprintf("%d overflows in %d waves", len(report.Overflows), report.Waves),
			Timestamp: now,
			Player:    outcome.Player,
			Coord:     &at,
			Cells:     report.Overflows,
		})
		for _, capture := range report.Captures {
			c := capture.Coord
			events = append(events, GameEvent{
				Type:      EventCapture,
				Message:   fmt.Sprintf("%s took (%d,%d) from %s", capture.To, c.Row, c.Col, capture.From),
				Timestamp: now,
				Player:    capture.To,
				Coord:     &c,
				From:      capture.From,
			})
		}
	}

	if outcome.Winner != engine.NoWinner {
		events = append(events, GameEvent{
			Type:      EventVictory,
			Message:   fmt.Sprintf("%s owns the board", outcome.Winner),
			Timestamp: now,
			Player:    outcome.Winner,
		})
		return events
	}

	events = append(events, GameEvent{
		Type:      EventTurn,
		Message:   fmt.Sprintf("%s to move", outcome.Next),
		Timestamp: now,
		Player:    outcome.Next,
	})
	return events
}

func stepInfo(idx int, outcome *engine.MoveOutcome) StepInfo {
	step := StepInfo{
		Idx:     idx,
		Player:  outcome.Player,
		Coord:   outcome.Coord,
		Next:    outcome.Next,
		Victory: outcome.Winner != engine.NoWinner,
	}
	if report := outcome.Cascade; report != nil {
		step.Overflows = len(report.Overflows)
		step.Captures = len(report.Captures)
		step.Waves = report.Waves
	}
	return step
}

// sessionError keeps ErrSessionNotFound matchable while naming the session
func sessionError(sessionID string, err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return fmt.Errorf("session %s unavailable: %w", sessionID, err)
}
