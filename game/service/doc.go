// Package service provides the business logic layer for the Chain Reaction game.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Move processing and rejection reporting
//   - Session lifecycle management
//   - Move history tracking
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages rule-set loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. The engine is not safe for concurrent use, so every
// operation on a session goes through the service lock. Each session keeps its
// own engine instance with independent state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	// Create a new session
//	sessionInfo, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Place a marker for whoever is on turn
//	result, err := gameService.Move(ctx, sessionInfo.ID, engine.Coord{Row: 0, Col: 0}, "", false)
//
// Events:
//
// Every accepted move yields a "move" event, an "overflow" event when the cell
// burst, one "capture" event per neighbour taken from another player, and then
// either "turn" or "victory". Rejected moves produce no events; the result
// carries a Rejection with a machine-readable code instead.
package service
