// Package api provides the HTTP REST API for Chain Reaction sessions.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session from a config or a custom board
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - GET /api/sessions/{id}/cells/{row}/{col} - One cell with its degree
//   - POST /api/sessions/{id}/move - Place a marker
//   - POST /api/sessions/{id}/bulk-move - Place several markers in turn order
//   - POST /api/sessions/{id}/reset - Start the game over
//   - GET /api/sessions/{id}/history - Move history (page, limit, order)
//
// Configuration:
//   - GET /api/configs - List rule sets
//   - GET /api/configs/{name} - Get a rule set
//   - POST /api/configs - Save a rule set
//
// Other:
//   - GET /ws?session={id} - WebSocket feed of a session
//   - GET /health - Liveness probe
//
// Create session body, all fields optional:
//
//	{"config_id": "classic"}
//	{"rows": 5, "cols": 5, "players": ["A", "B", "C"]}
//
// Move body:
//
//	{"row": 2, "col": 3, "player": "A", "reset": false}
//
// player may be omitted to play for whoever's turn it is. A rejected move
// (illegal cell, wrong turn, out of bounds, game over) still answers 200 with
// success false and a rejected block naming the code.
//
// Bulk move body:
//
//	{"moves": [{"row": 0, "col": 0}, {"row": 1, "col": 1}], "reset": false}
//
// Errors are returned as JSON:
//
//	{"error": "session not found: ab12"}
//
// Unknown sessions and configs answer 404, bad dimensions and coordinates
// 400. An engine invariant violation answers 500.
package api
