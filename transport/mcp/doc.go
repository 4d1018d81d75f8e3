// Package mcp exposes Chain Reaction to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// a running server, and the JSON answer is rendered as text an agent can
// read. No game state lives in this package.
//
// MCP Tools:
//   - create_session: New session from a config_id or a custom rows/cols/players board
//   - list_sessions, get_session, delete_session
//   - game_state: Board, owned cell counts and whose turn it is
//   - describe_cell: Owner, stock, neighbour count and playability of one cell
//   - move: Place one marker at (row, col)
//   - bulk_move: Place several markers in turn order
//   - reset_game: Empty the board
//   - move_history: Paginated history plus the moves since the last reset
//   - list_configs: Available rule sets
//   - game_instructions: Rules and strategy notes
//
// Boards are drawn one row per line, "." for an empty cell and owner plus
// stock for an occupied one:
//
//	. A1 .
//	B3 . A2
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
