package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
	"github.com/wricardo/mcp-training/chainreaction/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Chain Reaction",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chain Reaction - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Own every marker on the board. Players take turns placing one marker on an
empty cell or a cell they already own. A cell holding 4 markers overflows:
it empties and pushes one marker into each orthogonal neighbour, taking that
neighbour over. Overflows chain.

AVAILABLE TOOLS:
- create_session: Create a game from a config or a custom board
- list_sessions: List all active sessions
- get_session: Get session details
- delete_session: Delete a session
- game_state: Get the board and whose turn it is
- describe_cell: Inspect one cell (owner, stock, neighbours, playable)
- move: Place one marker - requires intent explanation
- bulk_move: Place several markers in turn order - requires intent explanation
- reset_game: Start the game over
- move_history: View past moves
- list_configs: List available rule sets
- game_instructions: Get the full rules

NOTE: The 'intent' parameter on move/bulk_move tools serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sessionProp := map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
	coordProps := func() map[string]interface{} {
		return map[string]interface{}{
			"row": map[string]interface{}{
				"type":        "integer",
				"description": "Row of the cell (0-based, top row is 0)",
			},
			"col": map[string]interface{}{
				"type":        "integer",
				"description": "Column of the cell (0-based, left column is 0)",
			},
		}
	}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session from a config, or a custom board when rows/cols are given",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config to use (optional, see list_configs)",
				},
				"rows": map[string]interface{}{
					"type":        "integer",
					"description": "Rows of a custom board (optional)",
				},
				"cols": map[string]interface{}{
					"type":        "integer",
					"description": "Columns of a custom board (optional)",
				},
				"players": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Players of a custom board in turn order (optional, default A and B)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a game session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp},
			Required:   []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, marker counts and whose turn it is",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	moveProps := coordProps()
	moveProps["session_id"] = sessionProp
	moveProps["player"] = map[string]interface{}{
		"type":        "string",
		"description": "Player placing the marker (optional, defaults to whoever's turn it is)",
	}
	moveProps["intent"] = map[string]interface{}{
		"type":        "string",
		"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
	}
	moveProps["reset"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Reset before moving",
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Place one marker for the current player",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: moveProps,
			Required:   []string{"session_id", "row", "col"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: "Place several markers; players alternate in turn order and the batch stops at the first rejected move or a win",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":       "object",
						"properties": coordProps(),
						"required":   []string{"row", "col"},
					},
					"description": "Cells to play, in order",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to an empty board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "asc for oldest first, desc for newest first",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the full rules and some strategy notes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	cellProps := coordProps()
	cellProps["session_id"] = sessionProp
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get owner, stock, neighbour count and playability of one cell. A cell overflows when its stock reaches 4.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: cellProps,
			Required:   []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(sessionID string, parts ...string) string {
	path := "/api/sessions/" + url.PathEscape(sessionID)
	if len(parts) > 0 {
		path += "/" + strings.Join(parts, "/")
	}
	return path
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if rows, ok := intArg(args, "rows"); ok {
		body["rows"] = rows
	}
	if cols, ok := intArg(args, "cols"); ok {
		body["cols"] = cols
	}
	if raw, ok := args["players"].([]interface{}); ok {
		players := make([]string, 0, len(raw))
		for _, p := range raw {
			if s, ok := p.(string); ok {
				players = append(players, s)
			}
		}
		body["players"] = players
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := ""
		if s.GameState != nil {
			if s.GameState.GameOver {
				status = fmt.Sprintf(", Winner: %s", s.GameState.Winner)
			} else {
				status = fmt.Sprintf(", Turn: %s", s.GameState.CurrentPlayer)
			}
		}
		result += fmt.Sprintf("- %s (Config: %s, Created: %s%s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response map[string]string
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

// logIntent records the agent's stated reason for a move
func logIntent(tool, sessionID string, args map[string]interface{}) {
	intent, _ := args["intent"].(string)
	if intent == "" {
		return
	}
	log.WithFields(log.Fields{
		"tool":    tool,
		"session": sessionID,
		"intent":  intent,
	}).Debug("agent intent")
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player"].(string)
	reset, _ := args["reset"].(bool)
	logIntent("move", sessionID, args)

	row, rowOK := intArg(args, "row")
	col, colOK := intArg(args, "col")
	if !rowOK || !colOK {
		return mcp.NewToolResultError("row and col are required integers"), nil
	}

	body := map[string]interface{}{
		"row":   row,
		"col":   col,
		"reset": reset,
	}
	if player != "" {
		body["player"] = player
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	movesRaw, _ := args["moves"].([]interface{})
	reset, _ := args["reset"].(bool)
	logIntent("bulk_move", sessionID, args)

	moves := make([]engine.Coord, 0, len(movesRaw))
	for i, m := range movesRaw {
		entry, ok := m.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("move %d must be an object with row and col", i+1)), nil
		}
		row, rowOK := intArg(entry, "row")
		col, colOK := intArg(entry, "col")
		if !rowOK || !colOK {
			return mcp.NewToolResultError(fmt.Sprintf("move %d is missing row or col", i+1)), nil
		}
		moves = append(moves, engine.Coord{Row: row, Col: col})
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": reset,
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order, _ := args["order"].(string); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Also fetch current segment from live state
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		// If fetching session fails, still return the history
		return mcp.NewToolResultText(formatHistory(&history)), nil
	}

	result := formatHistory(&history)
	result += "\n" + formatCurrentSegment(session.GameState)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		players := make([]string, len(config.Players))
		for i, p := range config.Players {
			players[i] = string(p)
		}
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Players: %s\n\n",
			config.Name, config.ConfigID, config.Description, config.Rows, config.Cols, strings.Join(players, ","))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `💥 Chain Reaction - Complete Instructions

GAME OBJECTIVE:
Be the only player with markers on the board.

GAME MECHANICS:
• Turns: Players move in the fixed order of the session's player list
• Placement: Add one marker to an empty cell or a cell you already own
• Capacity: Every cell holds at most 3 markers at rest
• Overflow: A 4th marker empties the cell and sends one marker to each
  orthogonal neighbour (up, down, left, right). Corners have 2 neighbours,
  edges 3 and interior cells 4. Markers pushed off the board are lost.
• Capture: A neighbour that receives a marker switches to the mover,
  keeping its markers
• Chains: Neighbours that reach 4 overflow in turn, oldest first, until the
  board settles

VICTORY CONDITIONS:
• After a move settles, a player wins when they own every marker and hold
  more than one cell
• The first moves of a game never win on their own; an opponent with no
  cells yet is not beaten

BOARD LEGEND (game_state):
• .  - Empty neutral cell
• A2 - Cell owned by A holding 2 markers
• Coordinates are (row, col), 0-based from the top-left corner

STRATEGY NOTES:
• Cells one marker short of overflow are "critical"; describe_cell shows it
• Corners overflow into only 2 cells, so chains through them stay small
• A critical cell next to an opponent's critical cell is a threat: whoever
  fires first captures the other
• Long chains can sweep the board; count overflows before committing

MOVE RESULTS:
• A rejected move leaves the board untouched and reports why:
  illegal_move, not_your_turn, out_of_bounds or game_over
• bulk_move plays each cell for whoever's turn it is and stops at the first
  rejection or win

SESSION MANAGEMENT:
- Multiple game sessions can run simultaneously
- Each session has a unique 4-character ID
- Sessions keep independent boards and rule sets
- create_session accepts a config_id or a custom rows/cols/players board

Good luck starting chain reactions! 💥`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	row, rowOK := intArg(args, "row")
	col, colOK := intArg(args, "col")
	if !rowOK || !colOK {
		return mcp.NewToolResultError("row and col are required integers"), nil
	}

	var cell service.CellInfo
	path := sessionPath(sessionID, "cells", fmt.Sprint(row), fmt.Sprint(col))
	if err := c.apiCall(ctx, "GET", path, nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(&cell)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	rows, cols := 0, 0
	if state.Grid != nil {
		rows, cols = state.Grid.Rows(), state.Grid.Cols()
	}

	// Header (include cumulative total moves)
	fmt.Fprintf(&result, "Grid: %dx%d | Turn: %s | Moves: %d\n", rows, cols, state.CurrentPlayer, state.TotalMoves)

	if owned := ownedSummary(state); owned != "" {
		result.WriteString("Cells owned: " + owned + "\n")
	}
	result.WriteString("\n")

	// Prefer server-provided board; otherwise derive
	board := state.Board
	if len(board) == 0 {
		board = service.RenderBoard(state.Grid)
	}
	for _, line := range board {
		result.WriteString(line + "\n")
	}

	// Status
	if state.GameOver {
		fmt.Fprintf(&result, "\n🎉 WINNER: %s", state.Winner)
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

// ownedSummary lists owned cell counts in turn order
func ownedSummary(state *engine.GameState) string {
	owned := state.OwnedCells
	if owned == nil && state.Grid != nil {
		owned = state.Grid.OwnedCounts()
	}
	if len(state.Players) == 0 {
		return ""
	}

	parts := make([]string, 0, len(state.Players))
	for _, p := range state.Players {
		parts = append(parts, fmt.Sprintf("%s=%d", p, owned[p]))
	}
	return strings.Join(parts, " ")
}

func formatStep(s *service.StepInfo) string {
	line := fmt.Sprintf("%s (%d,%d) overflows=%d captures=%d waves=%d",
		s.Player, s.Coord.Row, s.Coord.Col, s.Overflows, s.Captures, s.Waves)
	if s.Victory {
		return line + " victory"
	}
	return line + " next=" + string(s.Next)
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move accepted\n")
	} else {
		b.WriteString("✗ Move rejected\n")
	}

	// Compact step summary (if available)
	if result.Step != nil {
		b.WriteString("Step: " + formatStep(result.Step) + "\n")
	}

	// Failure diagnostic (if available)
	if r := result.Rejected; r != nil {
		fmt.Fprintf(&b, "Rejected [%s]: %s plays (%d,%d): %s\n", r.Code, r.Player, r.Coord.Row, r.Coord.Col, r.Reason)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	// Session header
	rows, cols := 0, 0
	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
		if result.GameState.Grid != nil {
			rows, cols = result.GameState.Grid.Rows(), result.GameState.Grid.Cols()
		}
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s • Grid: %dx%d\n", sessionID, configName, rows, cols)

	// Bulk summary
	fmt.Fprintf(&b, "Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d moves\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d [%s]: %s\n", result.StoppedOnMove, result.StopReasonCode, result.StoppedReason)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			fmt.Fprintf(&b, "%d. %s\n", s.Idx, formatStep(&s))
		}
	}

	// Cascade events only; move and turn events repeat the steps
	var cascade []service.GameEvent
	for _, event := range result.Events {
		switch event.Type {
		case service.EventOverflow, service.EventCapture, service.EventVictory, service.EventReset:
			cascade = append(cascade, event)
		}
	}
	if len(cascade) > 0 {
		b.WriteString("\nEvents:\n")
		for _, event := range cascade {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	if n := len(result.PossibleMoves); n > 0 && !result.GameOver {
		fmt.Fprintf(&b, "\nPlayable cells for %s: %d\n", currentPlayer(result.GameState), n)
	}

	// Full state at the end
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func currentPlayer(state *engine.GameState) engine.Player {
	if state == nil {
		return engine.NoWinner
	}
	return state.CurrentPlayer
}

func formatCell(cell *service.CellInfo) string {
	owner := string(cell.Owner)
	if cell.Owner == engine.Neutral {
		owner = "neutral"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cell at (%d, %d):\n", cell.Row, cell.Col)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "Owner: %s\n", owner)
	fmt.Fprintf(&b, "Stock: %d/%d\n", cell.Stock, engine.Capacity)
	fmt.Fprintf(&b, "Neighbours: %d\n", cell.Degree)
	fmt.Fprintf(&b, "Playable by current player: %v\n", cell.Playable)
	if cell.Critical {
		b.WriteString("\n⚠️ CRITICAL: one more marker overflows this cell into its neighbours")
	}
	return b.String()
}

func formatHistoryEntry(num int, move engine.MoveHistoryEntry) string {
	line := fmt.Sprintf("%d. %s (%d,%d) overflows=%d captures=%d",
		num, move.Player, move.Coord.Row, move.Coord.Col, move.Overflows, move.Captures)
	if move.Winner != engine.NoWinner {
		line += " 🎉 " + string(move.Winner) + " wins"
	}
	return line + "\n"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) • Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		b.WriteString(formatHistoryEntry(move.MoveNumber, move))
	}

	return b.String()
}

func formatCurrentSegment(state *engine.GameState) string {
	if state == nil {
		return "Current Segment: unavailable"
	}
	moves := state.CurrentMoves
	header := fmt.Sprintf("Current Game • Moves: %d\n\n", state.CurrentMovesCount)
	if len(moves) == 0 {
		return header + "(no moves since the last reset)"
	}
	var b strings.Builder
	b.WriteString(header)
	for i, move := range moves {
		b.WriteString(formatHistoryEntry(i+1, move))
	}
	return b.String()
}
