package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/partridge-board/game/engine"
	"github.com/wricardo/partridge-board/game/service"
)

// maxRenderedGrid is the largest board drawn as a character grid
const maxRenderedGrid = 60

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
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
		"Partridge Board",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Partridge Board - MCP Interface

This is a thin client that proxies all requests to the REST API server.

PUZZLE OBJECTIVE:
Tile the square board with the whole inventory: one 1x1 square, two 2x2
squares, three 3x3 squares and so on up to N squares of size N. On the
reference board (N=9) the pieces exactly cover a 45x45 grid.

AVAILABLE TOOLS:
- create_session: Create a new board session
- get_session / list_sessions: Inspect sessions
- board_state: Board drawing, inventory counts and placed squares
- place_square: Place a square from the inventory at grid cell (x, y)
- move_square: Move a placed square to a new top-left cell
- remove_square: Return a placed square to the inventory
- toggle_lock: Lock or unlock a placed square
- reset_board: Clear the board
- event_history: Past placements, moves and removals
- list_configs: Available board configurations
- puzzle_rules: Full rules

Coordinates are grid cells with (0,0) at the top-left. A square of size s at
(x, y) covers x..x+s-1 and y..y+s-1.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func squareProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "ID of a placed square (see board_state)",
	}
}

func cellProperty(axis string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     0,
		"description": fmt.Sprintf("Top-left %s cell", axis),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new board session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the board config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active board sessions",
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
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Board operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Get the current board: drawing, inventory counts and placed squares",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_square",
		Description: "Place a square of the given size from the inventory with its top-left corner at (x, y)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"size": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Side length of the square",
				},
				"x": cellProperty("column"),
				"y": cellProperty("row"),
			},
			Required: []string{"session_id", "size", "x", "y"},
		},
	}, c.handlePlaceSquare)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_square",
		Description: "Move a placed, unlocked square so its top-left corner is at (x, y)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"square_id":  squareProperty(),
				"x":          cellProperty("column"),
				"y":          cellProperty("row"),
			},
			Required: []string{"session_id", "square_id", "x", "y"},
		},
	}, c.handleMoveSquare)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_square",
		Description: "Remove a placed, unlocked square and return it to the inventory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"square_id":  squareProperty(),
			},
			Required: []string{"session_id", "square_id"},
		},
	}, c.handleRemoveSquare)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_lock",
		Description: "Lock or unlock a placed square. Locked squares cannot be moved or removed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"square_id":  squareProperty(),
			},
			Required: []string{"session_id", "square_id"},
		},
	}, c.handleToggleLock)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_board",
		Description: "Remove every square and restore the full inventory",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleResetBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_history",
		Description: "Get the board event log with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Events per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc, default)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventHistory)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_rules",
		Description: "Get the complete rules of the puzzle and how the tools map onto them",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePuzzleRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves JSON-RPC MCP messages posted to it
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
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
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func sessionPath(sessionID string, parts ...string) string {
	path := "/api/sessions/" + url.PathEscape(sessionID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// Handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]string{}
	if configID := stringArg(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatBoardState(session.BoardState))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		covered := ""
		if s.BoardState != nil {
			covered = fmt.Sprintf(", Covered: %d/%d", s.BoardState.CoveredCells, s.BoardState.TotalCells)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s%s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), covered)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBoardState(&state)), nil
}

func (c *Client) handlePlaceSquare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	size, okSize := intArg(args, "size")
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okSize || !okX || !okY {
		return mcp.NewToolResultError("size, x and y are required integers"), nil
	}

	body := map[string]int{"size": size, "x": x, "y": y}
	return c.action(ctx, "POST", sessionPath(stringArg(args, "session_id"), "squares"), body)
}

func (c *Client) handleMoveSquare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	path := sessionPath(stringArg(args, "session_id"), "squares", stringArg(args, "square_id"))
	return c.action(ctx, "PUT", path, map[string]int{"x": x, "y": y})
}

func (c *Client) handleRemoveSquare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := sessionPath(stringArg(args, "session_id"), "squares", stringArg(args, "square_id"))
	return c.action(ctx, "DELETE", path, nil)
}

func (c *Client) handleToggleLock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := sessionPath(stringArg(args, "session_id"), "squares", stringArg(args, "square_id"), "lock")
	return c.action(ctx, "POST", path, nil)
}

func (c *Client) handleResetBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := sessionPath(stringArg(arguments(request), "session_id"), "reset")
	return c.action(ctx, "POST", path, nil)
}

// action posts one board command and formats the result. A rejected action is
// reported as a tool error so the agent notices it.
func (c *Client) action(ctx context.Context, method, path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall(ctx, method, path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatActionResult(&result)
	if !result.Success {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleEventHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		query.Set("order", order)
	}

	path := sessionPath(stringArg(args, "session_id"), "events")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		tiling := "sandbox"
		if config.ExactTiling {
			tiling = "exact tiling"
		}
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Squares: 1..%d, %s\n\n",
			config.Name, config.ConfigID, config.Description,
			config.GridSize, config.GridSize, config.SquareSizes, tiling)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handlePuzzleRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(puzzleRules), nil
}

const puzzleRules = `Partridge Board - Rules

THE PUZZLE:
The inventory holds n squares of side n for every n from 1 to N: one 1x1,
two 2x2, three 3x3 ... N squares of NxN. Their total area is
1³ + 2³ + ... + N³ = (N(N+1)/2)², which is exactly the area of a square
board of side N(N+1)/2. For N=9 that is 2025 cells, a 45x45 board.
The goal is to cover the board with every square and no overlaps.

COORDINATES:
• Cells are addressed (x, y) with (0,0) at the top-left
• A square of size s placed at (x, y) covers columns x..x+s-1 and rows y..y+s-1
• It must lie fully inside the board: 0 <= x and x+s <= grid size (same for y)

RULES:
• place_square takes one square of that size from the inventory
• A placement that overlaps another square or leaves the board is rejected
  and nothing changes
• A size whose inventory is used up cannot be placed
• move_square repositions a square; its own old position never blocks it
• remove_square returns the square to the inventory
• Locked squares cannot be moved or removed until unlocked with toggle_lock
• reset_board clears everything and restores the full inventory

REJECTION REASONS:
• invalid_placement - overlap or out of bounds
• inventory_exhausted - no squares of that size left
• square_locked - the square is locked
• not_found - no square with that ID
• invalid_size - size outside 1..N

TIPS:
• Use board_state often: it draws the board with each cell showing the size
  of the square covering it ('.' is empty)
• Lock squares you are confident about so they cannot be moved by mistake
• The puzzle is solved when coverage reaches 100% with an empty inventory`

// Formatting

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatBoardState(session.BoardState))
}

func formatBoardState(state *engine.GameState) string {
	if state == nil {
		return "No board state available"
	}

	var b strings.Builder
	percent := 0.0
	if state.TotalCells > 0 {
		percent = 100 * float64(state.CoveredCells) / float64(state.TotalCells)
	}
	fmt.Fprintf(&b, "Board: %s %dx%d | Covered: %d/%d (%.1f%%) | Squares placed: %d\n",
		state.ConfigName, state.GridSize, state.GridSize,
		state.CoveredCells, state.TotalCells, percent, len(state.Squares))

	b.WriteString("Inventory (size: remaining/total):")
	for _, count := range state.Counts {
		fmt.Fprintf(&b, " %d:%d/%d", count.Size, count.Remaining, count.Total)
	}
	b.WriteString("\n")

	if state.Drag != nil && state.Drag.Active() {
		fmt.Fprintf(&b, "Dragging: size %d from %s\n", state.Drag.Size, state.Drag.Source)
	}

	if grid := renderGrid(state); grid != "" {
		b.WriteString("\n")
		b.WriteString(grid)
	}

	if len(state.Squares) > 0 {
		b.WriteString("\nPlaced squares:\n")
		squares := append([]engine.PlacedSquare(nil), state.Squares...)
		sort.SliceStable(squares, func(i, j int) bool {
			if squares[i].Y != squares[j].Y {
				return squares[i].Y < squares[j].Y
			}
			return squares[i].X < squares[j].X
		})
		for _, sq := range squares {
			lock := ""
			if sq.Locked {
				lock = " [locked]"
			}
			fmt.Fprintf(&b, "- %s size %d at (%d,%d)%s\n", sq.ID, sq.Size, sq.X, sq.Y, lock)
		}
	}

	if state.Complete {
		b.WriteString("\nSOLVED! The board is fully tiled.")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

// renderGrid draws one character per cell: the size of the covering square
// (1-9, then a, b, c), '.' when empty.
func renderGrid(state *engine.GameState) string {
	n := state.GridSize
	if n <= 0 || n > maxRenderedGrid {
		return ""
	}

	rows := make([][]byte, n)
	for y := range rows {
		rows[y] = bytes.Repeat([]byte{'.'}, n)
	}
	for _, sq := range state.Squares {
		ch := sizeChar(sq.Size)
		for y := sq.Y; y < sq.Y+sq.Size && y < n; y++ {
			for x := sq.X; x < sq.X+sq.Size && x < n; x++ {
				if x >= 0 && y >= 0 {
					rows[y][x] = ch
				}
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func sizeChar(size int) byte {
	if size < 10 {
		return byte('0' + size)
	}
	return byte('a' + size - 10)
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "OK: %s", result.Action.Type)
	} else {
		fmt.Fprintf(&b, "REJECTED: %s (%s)", result.Action.Type, result.Reason)
	}

	if ev := result.Event(); ev != nil {
		switch ev.Type {
		case engine.EventReset:
			fmt.Fprintf(&b, "\nCleared %d squares", ev.SquaresCleared)
		default:
			fmt.Fprintf(&b, "\n%s %s size %d at (%d,%d), %d of size %d left",
				ev.Type, ev.SquareID, ev.Size, ev.X, ev.Y, ev.SquareCount.Remaining, ev.Size)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(formatBoardState(result.BoardState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event History (Page %d/%d) - Total: %d, Retained: %d\n\n",
		history.Page, history.TotalPages, history.TotalEvents, history.Retained)

	for _, ev := range history.Events {
		switch ev.Type {
		case engine.EventReset:
			fmt.Fprintf(&b, "#%d reset (%d squares cleared)\n", ev.Sequence, ev.SquaresCleared)
		default:
			fmt.Fprintf(&b, "#%d %s %s size %d at (%d,%d) [%d/%d left]\n",
				ev.Sequence, ev.Type, ev.SquareID, ev.Size, ev.X, ev.Y,
				ev.SquareCount.Remaining, ev.SquareCount.Total)
		}
	}
	if len(history.Events) == 0 {
		b.WriteString("(no events)\n")
	}

	return b.String()
}
