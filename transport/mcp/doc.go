// Package mcp exposes the Partridge board to AI agents through the Model
// Context Protocol.
//
// Client is a thin proxy: every tool call becomes a REST request against a
// running API server, so an agent and a browser can work on the same
// session.
//
// MCP Tools:
//   - create_session, get_session, list_sessions
//   - board_state: character drawing of the board plus inventory counts
//   - place_square, move_square, remove_square, toggle_lock, reset_board
//   - event_history: paginated board event log
//   - list_configs, puzzle_rules
//
// Rejected board actions come back as tool errors carrying the rejection
// reason and the unchanged board.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	router.Handle("/mcp", client.HTTPHandler())
package mcp
