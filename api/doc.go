// Package api provides the HTTP REST API for the Partridge board.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "mini"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Board State:
//   - GET /api/sessions/{id}/state - Current board snapshot
//   - GET /api/sessions/{id}/events - Board event log (?page=&limit=&order=)
//
// Actions:
//   - POST /api/sessions/{id}/actions - Any engine action ({"type": "place", "size": 3, "x": 0, "y": 0})
//   - POST /api/sessions/{id}/drag/pickup - {"size": 3} or {"square_id": "..."}
//   - POST /api/sessions/{id}/drag/move - {"x": 120.5, "y": 44} in pixels
//   - POST /api/sessions/{id}/drag/drop - {"x": 120.5, "y": 44} in pixels
//   - POST /api/sessions/{id}/drag/cancel
//   - POST /api/sessions/{id}/squares - Place {"size": 3, "x": 0, "y": 0} in cells
//   - PUT /api/sessions/{id}/squares/{square} - Move {"x": 4, "y": 0}
//   - DELETE /api/sessions/{id}/squares/{square} - Remove
//   - POST /api/sessions/{id}/squares/{square}/lock - Toggle lock
//   - POST /api/sessions/{id}/reset - Clear the board
//
// Configuration:
//   - GET /api/configs - List board configurations
//   - POST /api/configs - Save a board configuration
//   - GET /api/configs/{name} - Get one configuration
//
// Other:
//   - GET /healthz
//   - GET /ws?session={id} - WebSocket upgrade
//
// Action endpoints always answer 200 with an ActionResult. A rejected action
// (overlap, locked square, empty inventory) has "success": false and a
// stable "reason" code. Errors use the body {"error": "message"} with 404
// for an unknown session or config, 400 for a malformed request and 500
// otherwise.
package api
