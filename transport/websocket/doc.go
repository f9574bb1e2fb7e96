// Package websocket provides WebSocket transport for the Partridge board.
//
// The package uses a hub-and-spoke model where a central Hub tracks the
// connections of every session. Each client connection runs a read pump and
// a write pump goroutine.
//
// Message Protocol:
//
// Incoming frames are JSON-encoded engine actions:
//
//	{"type": "pick_up", "size": 3}
//	{"type": "pointer_move", "x": 110.5, "y": 42}
//	{"type": "drop", "x": 110.5, "y": 42}
//
// Outgoing frames are Message values tagged by event:
//   - state_update: the full board state
//   - board_event: one placed/repositioned/removed/locked/unlocked/reset event
//   - action_result: the result of the sender's own action
//   - error: a malformed frame or unknown session
//
// Clients choose their session with the session query parameter. State
// updates and board events go to every client of the session; action
// results go only to the sender.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetDispatcher(boardService)
//	go hub.Run()
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
