// Package engine provides the placement engine for the Partridge board.
//
// The engine package implements:
//   - Inventory tracking: n squares of size n for n = 1..N
//   - Placement validation: pointer snapping, clamping, bounds and overlap checks
//   - Board state: place, move, remove, lock toggling and reset
//   - Drag sessions: the pick-up / pointer-move / drop / cancel state machine
//   - A reducer that applies input actions to a board snapshot
//
// Core Types:
//
// Board owns the placed squares and the Inventory. Geometry is the pure
// validator. GameEngine coordinates the board with the single active
// DragSession and records BoardEvents for observers. GameState is the JSON
// snapshot handed to transports, and Reduce applies an Action to a snapshot
// without mutating it.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultBoardConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drag a 3x3 square from the toolbar and drop it in the corner
//	eng.PickUp(3, "")
//	preview, _ := eng.PointerMove(21, 21)
//	result, err := eng.Drop(21, 21)
//
// Board Rules:
//
// Squares never overlap and never leave the board. Locked squares cannot be
// moved or removed until unlocked. On the reference 45x45 board the full
// inventory covers exactly 2025 cells, since 1³+2³+...+9³ = 45².
package engine
