// Package service provides the business logic layer for the Partridge board.
//
// The service package implements:
//   - Multi-session board management
//   - Configuration listing and loading
//   - Action dispatch with engine rejections reported as results
//   - Paginated board event history
//
// Core Interfaces:
//
// BoardService is the main service interface providing high-level board
// operations. SessionManager handles session creation, retrieval, and
// lifecycle. ConfigManager manages board configuration loading.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP)
// and the engine. Each session owns one engine; calls are serialized by the
// service so every board sees a single-threaded sequence of actions.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	boardService := service.NewBoardService(sessionMgr, configMgr)
//
//	info, err := boardService.CreateSession(ctx, "partridge")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := boardService.Place(ctx, info.ID, 3, 0, 0)
//	if err == nil && !result.Success {
//		fmt.Println("rejected:", result.Reason)
//	}
package service
