// Package session provides session management for the Partridge board.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session expiration and periodic cleanup
//
// Core Types:
//
// Manager is the session manager that handles all session operations.
// Each service.Session owns its own engine instance, so boards never share
// state.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs generated from crypto/rand. Lookups are
// case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", boardConfig)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//	sessions := manager.List()
//
//	// Expire sessions idle for more than an hour, checking every 5 minutes
//	go manager.RunCleanup(ctx, 5*time.Minute, time.Hour)
//
// Sessions live in memory only and are gone when the process exits.
package session
