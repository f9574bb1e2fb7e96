package service

import (
	"errors"
	"time"

	"github.com/wricardo/partridge-board/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidRequest  = errors.New("invalid request")
)

// SessionInfo provides information about a board session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	BoardState     *engine.GameState   `json:"board_state"`
	BoardConfig    *engine.BoardConfig `json:"board_config"`
}

// ActionResult is the outcome of one action against a session. Engine
// rejections are reported here with Success=false rather than as errors.
type ActionResult struct {
	Success    bool              `json:"success"`
	Action     engine.Action     `json:"action"`
	Message    string            `json:"message"`
	Reason     string            `json:"reason,omitempty"`
	Outcome    *engine.Outcome   `json:"outcome,omitempty"`
	BoardState *engine.GameState `json:"board_state"`
}

// Event returns the board event produced by the action, if any
func (r *ActionResult) Event() *engine.BoardEvent {
	if r == nil || r.Outcome == nil {
		return nil
	}
	return r.Outcome.Event
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains a page of the board event log
type HistoryResponse struct {
	Events      []engine.BoardEvent `json:"events"`
	TotalEvents int                 `json:"total_events"`
	Retained    int                 `json:"retained"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// ConfigInfo provides information about a board configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	GridSize    int    `json:"grid_size"`
	CellSize    int    `json:"cell_size"`
	SquareSizes int    `json:"square_sizes"`
	ExactTiling bool   `json:"exact_tiling"`
}
