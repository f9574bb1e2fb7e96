package service

import (
	"context"
	"time"

	"github.com/wricardo/partridge-board/game/engine"
)

// BoardService defines all board-related operations
type BoardService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Board Operations
	Dispatch(ctx context.Context, sessionID string, action engine.Action) (*ActionResult, error)
	PickUp(ctx context.Context, sessionID string, size int, squareID string) (*ActionResult, error)
	PointerMove(ctx context.Context, sessionID string, px, py float64) (*ActionResult, error)
	Drop(ctx context.Context, sessionID string, px, py float64) (*ActionResult, error)
	CancelDrag(ctx context.Context, sessionID string) (*ActionResult, error)
	Place(ctx context.Context, sessionID string, size, x, y int) (*ActionResult, error)
	Move(ctx context.Context, sessionID, squareID string, x, y int) (*ActionResult, error)
	RequestRemove(ctx context.Context, sessionID, squareID string) (*ActionResult, error)
	ToggleLock(ctx context.Context, sessionID, squareID string) (*ActionResult, error)
	ResetBoard(ctx context.Context, sessionID string) (*ActionResult, error)

	// Board State
	GetBoardState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.BoardConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.BoardConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.BoardConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.BoardConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles board configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.BoardConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.BoardConfig
	SaveConfig(name string, config *engine.BoardConfig) error
}

// Session represents an active board session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.BoardConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
