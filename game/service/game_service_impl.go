package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/partridge-board/game/engine"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// boardServiceImpl implements the BoardService interface
type boardServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	log      logrus.FieldLogger
	mu       sync.Mutex
}

// Option customizes a BoardService
type Option func(*boardServiceImpl)

// WithLogger sets the logger used for rejected actions and session lifecycle
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *boardServiceImpl) {
		if log != nil {
			s.log = log
		}
	}
}

// NewBoardService creates a new board service instance
func NewBoardService(sessions SessionManager, configs ConfigManager, opts ...Option) BoardService {
	s := &boardServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// configID returns the config_id for a display name, for consistent API responses
func (s *boardServiceImpl) configID(sess *Session) string {
	if sess.ConfigID != "" {
		return sess.ConfigID
	}
	if available, err := s.configs.ListConfigs(); err == nil {
		for _, cfg := range available {
			if cfg.Name == sess.Config.Name {
				return cfg.ConfigID
			}
		}
	}
	return sess.Config.Name
}

func (s *boardServiceImpl) info(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.configID(sess),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		BoardState:     sess.Engine.GetState(),
		BoardConfig:    sess.Engine.GetConfig(),
	}
}

// CreateSession creates a new board session
func (s *boardServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.BoardConfig
	var err error
	configID := strings.TrimSuffix(configName, ".json")
	if configID != "" {
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, fmt.Errorf("config '%s' not found, available configs: %v: %w",
					configID, s.availableConfigIDs(), ErrConfigNotFound)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let the session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.ConfigID = configID

	s.log.WithFields(logrus.Fields{
		"session": sess.ID,
		"config":  config.Name,
	}).Info("session created")

	return s.info(sess), nil
}

func (s *boardServiceImpl) availableConfigIDs() []string {
	ids := []string{}
	if available, err := s.configs.ListConfigs(); err == nil {
		for _, cfg := range available {
			ids = append(ids, cfg.ConfigID)
		}
	}
	return ids
}

// GetSession retrieves session information
func (s *boardServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions ordered by creation time
func (s *boardServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *boardServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return err
	}
	s.log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// Dispatch applies one action to the session board
func (s *boardServiceImpl) Dispatch(ctx context.Context, sessionID string, action engine.Action) (*ActionResult, error) {
	if action.Type == "" {
		return nil, fmt.Errorf("action type is required: %w", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.Engine.Dispatch(action)
	state := sess.Engine.GetState()
	if err != nil {
		if errors.Is(err, engine.ErrUnknownAction) {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidRequest)
		}
		if !engine.IsRejection(err) {
			return nil, fmt.Errorf("dispatching %s: %w", action.Type, err)
		}
		reason := engine.ReasonCode(err)
		s.log.WithFields(logrus.Fields{
			"session": sess.ID,
			"action":  action.Type,
			"reason":  reason,
		}).Debug(err.Error())
		return &ActionResult{
			Success:    false,
			Action:     action,
			Message:    state.Message,
			Reason:     reason,
			BoardState: state,
		}, nil
	}

	return &ActionResult{
		Success:    true,
		Action:     action,
		Message:    state.Message,
		Outcome:    outcome,
		BoardState: state,
	}, nil
}

// PickUp starts a drag from the toolbar (empty squareID) or the board
func (s *boardServiceImpl) PickUp(ctx context.Context, sessionID string, size int, squareID string) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionPickUp, Size: size, SquareID: squareID})
}

// PointerMove updates the drag preview
func (s *boardServiceImpl) PointerMove(ctx context.Context, sessionID string, px, py float64) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionPointerMove, X: px, Y: py})
}

// Drop commits the drag
func (s *boardServiceImpl) Drop(ctx context.Context, sessionID string, px, py float64) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionDrop, X: px, Y: py})
}

// CancelDrag abandons the drag
func (s *boardServiceImpl) CancelDrag(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionCancel})
}

// Place puts a square at grid coordinates
func (s *boardServiceImpl) Place(ctx context.Context, sessionID string, size, x, y int) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionPlace, Size: size, X: float64(x), Y: float64(y)})
}

// Move repositions a square to grid coordinates
func (s *boardServiceImpl) Move(ctx context.Context, sessionID, squareID string, x, y int) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionMove, SquareID: squareID, X: float64(x), Y: float64(y)})
}

// RequestRemove takes a square off the board
func (s *boardServiceImpl) RequestRemove(ctx context.Context, sessionID, squareID string) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionRemove, SquareID: squareID})
}

// ToggleLock flips the lock on a square
func (s *boardServiceImpl) ToggleLock(ctx context.Context, sessionID, squareID string) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionToggleLock, SquareID: squareID})
}

// ResetBoard clears the board
func (s *boardServiceImpl) ResetBoard(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionReset})
}

// GetBoardState returns the current board snapshot
func (s *boardServiceImpl) GetBoardState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetEventHistory returns a page of the board event log
func (s *boardServiceImpl) GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetEvents()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	events := []engine.BoardEvent{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: sess.Engine.GetState().TotalEvents,
		Retained:    total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available board configurations
func (s *boardServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a board configuration by name
func (s *boardServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.BoardConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig validates and stores a board configuration
func (s *boardServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.BoardConfig) error {
	if configName == "" {
		return fmt.Errorf("config name is required: %w", ErrInvalidRequest)
	}
	if config == nil {
		return fmt.Errorf("config body is required: %w", ErrInvalidRequest)
	}
	return s.configs.SaveConfig(configName, config)
}

// session looks up a session and marks it as accessed
func (s *boardServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}
