package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/partridge-board/game/config"
	"github.com/wricardo/partridge-board/game/engine"
	"github.com/wricardo/partridge-board/game/service"
	"github.com/wricardo/partridge-board/game/session"
	"github.com/wricardo/partridge-board/transport/websocket"
)

// MockBoardService implements service.BoardService for testing
type MockBoardService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Board Operations. Every named operation funnels into DispatchFunc.
	DispatchFunc func(ctx context.Context, sessionID string, action engine.Action) (*service.ActionResult, error)

	// Board State
	GetBoardStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetEventHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.BoardConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, cfg *engine.BoardConfig) error
}

func (m *MockBoardService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockBoardService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockBoardService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockBoardService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockBoardService) Dispatch(ctx context.Context, sessionID string, action engine.Action) (*service.ActionResult, error) {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, sessionID, action)
	}
	return &service.ActionResult{Success: true, Action: action, BoardState: &engine.GameState{}}, nil
}

func (m *MockBoardService) PickUp(ctx context.Context, sessionID string, size int, squareID string) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionPickUp, Size: size, SquareID: squareID})
}

func (m *MockBoardService) PointerMove(ctx context.Context, sessionID string, px, py float64) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionPointerMove, X: px, Y: py})
}

func (m *MockBoardService) Drop(ctx context.Context, sessionID string, px, py float64) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionDrop, X: px, Y: py})
}

func (m *MockBoardService) CancelDrag(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionCancel})
}

func (m *MockBoardService) Place(ctx context.Context, sessionID string, size, x, y int) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionPlace, Size: size, X: float64(x), Y: float64(y)})
}

func (m *MockBoardService) Move(ctx context.Context, sessionID, squareID string, x, y int) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionMove, SquareID: squareID, X: float64(x), Y: float64(y)})
}

func (m *MockBoardService) RequestRemove(ctx context.Context, sessionID, squareID string) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionRemove, SquareID: squareID})
}

func (m *MockBoardService) ToggleLock(ctx context.Context, sessionID, squareID string) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionToggleLock, SquareID: squareID})
}

func (m *MockBoardService) ResetBoard(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	return m.Dispatch(ctx, sessionID, engine.Action{Type: engine.ActionReset})
}

func (m *MockBoardService) GetBoardState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetBoardStateFunc != nil {
		return m.GetBoardStateFunc(ctx, sessionID)
	}
	return &engine.GameState{GridSize: 45}, nil
}

func (m *MockBoardService) GetEventHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetEventHistoryFunc != nil {
		return m.GetEventHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Events: []engine.BoardEvent{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockBoardService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockBoardService) LoadConfig(ctx context.Context, configName string) (*engine.BoardConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.BoardConfig{Name: configName, Description: "Test config"}, nil
}

func (m *MockBoardService) SaveConfig(ctx context.Context, configName string, cfg *engine.BoardConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, cfg)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService *MockBoardService) *Server {
	return NewServer(mockService, websocket.NewHub())
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockBoardService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockBoardService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "a1b2", ConfigName: "partridge"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "a1b2" {
					t.Errorf("Expected session ID a1b2, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with config_id",
			requestBody: map[string]string{"config_id": "mini"},
			setupMock: func(m *MockBoardService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "c3d4", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != "mini" {
					t.Errorf("Expected config name 'mini', got %s", resp.ConfigName)
				}
			},
		},
		{
			name:        "Legacy config_name field",
			requestBody: map[string]string{"config_name": "practice"},
			setupMock: func(m *MockBoardService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "practice" {
						t.Errorf("Expected config name 'practice', got %s", configName)
					}
					return &service.SessionInfo{ID: "e5f6", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockBoardService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config %q: %w", configName, service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "Handle service error",
			requestBody: nil,
			setupMock: func(m *MockBoardService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBoardService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			var body interface{}
			if tt.requestBody != nil {
				body = tt.requestBody
			}
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestCreateSession_InvalidBody(t *testing.T) {
	server := setupTestServer(&MockBoardService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader("{broken"))

	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now},
			{ID: "mid", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-time.Hour)},
			{ID: "new", CreatedAt: now, LastAccessedAt: now.Add(-2 * time.Hour)},
		}
	}

	tests := []struct {
		name          string
		query         string
		expectedOrder []string
		expectedTotal int
	}{
		{name: "Default sorts by last access, newest first", query: "", expectedOrder: []string{"old", "mid", "new"}, expectedTotal: 3},
		{name: "Sort by creation ascending", query: "?sort=created&order=asc", expectedOrder: []string{"old", "mid", "new"}, expectedTotal: 3},
		{name: "Sort by creation descending", query: "?sort=created", expectedOrder: []string{"new", "mid", "old"}, expectedTotal: 3},
		{name: "Limit", query: "?sort=created&limit=1", expectedOrder: []string{"new"}, expectedTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(&MockBoardService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.expectedTotal {
				t.Errorf("Expected total %d, got %d", tt.expectedTotal, resp.Total)
			}
			if resp.Count != len(tt.expectedOrder) {
				t.Fatalf("Expected count %d, got %d", len(tt.expectedOrder), resp.Count)
			}
			for i, id := range tt.expectedOrder {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	notFound := func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
		return nil, fmt.Errorf("session %s: %w", sessionID, service.ErrSessionNotFound)
	}

	tests := []struct {
		name           string
		method         string
		path           string
		mock           *MockBoardService
		expectedStatus int
	}{
		{name: "Get existing", method: "GET", path: "/api/sessions/abcd", mock: &MockBoardService{}, expectedStatus: http.StatusOK},
		{name: "Get missing", method: "GET", path: "/api/sessions/zzzz", mock: &MockBoardService{GetSessionFunc: notFound}, expectedStatus: http.StatusNotFound},
		{name: "Delete existing", method: "DELETE", path: "/api/sessions/abcd", mock: &MockBoardService{}, expectedStatus: http.StatusOK},
		{
			name:   "Delete missing",
			method: "DELETE",
			path:   "/api/sessions/zzzz",
			mock: &MockBoardService{DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
				return service.ErrSessionNotFound
			}},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(tt.mock)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// Action Tests

func TestActionRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantAction engine.Action
	}{
		{
			name:       "Generic action",
			method:     "POST",
			path:       "/api/sessions/s1/actions",
			body:       engine.Action{Type: engine.ActionPlace, Size: 2, X: 3, Y: 4},
			wantAction: engine.Action{Type: engine.ActionPlace, Size: 2, X: 3, Y: 4},
		},
		{
			name:       "Pick up from toolbar",
			method:     "POST",
			path:       "/api/sessions/s1/drag/pickup",
			body:       map[string]interface{}{"size": 5},
			wantAction: engine.Action{Type: engine.ActionPickUp, Size: 5},
		},
		{
			name:       "Pick up from board",
			method:     "POST",
			path:       "/api/sessions/s1/drag/pickup",
			body:       map[string]interface{}{"square_id": "square-5-x"},
			wantAction: engine.Action{Type: engine.ActionPickUp, SquareID: "square-5-x"},
		},
		{
			name:       "Pointer move",
			method:     "POST",
			path:       "/api/sessions/s1/drag/move",
			body:       map[string]interface{}{"x": 120.5, "y": 44},
			wantAction: engine.Action{Type: engine.ActionPointerMove, X: 120.5, Y: 44},
		},
		{
			name:       "Drop",
			method:     "POST",
			path:       "/api/sessions/s1/drag/drop",
			body:       map[string]interface{}{"x": 7, "y": 7},
			wantAction: engine.Action{Type: engine.ActionDrop, X: 7, Y: 7},
		},
		{
			name:       "Cancel",
			method:     "POST",
			path:       "/api/sessions/s1/drag/cancel",
			wantAction: engine.Action{Type: engine.ActionCancel},
		},
		{
			name:       "Place",
			method:     "POST",
			path:       "/api/sessions/s1/squares",
			body:       map[string]interface{}{"size": 9, "x": 0, "y": 36},
			wantAction: engine.Action{Type: engine.ActionPlace, Size: 9, X: 0, Y: 36},
		},
		{
			name:       "Move",
			method:     "PUT",
			path:       "/api/sessions/s1/squares/square-9-a",
			body:       map[string]interface{}{"x": 9, "y": 36},
			wantAction: engine.Action{Type: engine.ActionMove, SquareID: "square-9-a", X: 9, Y: 36},
		},
		{
			name:       "Remove",
			method:     "DELETE",
			path:       "/api/sessions/s1/squares/square-9-a",
			wantAction: engine.Action{Type: engine.ActionRemove, SquareID: "square-9-a"},
		},
		{
			name:       "Toggle lock",
			method:     "POST",
			path:       "/api/sessions/s1/squares/square-9-a/lock",
			wantAction: engine.Action{Type: engine.ActionToggleLock, SquareID: "square-9-a"},
		},
		{
			name:       "Reset",
			method:     "POST",
			path:       "/api/sessions/s1/reset",
			wantAction: engine.Action{Type: engine.ActionReset},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got engine.Action
			var gotSession string
			server := setupTestServer(&MockBoardService{
				DispatchFunc: func(ctx context.Context, sessionID string, action engine.Action) (*service.ActionResult, error) {
					got = action
					gotSession = sessionID
					return &service.ActionResult{Success: true, Action: action, BoardState: &engine.GameState{}}, nil
				},
			})

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, tt.body))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if gotSession != "s1" {
				t.Errorf("Expected session s1, got %s", gotSession)
			}
			if got != tt.wantAction {
				t.Errorf("Expected action %+v, got %+v", tt.wantAction, got)
			}

			var resp service.ActionResult
			parseResponse(t, w, &resp)
			if !resp.Success {
				t.Error("Expected success=true")
			}
		})
	}
}

func TestActionRoutes_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "Unknown session", err: fmt.Errorf("session x: %w", service.ErrSessionNotFound), expectedStatus: http.StatusNotFound},
		{name: "Malformed action", err: fmt.Errorf("bogus: %w", service.ErrInvalidRequest), expectedStatus: http.StatusBadRequest},
		{name: "Unexpected failure", err: fmt.Errorf("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(&MockBoardService{
				DispatchFunc: func(ctx context.Context, sessionID string, action engine.Action) (*service.ActionResult, error) {
					return nil, tt.err
				},
			})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/x/actions", engine.Action{Type: "bogus"}))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var resp map[string]string
			parseResponse(t, w, &resp)
			if resp["error"] == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestActionRoutes_InvalidBody(t *testing.T) {
	server := setupTestServer(&MockBoardService{})
	for _, path := range []string{
		"/api/sessions/s1/actions",
		"/api/sessions/s1/drag/pickup",
		"/api/sessions/s1/drag/move",
		"/api/sessions/s1/drag/drop",
		"/api/sessions/s1/squares",
	} {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest("POST", path, strings.NewReader("not json")))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, w.Code)
		}
	}
}

func TestRejectedActionIsOK(t *testing.T) {
	server := setupTestServer(&MockBoardService{
		DispatchFunc: func(ctx context.Context, sessionID string, action engine.Action) (*service.ActionResult, error) {
			return &service.ActionResult{
				Success:    false,
				Action:     action,
				Reason:     "invalid_placement",
				BoardState: &engine.GameState{},
			}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/s1/squares", map[string]int{"size": 2, "x": 0, "y": 0}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.ActionResult
	parseResponse(t, w, &resp)
	if resp.Success {
		t.Error("Expected success=false")
	}
	if resp.Reason != "invalid_placement" {
		t.Errorf("Expected reason invalid_placement, got %s", resp.Reason)
	}
}

// Board State Tests

func TestGetBoardState(t *testing.T) {
	server := setupTestServer(&MockBoardService{
		GetBoardStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			if sessionID == "missing" {
				return nil, service.ErrSessionNotFound
			}
			return &engine.GameState{GridSize: 45, TotalCells: 2025}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/s1/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state engine.GameState
	parseResponse(t, w, &state)
	if state.TotalCells != 2025 {
		t.Errorf("Expected 2025 total cells, got %d", state.TotalCells)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/missing/state", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetEvents(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		expectedOpts service.HistoryOptions
	}{
		{name: "Defaults", query: "", expectedOpts: service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{name: "Explicit", query: "?page=3&limit=5&order=asc", expectedOpts: service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{name: "Garbage ignored", query: "?page=-1&limit=abc&order=sideways", expectedOpts: service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			server := setupTestServer(&MockBoardService{
				GetEventHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Events: []engine.BoardEvent{}}, nil
				},
			})

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/s1/events"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.expectedOpts {
				t.Errorf("Expected options %+v, got %+v", tt.expectedOpts, got)
			}
		})
	}
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	var savedName string
	var savedConfig *engine.BoardConfig
	server := setupTestServer(&MockBoardService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "mini"}, {ConfigID: "partridge"}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.BoardConfig, error) {
			if configName != "mini" {
				return nil, service.ErrConfigNotFound
			}
			return &engine.BoardConfig{Name: "Mini", GridSize: 6}, nil
		},
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.BoardConfig) error {
			if cfg.GridSize == 0 {
				return fmt.Errorf("%w: grid_size", service.ErrInvalidConfig)
			}
			savedName = configName
			savedConfig = cfg
			return nil
		},
	})

	t.Run("List", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
		var configs []*service.ConfigInfo
		parseResponse(t, w, &configs)
		if len(configs) != 2 {
			t.Errorf("Expected 2 configs, got %d", len(configs))
		}
	})

	t.Run("Get strips .json", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/mini.json", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/huge", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("Save derives ID from name", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{
			"name":         "My Board 2",
			"description":  "custom",
			"grid_size":    6,
			"cell_size":    20,
			"square_sizes": 3,
		}))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if savedName != "my-board-2" {
			t.Errorf("Expected config id my-board-2, got %s", savedName)
		}
		if savedConfig == nil || savedConfig.SquareSizes != 3 {
			t.Errorf("Config not decoded: %+v", savedConfig)
		}
	})

	t.Run("Save explicit ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{
			"config_id": "custom",
			"name":      "Whatever",
			"grid_size": 6,
		}))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", w.Code)
		}
		if savedName != "custom" {
			t.Errorf("Expected config id custom, got %s", savedName)
		}
	})

	t.Run("Save without name", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"grid_size": 6}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("Save invalid config", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"name": "Broken"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&MockBoardService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %s", resp["status"])
	}
}

func TestWebSocketRoute(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		mock           *MockBoardService
		expectedStatus int
	}{
		{name: "Missing session parameter", query: "", mock: &MockBoardService{}, expectedStatus: http.StatusBadRequest},
		{
			name:  "Unknown session",
			query: "?session=zzzz",
			mock: &MockBoardService{GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
				return nil, service.ErrSessionNotFound
			}},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(tt.mock)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/ws"+tt.query, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestConfigIDFromName(t *testing.T) {
	tests := map[string]string{
		"Partridge":       "partridge",
		"My Board 2":      "my-board-2",
		"  spaced  ":      "spaced",
		"weird/../chars!": "weirdchars",
	}
	for in, want := range tests {
		if got := configIDFromName(in); got != want {
			t.Errorf("configIDFromName(%q) = %q, want %q", in, got, want)
		}
	}
}

// End-to-end through the real service and a WebSocket watcher

func TestIntegration_PlacementBroadcast(t *testing.T) {
	configs, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}
	svc := service.NewBoardService(session.NewManager(), configs)
	hub := websocket.NewHub()
	hub.SetDispatcher(svc)

	httpServer := httptest.NewServer(NewServer(svc, hub))
	defer httpServer.Close()

	post := func(path string, body interface{}) *http.Response {
		t.Helper()
		data, _ := json.Marshal(body)
		resp, err := http.Post(httpServer.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/api/sessions", map[string]string{"config_id": "mini"})
	var info service.SessionInfo
	json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	// Session ids are case-insensitive: the watcher subscribes in upper case
	// while the REST calls below use the id as issued.
	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws?session=" + strings.ToUpper(info.ID)
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	read := func() websocket.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var message websocket.Message
		if err := conn.ReadJSON(&message); err != nil {
			t.Fatalf("Failed to read: %v", err)
		}
		return message
	}

	if initial := read(); initial.Event != websocket.EventStateUpdate {
		t.Fatalf("Expected initial state_update, got %s", initial.Event)
	}

	resp = post("/api/sessions/"+info.ID+"/squares", map[string]int{"size": 3, "x": 0, "y": 0})
	var result service.ActionResult
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if !result.Success {
		t.Fatalf("Expected placement to succeed, got reason %s", result.Reason)
	}

	state := read()
	if state.Event != websocket.EventStateUpdate || state.BoardState == nil || len(state.BoardState.Squares) != 1 {
		t.Fatalf("Expected state_update with one square, got %+v", state)
	}
	ev := read()
	if ev.Event != websocket.EventBoardEvent || ev.BoardEvent == nil || ev.BoardEvent.Type != engine.EventPlaced {
		t.Fatalf("Expected placed board_event, got %+v", ev)
	}

	// Overlapping placement is a rejection, not an error
	resp = post("/api/sessions/"+info.ID+"/squares", map[string]int{"size": 2, "x": 1, "y": 1})
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || result.Success || result.Reason != "invalid_placement" {
		t.Errorf("Expected 200 overlap rejection, got %d %+v", resp.StatusCode, result)
	}
}
