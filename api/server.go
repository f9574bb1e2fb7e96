package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/partridge-board/game/engine"
	"github.com/wricardo/partridge-board/game/service"
	"github.com/wricardo/partridge-board/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.BoardService
	hub     *websocket.Hub
	router  *mux.Router
	log     logrus.FieldLogger
}

// NewServer creates a new API server. hub may be nil, in which case nothing
// is broadcast and /ws is not served.
func NewServer(boardService service.BoardService, hub *websocket.Hub) *Server {
	s := &Server{
		service: boardService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logrus.WithField("component", "api"),
	}

	s.setupRoutes()
	return s
}

// Router exposes the underlying router so callers can mount more handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Board state
	api.HandleFunc("/sessions/{id}/state", s.handleGetBoardState).Methods("GET")
	api.HandleFunc("/sessions/{id}/events", s.handleGetEvents).Methods("GET")

	// Actions
	api.HandleFunc("/sessions/{id}/actions", s.handleDispatch).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/pickup", s.handlePickUp).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/move", s.handlePointerMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/drop", s.handleDrop).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/cancel", s.handleCancelDrag).Methods("POST")
	api.HandleFunc("/sessions/{id}/squares", s.handlePlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/squares/{square}", s.handleMove).Methods("PUT")
	api.HandleFunc("/sessions/{id}/squares/{square}", s.handleRemove).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/squares/{square}/lock", s.handleToggleLock).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a service error onto an HTTP status
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body. An empty body leaves dst as is.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Board Handlers

func (s *Server) handleGetBoardState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetBoardState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetEventHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Action Handlers

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var action engine.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Dispatch(r.Context(), sessionID, action)
	s.respondResult(w, sessionID, result, err)
}

func (s *Server) handlePickUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Size     int    `json:"size"`
		SquareID string `json:"square_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.PickUp(r.Context(), sessionID, req.Size, req.SquareID)
	s.respondResult(w, sessionID, result, err)
}

type pointerRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handlePointerMove(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.PointerMove(r.Context(), sessionID, req.X, req.Y)
	s.respondResult(w, sessionID, result, err)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Drop(r.Context(), sessionID, req.X, req.Y)
	s.respondResult(w, sessionID, result, err)
}

func (s *Server) handleCancelDrag(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.CancelDrag(r.Context(), sessionID)
	s.respondResult(w, sessionID, result, err)
}

type cellRequest struct {
	Size int `json:"size,omitempty"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req cellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Place(r.Context(), sessionID, req.Size, req.X, req.Y)
	s.respondResult(w, sessionID, result, err)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req cellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vars := mux.Vars(r)
	result, err := s.service.Move(r.Context(), vars["id"], vars["square"], req.X, req.Y)
	s.respondResult(w, vars["id"], result, err)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.service.RequestRemove(r.Context(), vars["id"], vars["square"])
	s.respondResult(w, vars["id"], result, err)
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.service.ToggleLock(r.Context(), vars["id"], vars["square"])
	s.respondResult(w, vars["id"], result, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.ResetBoard(r.Context(), sessionID)
	s.respondResult(w, sessionID, result, err)
}

// respondResult writes an action result, logs it and fans it out to the
// session's WebSocket clients when the board changed. Rejected actions are
// still 200 responses with success=false.
func (s *Server) respondResult(w http.ResponseWriter, sessionID string, result *service.ActionResult, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logAction(sessionID, result)

	if s.hub != nil && result.Event() != nil {
		s.hub.BroadcastResult(sessionID, result)
	}

	respondJSON(w, http.StatusOK, result)
}

// logAction writes one compact line per action
func (s *Server) logAction(sessionID string, result *service.ActionResult) {
	fields := logrus.Fields{
		"session": sessionID,
		"action":  result.Action.Type,
	}
	if result.Action.Size != 0 {
		fields["size"] = result.Action.Size
	}
	if result.Action.SquareID != "" {
		fields["square"] = result.Action.SquareID
	}

	entry := s.log.WithFields(fields)
	if !result.Success {
		entry.WithField("reason", result.Reason).Info("[ACTION] rejected")
		return
	}

	// Pointer moves are high-frequency; keep them out of the info log
	if result.Action.Type == engine.ActionPointerMove {
		entry.Debug("[ACTION] ok")
		return
	}
	if ev := result.Event(); ev != nil {
		entry = entry.WithFields(logrus.Fields{
			"event":     ev.Type,
			"at":        fmt.Sprintf("(%d,%d)", ev.X, ev.Y),
			"remaining": ev.SquareCount.Remaining,
		})
	}
	entry.Info("[ACTION] ok")
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
		engine.BoardConfig
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = configIDFromName(req.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &req.BoardConfig); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// configIDFromName turns a display name into a file-safe identifier
func configIDFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotFound, "websocket transport disabled")
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
