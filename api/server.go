package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wricardo/memo-game/auth"
	"github.com/wricardo/memo-game/game/config"
	"github.com/wricardo/memo-game/game/service"
	"github.com/wricardo/memo-game/game/session"
	"github.com/wricardo/memo-game/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil when the real-time
// transport is served elsewhere.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Live multiplayer sessions
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")

	// Finished games and statistics
	api.HandleFunc("/results", s.handleListResults).Methods("GET")
	api.HandleFunc("/results/{id}", s.handleGetResult).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")

	// Single player
	api.HandleFunc("/solo", s.handleStartSolo).Methods("POST")
	api.HandleFunc("/solo/{id}", s.handleGetSolo).Methods("GET")
	api.HandleFunc("/solo/{id}/flip", s.handleFlipSolo).Methods("POST")
	api.HandleFunc("/solo/{id}", s.handleLeaveSolo).Methods("DELETE")

	// Auth
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
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

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidSessionID), errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNoResultStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Session Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Result Handlers

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ResultsOptions{
		Player: query.Get("player"),
		Mode:   query.Get("mode"),
	}

	page, _, err := queryInt(r, "page")
	if err != nil {
		respondError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be a number")
		return
	}
	opts.Page, opts.Limit = page, limit

	results, err := s.service.ListResults(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	pairs, ok, err := queryInt(r, "pairs")
	if err != nil || !ok {
		respondError(w, http.StatusBadRequest, "pairs query parameter is required")
		return
	}

	entries, err := s.service.Leaderboard(r.Context(), pairs)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pairs":   pairs,
		"entries": entries,
	})
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, presets)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.service.GetPreset(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preset)
}

// Single Player Handlers

func (s *Server) handleStartSolo(w http.ResponseWriter, r *http.Request) {
	var opts service.SoloOptions
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	info, err := s.service.StartSolo(r.Context(), bearer(r), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSolo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSolo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleFlipSolo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		respondError(w, http.StatusBadRequest, "Request body must contain an index")
		return
	}

	result, err := s.service.FlipSolo(r.Context(), bearer(r), mux.Vars(r)["id"], *req.Index)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleLeaveSolo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.LeaveSolo(r.Context(), bearer(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Auth Handlers

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(r.Context(), bearer(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func bearer(r *http.Request) string {
	return auth.BearerToken(r.Header.Get("Authorization"))
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket transport is disabled", http.StatusServiceUnavailable)
		return
	}

	// Spectators must name a live session
	if game := r.URL.Query().Get("game"); game != "" {
		if _, err := s.service.GetSession(r.Context(), game); err != nil {
			http.Error(w, "Invalid session", http.StatusNotFound)
			return
		}
	}

	s.hub.ServeWS(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status": "healthy",
	}
	if s.hub != nil {
		body["websocket"] = s.hub.Stats()
	}
	respondJSON(w, http.StatusOK, body)
}
