package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/service"
	"github.com/wricardo/train-rush/transport/websocket"
)

// Server represents the admin REST API server
type Server struct {
	service service.LobbyService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil when spectators are disabled.
func NewServer(lobby service.LobbyService, hub *websocket.Hub) *Server {
	s := &Server{
		service: lobby,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	get(api, "/health", s.handleHealth)

	// Rooms
	get(api, "/rooms", s.handleListRooms)
	get(api, "/rooms/{id}", s.handleGetRoom)
	get(api, "/rooms/{id}/state", s.handleGetRoomState)

	// Scores
	get(api, "/scores", s.handleListScores)
	get(api, "/scores/{id}", s.handleGetScore)

	// History
	get(api, "/matches", s.handleListMatches)
	get(api, "/matches/{id}", s.handleGetMatch)

	// Configuration
	get(api, "/configs", s.handleListConfigs)
	get(api, "/configs/{name}", s.handleGetConfig)

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// get registers a read-only route. Other methods on the same path get 405.
func get(r *mux.Router, path string, h http.HandlerFunc) {
	r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, req)
	})
}

// Mount serves handler under an exact path, such as the MCP endpoint
func (s *Server) Mount(path string, handler http.Handler) {
	s.router.Handle(path, handler)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrScoreNotFound),
		errors.Is(err, service.ErrMatchNotFound),
		errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled),
		errors.Is(err, service.ErrProfilesDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.service.Health(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, health)
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	if state := r.URL.Query().Get("state"); state != "" {
		filtered := rooms[:0]
		for _, info := range rooms {
			if info.State.String() == state {
				filtered = append(filtered, info)
			}
		}
		rooms = filtered
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	info, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetRoomState(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	state, err := s.service.GetRoomState(r.Context(), roomID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// parseLimit reads ?limit. Zero means no limit; a bad value answers 400.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, true
	}
	l, err := strconv.Atoi(limitStr)
	if err != nil || l < 0 {
		respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return l, true
}

// Score Handlers

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	scores, err := s.service.ListScores(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if limit > 0 && limit < len(scores) {
		scores = scores[:limit]
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(scores),
		"scores": scores,
	})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["id"]

	score, err := s.service.GetScore(r.Context(), playerID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, score)
}

// History Handlers

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	matches, err := s.service.ListMatches(r.Context(), limit)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(matches),
		"matches": matches,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	match, err := s.service.GetMatch(r.Context(), matchID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, match)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	cfg, err := s.service.LoadConfig(r.Context(), name)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "spectators disabled", http.StatusServiceUnavailable)
		return
	}
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		http.Error(w, "room parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		http.Error(w, "Invalid room", http.StatusNotFound)
		return
	}

	// Rooms publish under their canonical id
	s.hub.ServeWS(w, r, info.ID)
}
