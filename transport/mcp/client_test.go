package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/protocol"
	"github.com/wricardo/train-rush/game/room"
	"github.com/wricardo/train-rush/game/service"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

// newAPIServer answers fixed JSON bodies keyed by request URI
func newAPIServer(t *testing.T, routes map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.RequestURI()]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "room not found"})
			return
		}
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := newAPIServer(t, map[string]interface{}{
		"/api/health": service.HealthInfo{Status: "ok", Rooms: 3},
	})
	client := NewClient(server.URL)

	var health service.HealthInfo
	if err := client.apiCall(context.Background(), "/api/health", &health); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if health.Status != "ok" || health.Rooms != 3 {
		t.Errorf("Unexpected response %+v", health)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	if err := client.apiCall(context.Background(), "/api/health", nil); err == nil {
		t.Error("Expected error for unreachable server")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "/api/health", nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 500 response")
	}
	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
}

func TestClient_handleListRooms(t *testing.T) {
	server := newAPIServer(t, map[string]interface{}{
		"/api/rooms?state=running": map[string]interface{}{
			"count": 1,
			"rooms": []room.Info{{
				ID:           "abc",
				State:        room.Running,
				Capacity:     2,
				Humans:       1,
				Remaining:    42,
				Participants: []room.Participant{{Name: "alice", Human: true}, {Name: "Bot-1"}},
			}},
		},
	})
	client := NewClient(server.URL)

	result, err := client.handleListRooms(context.Background(), callTool("list_rooms", map[string]interface{}{"state": "running"}))
	if err != nil {
		t.Fatalf("handleListRooms failed: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"abc", "running", "2/2 players", "42s left"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_handleGetRoom(t *testing.T) {
	server := newAPIServer(t, map[string]interface{}{
		"/api/rooms/abc": room.Info{
			ID:           "abc",
			State:        room.Over,
			Capacity:     2,
			Participants: []room.Participant{{Name: "alice", Human: true}},
			Scores:       map[string]int{"alice": 9},
			FinalScores:  []protocol.Standing{{Name: "alice", Score: 9}},
		},
	})
	client := NewClient(server.URL)
	ctx := context.Background()

	result, err := client.handleGetRoom(ctx, callTool("get_room", map[string]interface{}{"room_id": "abc"}))
	if err != nil {
		t.Fatalf("handleGetRoom failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "State: over") || !strings.Contains(text, "1. alice  9") {
		t.Errorf("Unexpected room text: %s", text)
	}

	result, _ = client.handleGetRoom(ctx, callTool("get_room", map[string]interface{}{"room_id": "nope"}))
	if !result.IsError {
		t.Error("Expected an error result for an unknown room")
	}

	result, _ = client.handleGetRoom(ctx, callTool("get_room", map[string]interface{}{}))
	if !result.IsError {
		t.Error("Expected an error result without room_id")
	}
}

func TestClient_handleListMatches(t *testing.T) {
	server := newAPIServer(t, map[string]interface{}{
		"/api/matches?limit=5": map[string]interface{}{
			"count": 1,
			"matches": []history.Match{{
				ID:      "m1",
				EndedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
				Width:   20,
				Height:  20,
				Winner:  "alice",
				Players: []history.PlayerResult{{Name: "alice", Score: 4, Rank: 1}},
			}},
		},
	})
	client := NewClient(server.URL)

	result, err := client.handleListMatches(context.Background(), callTool("list_matches", map[string]interface{}{"limit": float64(5)}))
	if err != nil {
		t.Fatalf("handleListMatches failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "m1") || !strings.Contains(text, "winner: alice") {
		t.Errorf("Unexpected matches text: %s", text)
	}
}

func TestClient_handleListScores(t *testing.T) {
	server := newAPIServer(t, map[string]interface{}{
		"/api/scores": map[string]interface{}{
			"count":  2,
			"scores": []service.ScoreEntry{{ID: "222222", Score: 30}, {ID: "111111", Score: 12}},
		},
	})
	client := NewClient(server.URL)

	result, err := client.handleListScores(context.Background(), callTool("list_scores", nil))
	if err != nil {
		t.Fatalf("handleListScores failed: %v", err)
	}
	text := resultText(t, result)
	if strings.Index(text, "222222") > strings.Index(text, "111111") {
		t.Errorf("Expected highest score first, got: %s", text)
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := &engine.Snapshot{
		Size: &engine.Size{Width: 6, Height: 4},
		Trains: map[string]engine.TrainState{
			"alice": {
				Name:      "alice",
				Position:  engine.Position{X: 3, Y: 1},
				Direction: engine.Right,
				Wagons:    []engine.Position{{X: 2, Y: 1}, {X: 1, Y: 1}},
				Score:     4,
				Alive:     true,
			},
		},
		Passengers:   []engine.PassengerState{{Position: engine.Position{X: 5, Y: 3}, Value: 2}},
		DeliveryZone: &engine.DeliveryZone{X: 0, Y: 3, Width: 2, Height: 1},
	}

	text := formatSnapshot(snap)

	expectedRows := []string{
		"......",
		".==A..",
		"......",
		"~~...2",
	}
	for _, row := range expectedRows {
		if !strings.Contains(text, row+"\n") {
			t.Errorf("Expected row %q in rendering, got:\n%s", row, text)
		}
	}
	if !strings.Contains(text, "heading right") {
		t.Errorf("Expected train summary, got:\n%s", text)
	}
}

func TestFormatSnapshot_Empty(t *testing.T) {
	if got := formatSnapshot(&engine.Snapshot{}); got != "No game state available" {
		t.Errorf("Unexpected rendering of empty snapshot: %s", got)
	}
}

func TestClient_handleGameRules(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameRules(context.Background(), callTool("game_rules", nil))
	if err != nil {
		t.Fatalf("handleGameRules failed: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"OBJECTIVE:", "MECHANICS:", "PROTOCOL", "pong"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in rules", want)
		}
	}
}

func TestClient_Handler(t *testing.T) {
	client := NewClient("http://localhost:8080")
	handler := client.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := resp["result"]; !ok {
		t.Errorf("Expected a JSON-RPC result, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader("not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", w.Code)
	}
}
