package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/room"
	"github.com/wricardo/train-rush/game/service"
)

// Largest world rendered as a character grid by room_state
const maxRenderedSize = 80

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Train Rush",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Train Rush - MCP Interface

Read-only view of a Train Rush server. Players connect over UDP; these tools observe
rooms, standings and match history through the admin REST API.

AVAILABLE TOOLS:
- server_health: Uptime, room and client counts
- list_rooms: Live rooms, optionally filtered by state
- get_room: Participants and scores of one room
- room_state: Rendered map of a room (trains, wagons, passengers, delivery zone)
- list_scores / get_score: Stored personal bests
- list_matches / get_match: Finished matches
- list_configs: Available configuration profiles
- game_rules: How the game is played`),
	)

	c.registerTools()
}

func roomIDSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Room ID",
	}
}

func limitSchema(what string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": fmt.Sprintf("Maximum number of %s to return (optional)", what),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_health",
		Description: "Get server uptime, room counts, connected clients and datagram counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleHealth)

	// Rooms
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List live rooms",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"state": map[string]interface{}{
					"type":        "string",
					"description": "Only rooms in this state: waiting, running or over (optional)",
					"enum":        []string{"waiting", "running", "over"},
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get participants, remaining time and current scores of a room",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"room_id": roomIDSchema()},
			Required:   []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_state",
		Description: "Render the current map of a room with trains, wagons, passengers and the delivery zone",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"room_id": roomIDSchema()},
			Required:   []string{"room_id"},
		},
	}, c.handleRoomState)

	// Scores
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scores",
		Description: "List stored personal best scores, highest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"limit": limitSchema("scores")},
		},
	}, c.handleListScores)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_score",
		Description: "Get the stored personal best of one player ID",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Six digit player ID",
				},
			},
			Required: []string{"player_id"},
		},
	}, c.handleGetScore)

	// History
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List finished matches, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"limit": limitSchema("matches")},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_match",
		Description: "Get the final ranking of one finished match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": map[string]interface{}{
					"type":        "string",
					"description": "Match ID",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handleGetMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available configuration profiles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of Train Rush and the UDP protocol summary",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Handler serves MCP JSON-RPC over HTTP POST
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		}
	})
}

// Ping checks that the REST API answers its health endpoint
func (c *Client) Ping(ctx context.Context) error {
	return c.apiCall(ctx, "/api/health", nil)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func limitQuery(args map[string]interface{}) string {
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		return fmt.Sprintf("?limit=%d", int(limit))
	}
	return ""
}

// Tool handlers

func (c *Client) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health service.HealthInfo
	if err := c.apiCall(ctx, "/api/health", &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHealth(&health)), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/rooms"
	if state := stringArg(arguments(request), "state"); state != "" {
		path += "?state=" + url.QueryEscape(state)
	}

	var resp struct {
		Count int          `json:"count"`
		Rooms []*room.Info `json:"rooms"`
	}
	if err := c.apiCall(ctx, path, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No rooms."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Rooms (%d):\n", resp.Count)
	for _, info := range resp.Rooms {
		fmt.Fprintf(&b, "• %s  %s  %d/%d players (%d human)",
			info.ID, info.State, len(info.Participants), info.Capacity, info.Humans)
		if info.State == room.Running {
			fmt.Fprintf(&b, "  %.0fs left", info.Remaining)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := stringArg(arguments(request), "room_id")
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var info room.Info
	if err := c.apiCall(ctx, "/api/rooms/"+url.PathEscape(roomID), &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoomInfo(&info)), nil
}

func (c *Client) handleRoomState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := stringArg(arguments(request), "room_id")
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "/api/rooms/"+url.PathEscape(roomID)+"/state", &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleListScores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count  int                  `json:"count"`
		Scores []service.ScoreEntry `json:"scores"`
	}
	if err := c.apiCall(ctx, "/api/scores"+limitQuery(arguments(request)), &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No scores stored yet."), nil
	}
	var b strings.Builder
	b.WriteString("Best scores:\n")
	for i, entry := range resp.Scores {
		fmt.Fprintf(&b, "%3d. %s  %d\n", i+1, entry.ID, entry.Score)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	playerID := stringArg(arguments(request), "player_id")
	if playerID == "" {
		return mcp.NewToolResultError("player_id is required"), nil
	}

	var entry service.ScoreEntry
	if err := c.apiCall(ctx, "/api/scores/"+url.PathEscape(playerID), &entry); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Player %s best score: %d", entry.ID, entry.Score)), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count   int             `json:"count"`
		Matches []history.Match `json:"matches"`
	}
	if err := c.apiCall(ctx, "/api/matches"+limitQuery(arguments(request)), &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No matches recorded."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Matches (%d):\n", resp.Count)
	for _, m := range resp.Matches {
		fmt.Fprintf(&b, "• %s  %s  %d players  %dx%d",
			m.ID, m.EndedAt.Format("2006-01-02 15:04:05"), len(m.Players), m.Width, m.Height)
		if m.Winner != "" {
			fmt.Fprintf(&b, "  winner: %s", m.Winner)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var m history.Match
	if err := c.apiCall(ctx, "/api/matches/"+url.PathEscape(matchID), &m); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatch(&m)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []config.ProfileInfo
	if err := c.apiCall(ctx, "/api/configs", &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, profile := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Players per room: %d, Duration: %s, Base size: %d\n\n",
			profile.Name, profile.ProfileID, profile.Description,
			profile.PlayersPerRoom, profile.GameDuration, profile.BaseSize)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameRules), nil
}

const gameRules = `Train Rush - Rules

OBJECTIVE:
Finish the match with the highest score. Your best score over all your lives counts.

MECHANICS:
• Every tick each live train moves one cell in its heading; wagons follow the head.
• Turning is allowed once the train has moved since the last turn; reversing is never allowed.
• Leaving the map, hitting any wagon or another head destroys the train.
• Picking up a passenger adds its value to the score and one wagon to the train.
• Driving into the delivery zone with wagons converts them into points.
• drop_wagon sheds the last wagon at its position.
• A destroyed train may respawn after the cooldown announced in the death message.
• The map shrinks as players leave; it never strands a live entity.

PROTOCOL (UDP, one JSON object per line):
• {"type":"check_name","agent_name":"..."} / {"type":"check_sciper","agent_sciper":"123456"}
• {"type":"agent_ids","agent_name":"...","agent_sciper":"123456"} joins a room
• {"action":"direction","direction":[1,0]}, {"action":"respawn"}, {"action":"drop_wagon"}
• Answer every {"type":"ping"} with {"type":"pong"} or you will be disconnected.`

func formatHealth(h *service.HealthInfo) string {
	return fmt.Sprintf("Status: %s\nUptime: %s\nRooms: %d (%d running)\nClients: %d\nStored scores: %d\nHistory: %t\nDatagrams sent/received: %d/%d",
		h.Status, (time.Duration(h.UptimeSeconds) * time.Second).String(),
		h.Rooms, h.RunningRooms, h.Clients, h.StoredScores, h.History, h.Sent, h.Received)
}

func formatRoomInfo(info *room.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\nState: %s\nPlayers: %d/%d (%d human)\n",
		info.ID, info.State, len(info.Participants), info.Capacity, info.Humans)
	if info.State == room.Running {
		fmt.Fprintf(&b, "Remaining: %.0fs | Ticks: %d | Map: %dx%d\n",
			info.Remaining, info.Ticks, info.Size.Width, info.Size.Height)
	}

	b.WriteString("\nParticipants:\n")
	for _, p := range info.Participants {
		kind := "AI"
		if p.Human {
			kind = "human"
		}
		fmt.Fprintf(&b, "• %s (%s)  score %d\n", p.Name, kind, info.Scores[p.Name])
	}

	if len(info.FinalScores) > 0 {
		b.WriteString("\nFinal ranking:\n")
		for i, s := range info.FinalScores {
			fmt.Fprintf(&b, "%d. %s  %d\n", i+1, s.Name, s.Score)
		}
	}
	return b.String()
}

func formatMatch(m *history.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s\nRoom: %s\nPlayed: %s (%.0fs, %d ticks)\nMap: %dx%d\n\n",
		m.ID, m.RoomID, m.StartedAt.Format("2006-01-02 15:04:05"), m.Duration, m.Ticks, m.Width, m.Height)
	for _, p := range m.Players {
		kind := "AI"
		if p.Human {
			kind = "human"
		}
		fmt.Fprintf(&b, "%d. %s (%s)  %d\n", p.Rank, p.Name, kind, p.Score)
	}
	return b.String()
}

// formatSnapshot renders the map: train heads as the first letter of their name,
// wagons as '=', passengers as their value, the delivery zone as '~'.
func formatSnapshot(snap *engine.Snapshot) string {
	if snap == nil || snap.Size == nil {
		return "No game state available"
	}
	width, height := snap.Size.Width, snap.Size.Height

	var b strings.Builder
	fmt.Fprintf(&b, "Map: %dx%d | Trains: %d | Passengers: %d\n",
		width, height, len(snap.Trains), len(snap.Passengers))

	names := make([]string, 0, len(snap.Trains))
	for name := range snap.Trains {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := snap.Trains[name]
		status := "alive"
		if !t.Alive {
			status = "dead"
		}
		fmt.Fprintf(&b, "• %s  score %d  wagons %d  at (%d,%d) heading %s  %s\n",
			name, t.Score, len(t.Wagons), t.Position.X, t.Position.Y, t.Direction, status)
	}

	if width > maxRenderedSize || height > maxRenderedSize {
		b.WriteString("\n(map too large to render)\n")
		return b.String()
	}

	grid := make([][]byte, height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", width))
	}
	set := func(p engine.Position, c byte) {
		if p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height {
			grid[p.Y][p.X] = c
		}
	}

	if z := snap.DeliveryZone; z != nil {
		for y := z.Y; y < z.Y+z.Height; y++ {
			for x := z.X; x < z.X+z.Width; x++ {
				set(engine.Position{X: x, Y: y}, '~')
			}
		}
	}
	for _, p := range snap.Passengers {
		c := byte('+')
		if p.Value > 0 && p.Value < 10 {
			c = byte('0' + p.Value)
		}
		set(p.Position, c)
	}
	for _, name := range names {
		t := snap.Trains[name]
		if !t.Alive {
			continue
		}
		for _, w := range t.Wagons {
			set(w, '=')
		}
		head := byte('T')
		if name != "" {
			head = strings.ToUpper(name)[0]
		}
		set(t.Position, head)
	}

	b.WriteString("\n")
	for _, row := range grid {
		b.Write(row)
		b.WriteString("\n")
	}
	return b.String()
}
