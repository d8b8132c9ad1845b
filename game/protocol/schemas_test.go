package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wricardo/train-rush/game/engine"
	"github.com/wricardo/train-rush/game/protocol"
)

func TestSchemas_ValidateMessages(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		b, err := protocol.Encode(msg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	serverSchema := compile("server.schema.json")
	stateSchema := compile("state.schema.json")
	gameOverSchema := compile("game_over.schema.json")
	joinSchema := compile("join_success.schema.json")

	join := protocol.JoinSuccess(protocol.JoinSuccessData{RoomID: "room-1", CurrentPlayers: 1, MaxPlayers: 2})
	validate(serverSchema, join)
	validate(joinSchema, join)

	g, err := engine.NewGame(engine.DefaultGameConfig())
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	g.Start([]string{"alice", "bob"})
	g.Tick()
	state := protocol.State(g.Full())
	validate(serverSchema, state)
	validate(stateSchema, state)

	over := protocol.GameOver(protocol.GameOverData{
		Message:     "Game over",
		FinalScores: protocol.Standings(map[string]int{"alice": 4, "bob": 2}),
		Duration:    300,
		BestScores:  map[string]int{"alice": 4, "bob": 2},
	})
	validate(serverSchema, over)
	validate(gameOverSchema, over)

	for _, msg := range []protocol.Message{
		protocol.Death(4.5),
		protocol.SpawnSuccess("alice"),
		protocol.RespawnFailed("cooldown"),
		protocol.DropWagonSuccess(engine.Position{X: 3, Y: 4}),
		protocol.DropWagonFailed("no wagons"),
		protocol.NameCheck(true),
		protocol.SciperCheck(false, 0, false),
		protocol.Disconnect("inactivity"),
		protocol.GameStarted(),
		protocol.Pong(),
		protocol.WaitingRoom(protocol.WaitingRoomData{RoomID: "r", Players: []string{"alice"}, NbPlayers: 2}),
		protocol.InitialState(protocol.InitialStateData{GameLifeTime: 300, StartTime: 1700000000}),
	} {
		validate(serverSchema, msg)
	}
}

func TestSchemas_ClientMessages(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "client.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	valid := []string{
		`{"type":"check_name","agent_name":"alice"}`,
		`{"type":"check_sciper","agent_sciper":"123456"}`,
		`{"type":"agent_ids","agent_name":"alice","agent_sciper":123456}`,
		`{"type":"ping"}`,
		`{"action":"direction","direction":[0,-1]}`,
		`{"action":"drop_wagon"}`,
	}
	for _, raw := range valid {
		var v any
		_ = json.Unmarshal([]byte(raw), &v)
		if err := s.Validate(v); err != nil {
			t.Errorf("Expected %s to be valid: %v", raw, err)
		}
	}

	invalid := []string{
		`{"action":"direction","direction":[1]}`,
		`{"type":"agent_ids","agent_name":""}`,
		`{"action":"fly"}`,
	}
	for _, raw := range invalid {
		var v any
		_ = json.Unmarshal([]byte(raw), &v)
		if err := s.Validate(v); err == nil {
			t.Errorf("Expected %s to be rejected", raw)
		}
	}
}
