package protocol

import (
	"sort"

	"github.com/wricardo/train-rush/game/engine"
)

// Message is the envelope of every server message. Only the fields a type uses are set.
type Message struct {
	Type      string   `json:"type"`
	Data      any      `json:"data,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Remaining *float64 `json:"remaining,omitempty"`
	AgentName string   `json:"agent_name,omitempty"`
	Text      string   `json:"message,omitempty"`
	Available *bool    `json:"available,omitempty"`
	BestScore *int     `json:"best_score,omitempty"`
	Position  *[2]int  `json:"position,omitempty"`
}

// JoinSuccessData confirms the room a client was placed in
type JoinSuccessData struct {
	RoomID         string `json:"room_id"`
	CurrentPlayers int    `json:"current_players"`
	MaxPlayers     int    `json:"max_players"`
}

// WaitingRoomData describes a room that has not started yet
type WaitingRoomData struct {
	RoomID      string   `json:"room_id"`
	Players     []string `json:"players"`
	NbPlayers   int      `json:"nb_players"`
	GameStarted bool     `json:"game_started"`
	WaitingTime float64  `json:"waiting_time"`
}

// InitialStateData is sent once when a game starts
type InitialStateData struct {
	GameLifeTime float64 `json:"game_life_time"`
	StartTime    float64 `json:"start_time"`
}

// Standing is one row of the final ranking
type Standing struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// GameOverData carries the final ranking
type GameOverData struct {
	Message     string         `json:"message"`
	FinalScores []Standing     `json:"final_scores"`
	Duration    float64        `json:"duration"`
	BestScores  map[string]int `json:"best_scores"`
}

// Standings orders best scores descending, ties broken by name
func Standings(best map[string]int) []Standing {
	out := make([]Standing, 0, len(best))
	for name, score := range best {
		out = append(out, Standing{Name: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// StateData converts a snapshot into the state payload.
// Fields present in the snapshot are always emitted, even when empty.
func StateData(s engine.Snapshot) map[string]any {
	data := make(map[string]any, 4)
	if s.Trains != nil {
		data[string(engine.FieldTrains)] = s.Trains
	}
	if s.Passengers != nil {
		data[string(engine.FieldPassengers)] = s.Passengers
	}
	if s.Size != nil {
		data[string(engine.FieldSize)] = s.Size
	}
	if s.DeliveryZone != nil {
		data[string(engine.FieldDeliveryZone)] = s.DeliveryZone
	}
	return data
}

func JoinSuccess(d JoinSuccessData) Message {
	return Message{Type: TypeJoinSuccess, Data: d}
}

func WaitingRoom(d WaitingRoomData) Message {
	return Message{Type: TypeWaitingRoom, Data: d}
}

func InitialState(d InitialStateData) Message {
	return Message{Type: TypeInitialState, Data: d}
}

func State(s engine.Snapshot) Message {
	return Message{Type: TypeState, Data: StateData(s)}
}

func GameStarted() Message {
	return Message{Type: TypeGameStarted}
}

// Death tells a player its train was destroyed and how long until it may respawn
func Death(remaining float64) Message {
	return Message{Type: TypeDeath, Remaining: &remaining}
}

func SpawnSuccess(name string) Message {
	return Message{Type: TypeSpawnSuccess, AgentName: name}
}

func RespawnFailed(reason string) Message {
	return Message{Type: TypeRespawnFailed, Text: reason}
}

func DropWagonSuccess(pos engine.Position) Message {
	p := [2]int{pos.X, pos.Y}
	return Message{Type: TypeDropWagonSuccess, Position: &p}
}

func DropWagonFailed(reason string) Message {
	return Message{Type: TypeDropWagonFailed, Text: reason}
}

func GameOver(d GameOverData) Message {
	return Message{Type: TypeGameOver, Data: d}
}

// NameCheck answers a check_name probe
func NameCheck(available bool) Message {
	return Message{Type: TypeNameCheck, Available: &available}
}

// SciperCheck answers a check_sciper probe, with the stored best score when known
func SciperCheck(available bool, best int, known bool) Message {
	m := Message{Type: TypeSciperCheck, Available: &available}
	if known {
		m.BestScore = &best
	}
	return m
}

func Ping() Message {
	return Message{Type: TypePing}
}

func Pong() Message {
	return Message{Type: TypePong}
}

func Disconnect(reason string) Message {
	return Message{Type: TypeDisconnect, Reason: reason}
}
