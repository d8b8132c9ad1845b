// Package protocol defines the newline-delimited JSON messages exchanged over UDP.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Client message discriminators. Probes and keepalives use "type", game commands use "action".
const (
	TypeCheckName   = "check_name"
	TypeCheckSciper = "check_sciper"
	TypeAgentIDs    = "agent_ids"
	TypePing        = "ping"
	TypePong        = "pong"

	ActionDirection = "direction"
	ActionRespawn   = "respawn"
	ActionDropWagon = "drop_wagon"
	ActionStartGame = "start_game"
)

// Server message types
const (
	TypeJoinSuccess      = "join_success"
	TypeWaitingRoom      = "waiting_room"
	TypeInitialState     = "initial_state"
	TypeState            = "state"
	TypeGameStarted      = "game_started_success"
	TypeDeath            = "death"
	TypeSpawnSuccess     = "spawn_success"
	TypeRespawnFailed    = "respawn_failed"
	TypeDropWagonSuccess = "drop_wagon_success"
	TypeDropWagonFailed  = "drop_wagon_failed"
	TypeGameOver         = "game_over"
	TypeNameCheck        = "name_check"
	TypeSciperCheck      = "sciper_check"
	TypeDisconnect       = "disconnect"
)

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrUnknownMessage = errors.New("unknown message type")
)

// ID is a numeric player identifier. Clients may send it as a JSON string or number.
type ID string

// UnmarshalJSON accepts "123456" and 123456
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Valid reports whether the id is a non-empty string of digits
func (id ID) Valid() bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil
}

// Inbound is any client message. Unused fields stay zero.
type Inbound struct {
	Type        string  `json:"type,omitempty"`
	Action      string  `json:"action,omitempty"`
	AgentName   string  `json:"agent_name,omitempty"`
	AgentSciper ID      `json:"agent_sciper,omitempty"`
	Direction   *[2]int `json:"direction,omitempty"`
}

// Kind returns the discriminator routing should switch on
func (m Inbound) Kind() string {
	if m.Action != "" {
		return m.Action
	}
	return m.Type
}

// IsProbe reports whether the message is answered even for unregistered senders
func (m Inbound) IsProbe() bool {
	switch m.Kind() {
	case TypeCheckName, TypeCheckSciper, TypePing:
		return true
	}
	return false
}

var knownKinds = map[string]struct{}{
	TypeCheckName:   {},
	TypeCheckSciper: {},
	TypeAgentIDs:    {},
	TypePing:        {},
	TypePong:        {},
	ActionDirection: {},
	ActionRespawn:   {},
	ActionDropWagon: {},
	ActionStartGame: {},
}

// DecodeMessage parses one JSON object
func DecodeMessage(line []byte) (Inbound, error) {
	var m Inbound
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return m, ErrEmptyMessage
	}
	if err := json.Unmarshal(line, &m); err != nil {
		return m, fmt.Errorf("decode message: %w", err)
	}
	if _, ok := knownKinds[m.Kind()]; !ok {
		return m, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Kind())
	}
	return m, nil
}

// Decode splits a datagram on newlines and decodes every object in it.
// Bad lines are reported in errs and do not stop the others.
func Decode(datagram []byte) (msgs []Inbound, errs []error) {
	for _, line := range bytes.Split(datagram, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		m, err := DecodeMessage(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, errs
}

// Encode serializes one message followed by a newline
func Encode(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return append(b, '\n'), nil
}
