package agent

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/wricardo/train-rush/game/engine"
)

func createTestView(self engine.TrainState, others ...engine.TrainState) View {
	trains := map[string]engine.TrainState{self.Name: self}
	for _, o := range others {
		trains[o.Name] = o
	}
	return View{
		Name:   self.Name,
		Self:   self,
		Alive:  self.Alive,
		Trains: trains,
		Size:   engine.Size{Width: 10, Height: 10},
	}
}

func train(name string, pos engine.Position, dir engine.Direction, wagons ...engine.Position) engine.TrainState {
	return engine.TrainState{Name: name, Position: pos, Direction: dir, Wagons: wagons, Alive: true}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{KindGreedy, false},
		{KindWanderer, false},
		{"", false},
		{"oracle", true},
	}

	for _, test := range tests {
		a, err := New(test.kind, rand.New(rand.NewSource(1)))
		if test.wantErr {
			if !errors.Is(err, ErrUnknownKind) {
				t.Errorf("New(%q): expected ErrUnknownKind, got %v", test.kind, err)
			}
			continue
		}
		if err != nil || a == nil {
			t.Errorf("New(%q): unexpected error %v", test.kind, err)
		}
	}
}

func TestGreedy_ChasesNearestPassenger(t *testing.T) {
	v := createTestView(train("bot", engine.Position{X: 5, Y: 5}, engine.Right))
	v.Passengers = []engine.PassengerState{
		{Position: engine.Position{X: 5, Y: 1}, Value: 1},
		{Position: engine.Position{X: 0, Y: 9}, Value: 3},
	}

	intent := NewGreedy().Decide(v)
	if intent.Direction != engine.Up {
		t.Errorf("Expected Up toward the nearest passenger, got %v", intent.Direction)
	}
}

func TestGreedy_NeverReverses(t *testing.T) {
	v := createTestView(train("bot", engine.Position{X: 5, Y: 5}, engine.Right))
	v.Passengers = []engine.PassengerState{{Position: engine.Position{X: 0, Y: 5}, Value: 1}}

	intent := NewGreedy().Decide(v)
	if intent.Direction == engine.Left {
		t.Error("Greedy must not pick the reverse heading")
	}
}

func TestGreedy_AvoidsWalls(t *testing.T) {
	v := createTestView(train("bot", engine.Position{X: 9, Y: 5}, engine.Right))
	v.Passengers = []engine.PassengerState{{Position: engine.Position{X: 9, Y: 5}, Value: 1}}

	intent := NewGreedy().Decide(v)
	if !v.Size.Contains(v.Self.Position.Add(intent.Direction)) {
		t.Errorf("Greedy steered out of the world with %v", intent.Direction)
	}
}

func TestGreedy_AvoidsWagons(t *testing.T) {
	other := train("other", engine.Position{X: 7, Y: 2}, engine.Down,
		engine.Position{X: 7, Y: 1}, engine.Position{X: 6, Y: 1}, engine.Position{X: 5, Y: 1})
	v := createTestView(train("bot", engine.Position{X: 5, Y: 2}, engine.Up), other)
	v.Passengers = []engine.PassengerState{{Position: engine.Position{X: 5, Y: 0}, Value: 1}}

	intent := NewGreedy().Decide(v)
	if intent.Direction == engine.Up {
		t.Error("Greedy drove into a wagon")
	}
}

func TestGreedy_UnloadsWhenLoaded(t *testing.T) {
	self := train("bot", engine.Position{X: 1, Y: 5}, engine.Down,
		engine.Position{X: 1, Y: 4}, engine.Position{X: 1, Y: 3}, engine.Position{X: 1, Y: 2})
	v := createTestView(self)
	v.Zone = engine.DeliveryZone{X: 6, Y: 4, Width: 2, Height: 2}
	v.Passengers = []engine.PassengerState{{Position: engine.Position{X: 1, Y: 9}, Value: 3}}

	intent := NewGreedy().Decide(v)
	if intent.Direction != engine.Right {
		t.Errorf("Expected Right toward the delivery zone, got %v", intent.Direction)
	}
}

func TestGreedy_DeadTrainDoesNothing(t *testing.T) {
	self := train("bot", engine.Position{X: 5, Y: 5}, engine.Right)
	self.Alive = false
	v := createTestView(self)

	if intent := NewGreedy().Decide(v); intent != (Intent{}) {
		t.Errorf("Expected empty intent, got %+v", intent)
	}
}

func TestWanderer_StaysInBounds(t *testing.T) {
	w := NewWanderer(rand.New(rand.NewSource(3)))
	w.TurnChance = 0.5

	for i := 0; i < 100; i++ {
		v := createTestView(train("bot", engine.Position{X: 0, Y: 0}, engine.Up))
		intent := w.Decide(v)
		if !v.Size.Contains(v.Self.Position.Add(intent.Direction)) {
			t.Fatalf("Wanderer left the world heading %v", intent.Direction)
		}
	}
}
