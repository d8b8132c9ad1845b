package room

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/protocol"
)

// Start begins the game with the current participants. Calling it again is a no-op.
func (r *Room) Start() {
	r.mu.Lock()
	if r.state != Waiting || len(r.participants) == 0 {
		r.mu.Unlock()
		return
	}

	r.game.Start(r.namesLocked())
	r.state = Running
	r.startedAt = r.game.StartedAt()
	r.tickDone = make(chan struct{})
	addrs := r.humanAddrsLocked()
	initial := protocol.InitialStateData{
		GameLifeTime: r.cfg.GameDuration.Seconds(),
		StartTime:    float64(r.startedAt.UnixNano()) / float64(time.Second),
	}
	players := len(r.participants)
	r.wg.Add(2)
	r.mu.Unlock()

	r.log.Printf("Game started with %d players", players)
	for _, addr := range addrs {
		r.send(addr, protocol.InitialState(initial))
		r.send(addr, protocol.GameStarted())
	}

	go r.tickLoop()
	go r.broadcastLoop()
	go r.timerLoop()
}

// fillWithBots adds AI participants until the room is full
func (r *Room) fillWithBots() {
	r.mu.Lock()
	if r.state != Waiting || r.botFilled {
		r.mu.Unlock()
		return
	}
	r.botFilled = true
	missing := r.cfg.PlayersPerRoom - len(r.participants)
	r.mu.Unlock()

	for i := 0; i < missing; i++ {
		name := r.acquireAIName()
		if name == "" {
			r.log.Printf("Warning: no AI name available, starting with fewer players")
			break
		}
		r.mu.Lock()
		if r.state != Waiting {
			r.mu.Unlock()
			r.releaseAIName(name)
			return
		}
		r.aiNames[name] = true
		r.addAILocked(name, "")
		r.mu.Unlock()
		r.log.Printf("Bot %s joined", name)
	}
	r.Start()
}

// addAILocked registers an AI participant and starts its client
func (r *Room) addAILocked(name, id string) *AIClient {
	key := AIKey(name)
	r.participants[key] = &Participant{Key: key, Name: name, ID: id}
	c := newAIClient(r, name, r.newAgent(), r.cfg.AIPollInterval, r.log)
	r.aiClients[name] = c
	c.Start()
	return c
}

func (r *Room) acquireAIName() string {
	if r.deps.Names == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		for n := 1; ; n++ {
			name := "Bot-" + strconv.Itoa(n)
			if !r.nameUsedLocked(name) {
				return name
			}
		}
	}
	return r.deps.Names.AcquireAIName()
}

func (r *Room) releaseAIName(name string) {
	if r.deps.Names != nil {
		r.deps.Names.ReleaseAIName(name)
	}
}

// RemoveParticipant handles a human leaving. The room closes once no human remains; otherwise
// a running game hands a live train to an AI that keeps the player's name.
func (r *Room) RemoveParticipant(addr string) {
	r.mu.Lock()
	p, ok := r.participants[addr]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.participants, addr)
	if r.state == Waiting {
		delete(r.humans, p.Name)
	}
	humans := r.humanCountLocked()
	if humans == 0 {
		r.mu.Unlock()
		r.log.Printf("%s left, no humans remain", p.Name)
		r.Close()
		return
	}

	takeover := false
	if r.state == Running {
		if r.game.TrainAlive(p.Name) && r.claimAIName(p.Name) {
			r.aiNames[p.Name] = true
			r.addAILocked(p.Name, p.ID)
			takeover = true
		} else {
			r.game.RemovePlayer(p.Name)
		}
	}
	r.mu.Unlock()

	if takeover {
		r.log.Printf("%s left, AI took over the train", p.Name)
	} else {
		r.log.Printf("%s left", p.Name)
	}
}

func (r *Room) claimAIName(name string) bool {
	if r.deps.Names == nil {
		return true
	}
	return r.deps.Names.ClaimAIName(name)
}

// endGame finishes a running game: it persists scores, records the match and sends game_over once
func (r *Room) endGame() {
	r.mu.Lock()
	if r.state != Running {
		r.mu.Unlock()
		return
	}
	r.state = Over
	r.game.Stop()
	r.endedAt = r.now()

	best := r.game.BestScores()
	standings := protocol.Standings(best)
	r.finalScores = standings
	duration := r.endedAt.Sub(r.startedAt).Seconds()
	addrs := r.humanAddrsLocked()

	ids := make(map[string]string, len(r.participants))
	human := make(map[string]bool, len(r.participants))
	for name, id := range r.humans {
		ids[name] = id
		human[name] = true
	}
	for _, p := range r.participants {
		if p.ID != "" {
			ids[p.Name] = p.ID
		}
	}
	match := history.Match{
		ID:        uuid.NewString(),
		RoomID:    r.ID,
		StartedAt: r.startedAt,
		EndedAt:   r.endedAt,
		Duration:  duration,
		Ticks:     r.game.Ticks(),
		Width:     r.game.Size().Width,
		Height:    r.game.Size().Height,
		Players:   make([]history.PlayerResult, 0, len(standings)),
	}
	for i, s := range standings {
		match.Players = append(match.Players, history.PlayerResult{
			Name:  s.Name,
			ID:    ids[s.Name],
			Human: human[s.Name],
			Score: s.Score,
			Rank:  i + 1,
		})
	}
	if len(standings) > 0 {
		match.Winner = standings[0].Name
	}
	r.mu.Unlock()

	r.persistScores(ids, best)
	if r.deps.Recorder != nil {
		if err := r.deps.Recorder.RecordMatch(match); err != nil {
			r.log.Printf("Warning: failed to record match %s: %v", match.ID, err)
		}
	}

	msg := protocol.GameOver(protocol.GameOverData{
		Message:     "Game over",
		FinalScores: standings,
		Duration:    duration,
		BestScores:  best,
	})
	r.broadcast(addrs, msg)
	if len(standings) > 0 {
		r.log.Printf("Game over after %.0fs, winner %s with %d", duration, standings[0].Name, standings[0].Score)
	}

	time.AfterFunc(r.cfg.GameOverGrace, r.Close)
}

func (r *Room) persistScores(ids map[string]string, best map[string]int) {
	if r.deps.Scores == nil {
		return
	}
	changed := false
	for name, score := range best {
		id := ids[name]
		if id == "" {
			continue
		}
		if r.deps.Scores.Update(id, score) {
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := r.deps.Scores.Save(); err != nil {
		r.log.Printf("Warning: failed to save best scores: %v", err)
	}
}

// Close tears the room down. It is safe to call more than once and from any goroutine.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.game.Stop()
		r.state = Closed
		tickDone := r.tickDone
		clients := make([]*AIClient, 0, len(r.aiClients))
		for _, c := range r.aiClients {
			clients = append(clients, c)
		}
		names := make([]string, 0, len(r.aiNames))
		for name := range r.aiNames {
			names = append(names, name)
		}
		r.mu.Unlock()

		close(r.stop)
		r.wg.Wait()

		if tickDone != nil {
			select {
			case <-tickDone:
			case <-time.After(r.cfg.JoinTimeout):
				r.log.Printf("Warning: tick loop did not stop within %s", r.cfg.JoinTimeout)
			}
		}

		for _, c := range clients {
			c.Stop()
		}
		for _, name := range names {
			r.releaseAIName(name)
		}

		r.log.Printf("Room closed")
		if r.deps.OnClosed != nil {
			r.deps.OnClosed(r.ID)
		}
	})
}

// Done returns a channel closed once teardown has begun
func (r *Room) Done() <-chan struct{} {
	return r.stop
}
