package socket

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"moosedocs/pkg/logger"
)

// Simulated participants shown alongside real users in open documents.
var simulatedParticipants = []struct {
	ID       string
	Username string
}{
	{ID: "sim1", Username: "alex_writer"},
	{ID: "sim2", Username: "sam_editor"},
}

// Simulator fabricates collaborator activity: roughly every interval, with
// some probability, it appends a synthetic edit attributed to a simulated
// participant to a room's activity feed and broadcasts it. It is a demo
// feature and only ever touches the feed, never authoritative document state.
type Simulator struct {
	hub      *Hub
	interval time.Duration
	stop     chan struct{}
}

func NewSimulator(hub *Hub) *Simulator {
	return &Simulator{
		hub:      hub,
		interval: 10 * time.Second,
		stop:     make(chan struct{}),
	}
}

// SetInterval overrides the tick period, used by tests.
func (s *Simulator) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *Simulator) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if rand.Float64() > 0.7 {
				s.tick()
			}
		case <-s.stop:
			return
		}
	}
}

func (s *Simulator) Stop() {
	close(s.stop)
}

// tick picks an occupied room and appends one synthetic edit to its feed.
func (s *Simulator) tick() {
	s.hub.mu.Lock()
	rooms := make([]string, 0, len(s.hub.Rooms))
	for docID, clients := range s.hub.Rooms {
		if len(clients) > 0 {
			rooms = append(rooms, docID)
		}
	}
	s.hub.mu.Unlock()

	if len(rooms) == 0 {
		return
	}
	docID := rooms[rand.Intn(len(rooms))]
	participant := simulatedParticipants[rand.Intn(len(simulatedParticipants))]

	event := ActivityEvent{
		UserID:   participant.ID,
		Username: participant.Username,
		Color:    pickColor(),
		Text:     fmt.Sprintf(" [Edit by %s] ", participant.Username),
		At:       time.Now(),
	}

	s.hub.mu.Lock()
	s.hub.Activity[docID] = append(s.hub.Activity[docID], event)
	s.hub.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling activity event: %v", err)
		return
	}
	s.hub.Broadcast <- WSMessage{
		Type:    ActivityType,
		DocID:   docID,
		UserID:  participant.ID,
		Payload: payload,
	}
}
