package socket

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"moosedocs/pkg/logger"
)

const (
	UpdateType         = "UPDATE"          // Document content replaced
	CursorType         = "CURSOR"          // User moved their cursor
	PresenceUpdateType = "PRESENCE_UPDATE" // A user joined or left
	CommentType        = "COMMENT"         // New comment added
	CommentUpdateType  = "COMMENT_UPDATE"  // Comment resolved/edited
	CommentDeleteType  = "COMMENT_DELETE"  // Comment deleted
	MetadataType       = "METADATA"        // Document title/info
	ActivityType       = "ACTIVITY"        // Simulated collaborator activity
)

// Cursor colors handed out to participants, from the demo's palette.
var participantColors = []string{
	"#FF6633", "#FF33FF", "#00B3E6", "#3366E6", "#B34D4D",
	"#80B300", "#FF1A66", "#33FFCC", "#B366CC", "#991AFF",
	"#E666B3", "#4D80CC", "#9900B3", "#4DB380", "#6666FF",
}

type WSMessage struct {
	Type    string          `json:"type"`
	DocID   string          `json:"document_id"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

type UserStatus struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Color     string    `json:"color"`
	CursorPos int       `json:"cursor_pos"`
	LastSeen  time.Time `json:"last_seen"`
}

// ActivityEvent is one entry of the simulated collaborator feed. The feed is
// append-only and separate from authoritative document state.
type ActivityEvent struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Color    string    `json:"color"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// ContentProvider seeds a room with the document's current content when its
// first client joins. The document store satisfies it.
type ContentProvider interface {
	DocumentContent(id string) (string, error)
}

type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	content ContentProvider
	// Track room state in memory.
	DocumentCache map[string][]byte
	Presence      map[string]map[string]UserStatus // docID -> userID -> status
	Activity      map[string][]ActivityEvent       // docID -> simulated feed
	mu            sync.Mutex
}

func NewHub(content ContentProvider) *Hub {
	return &Hub{
		Rooms:         make(map[string]map[*Client]bool),
		Broadcast:     make(chan WSMessage),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		content:       content,
		DocumentCache: make(map[string][]byte),
		Presence:      make(map[string]map[string]UserStatus),
		Activity:      make(map[string][]ActivityEvent),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			// Initialize room and presence, and load the document if this
			// is the first user.
			if h.Rooms[client.DocID] == nil {
				h.Rooms[client.DocID] = make(map[*Client]bool)
				h.Presence[client.DocID] = make(map[string]UserStatus)

				content, err := h.content.DocumentContent(client.DocID)
				if err != nil {
					logger.Sugar.Errorf("Failed to load document %s for room: %v", client.DocID, err)
				}
				h.DocumentCache[client.DocID] = []byte(content)
			}
			h.Rooms[client.DocID][client] = true

			h.Presence[client.DocID][client.UserID] = UserStatus{
				UserID:   client.UserID,
				Username: client.Username,
				Color:    client.Color,
				LastSeen: time.Now(),
			}

			currentContent := h.DocumentCache[client.DocID]
			h.mu.Unlock()

			// Send the full document state to the user who just joined.
			contentPayload, _ := json.Marshal(map[string]string{"content": string(currentContent)})
			initialMsg, _ := json.Marshal(WSMessage{Type: UpdateType, DocID: client.DocID, Payload: contentPayload})
			client.Send <- initialMsg

			metaPayload, _ := json.Marshal(map[string]string{"title": client.Title})
			metaMsg, _ := json.Marshal(WSMessage{Type: MetadataType, DocID: client.DocID, UserID: client.UserID, Payload: metaPayload})
			client.Send <- metaMsg

			// Notify everyone in the room about the new participant.
			h.broadcastPresenceUpdate(client.DocID)

		case client := <-h.Unregister:
			h.mu.Lock()
			docID := client.DocID
			if _, ok := h.Rooms[client.DocID][client]; ok {
				delete(h.Rooms[client.DocID], client)
				delete(h.Presence[client.DocID], client.UserID)
				close(client.Send)

				// If the room is empty, clean up all associated resources.
				if len(h.Rooms[client.DocID]) == 0 {
					delete(h.Rooms, client.DocID)
					delete(h.Presence, client.DocID)
					delete(h.DocumentCache, client.DocID)
					delete(h.Activity, client.DocID)
					logger.Sugar.Infof("Closed and cleaned up empty room: %s", client.DocID)
				}
			}
			// Captured under the lock; only Run mutates Rooms but
			// RemoveDocument deletes entries from other goroutines.
			roomOpen := h.Rooms[docID] != nil
			h.mu.Unlock()

			// Notify remaining users, only if the room still exists.
			if roomOpen {
				h.broadcastPresenceUpdate(docID)
			}

		case msg := <-h.Broadcast:
			h.mu.Lock()
			// Content updates refresh the room cache so late joiners get
			// the latest text. Cursor and comment messages just fan out.
			if msg.Type == UpdateType {
				var update struct {
					Content string `json:"content"`
				}
				if err := json.Unmarshal(msg.Payload, &update); err == nil {
					h.DocumentCache[msg.DocID] = []byte(update.Content)
				}
			}

			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				h.mu.Unlock()
				continue
			}

			// Everyone in the room except the original sender, collected
			// under the lock, written outside it.
			clientsToSend := make([]*Client, 0, len(h.Rooms[msg.DocID]))
			for client := range h.Rooms[msg.DocID] {
				if client.UserID != msg.UserID {
					clientsToSend = append(clientsToSend, client)
				}
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					// Full send buffer means the client is lagging.
					// Unregister it to keep the hub from blocking.
					// Run is the only receiver on Unregister, so the
					// send must happen off this goroutine.
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
					go func(c *Client) { h.Unregister <- c }(client)
				}
			}
		}
	}
}

// RemoveDocument forcefully removes a document's room and disconnects its
// clients. Called when the document is deleted via the API.
func (h *Hub) RemoveDocument(docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.DocumentCache, docID)
	delete(h.Presence, docID)
	delete(h.Activity, docID)

	if clients, ok := h.Rooms[docID]; ok {
		for client := range clients {
			client.Conn.Close() // readPump exits and unregisters safely
		}
		delete(h.Rooms, docID)
	}
}

// ActivityFeed returns a copy of a room's simulated activity feed.
func (h *Hub) ActivityFeed(docID string) []ActivityEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ActivityEvent(nil), h.Activity[docID]...)
}

func (h *Hub) broadcastPresenceUpdate(docID string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.Presence[docID]; ok {
		userStatuses = make([]UserStatus, 0, len(h.Presence[docID]))
		for _, status := range h.Presence[docID] {
			userStatuses = append(userStatuses, status)
		}

		clientsToSend = make([]*Client, 0, len(h.Rooms[docID]))
		for client := range h.Rooms[docID] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, DocID: docID, Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- broadcastPayload:
		default:
			// Don't unregister here, just log. The pumps handle
			// unresponsive clients.
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}

func pickColor() string {
	return participantColors[rand.Intn(len(participantColors))]
}
