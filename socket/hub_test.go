package socket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContent struct {
	docs map[string]string
}

func (f *fakeContent) DocumentContent(id string) (string, error) {
	content, ok := f.docs[id]
	if !ok {
		return "", errors.New("document not found")
	}
	return content, nil
}

// Helper to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &msg)
	require.NoError(t, err, "Failed to unmarshal WSMessage JSON")
	return msg
}

func TestHubIntegration(t *testing.T) {
	docID := "test-doc-1"
	initialContent := "<h1>Notes</h1><p>Hello World</p>"

	hub := NewHub(&fakeContent{docs: map[string]string{docID: initialContent}})
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		ServeWs(hub, w, r, userID, userID)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	// Client 1 joins and immediately receives the full document content
	// followed by the metadata message.
	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?docId="+docID+"&user_id=user1", nil)
	require.NoError(t, err, "Client 1 failed to connect")
	defer conn1.Close()

	initialMsg := readMessage(t, conn1)
	assert.Equal(t, UpdateType, initialMsg.Type)
	assert.Equal(t, docID, initialMsg.DocID)
	var contentPayload map[string]string
	require.NoError(t, json.Unmarshal(initialMsg.Payload, &contentPayload))
	assert.Equal(t, initialContent, contentPayload["content"])

	metaMsg := readMessage(t, conn1)
	assert.Equal(t, MetadataType, metaMsg.Type)
	var meta map[string]string
	require.NoError(t, json.Unmarshal(metaMsg.Payload, &meta))
	assert.Equal(t, "Notes", meta["title"])

	// Skip client 1's own presence update.
	presenceMsg := readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presenceMsg.Type)

	// Client 2 joins the same room.
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?docId="+docID+"&user_id=user2", nil)
	require.NoError(t, err, "Client 2 failed to connect")
	defer conn2.Close()

	_ = readMessage(t, conn2) // content
	_ = readMessage(t, conn2) // metadata

	// Client 1 receives a presence update listing both users.
	presenceMsg = readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presenceMsg.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(presenceMsg.Payload, &statuses))
	assert.Len(t, statuses, 2, "Should be two users in the room")
	userIDs := []string{statuses[0].UserID, statuses[1].UserID}
	assert.Contains(t, userIDs, "user1")
	assert.Contains(t, userIDs, "user2")
	for _, status := range statuses {
		assert.NotEmpty(t, status.Color)
	}

	// Client 2 sends a content update; client 1 receives the broadcast.
	updatePayload := `{"content":"<h1>Notes</h1><p>Hello World!</p>"}`
	msgBytes, _ := json.Marshal(WSMessage{Type: UpdateType, Payload: json.RawMessage(updatePayload)})
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, msgBytes))

	broadcastMsg := readMessage(t, conn1)
	assert.Equal(t, UpdateType, broadcastMsg.Type)
	assert.Equal(t, "user2", broadcastMsg.UserID, "Broadcast message should have correct UserID")
	assert.JSONEq(t, updatePayload, string(broadcastMsg.Payload))
}

func TestHubRejectsUnknownDocument(t *testing.T) {
	hub := NewHub(&fakeContent{docs: map[string]string{}})
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, "user1", "user1")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?docId=ghost", nil)
	require.NoError(t, err)
	defer conn.Close()

	// The server closes the connection without registering the client.
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubEvictsLaggingClientWithoutStalling(t *testing.T) {
	docID := "doc-lag"
	hub := NewHub(&fakeContent{docs: map[string]string{docID: "<h1>Lag</h1>"}})
	go hub.Run()

	// The laggard's buffer only fits its two join messages, so every
	// broadcast after that finds it full.
	laggard := &Client{Hub: hub, DocID: docID, UserID: "slow", Username: "slow", Color: pickColor(), Send: make(chan []byte, 2)}
	healthy := &Client{Hub: hub, DocID: docID, UserID: "fast", Username: "fast", Color: pickColor(), Send: make(chan []byte, 16)}
	hub.Register <- laggard
	hub.Register <- healthy

	hub.Broadcast <- WSMessage{Type: CursorType, DocID: docID, UserID: "other", Payload: json.RawMessage(`{}`)}
	hub.Broadcast <- WSMessage{Type: CursorType, DocID: docID, UserID: "other", Payload: json.RawMessage(`{}`)}

	// Both broadcasts still reach the healthy client even though the
	// laggard's eviction runs in between.
	deadline := time.After(2 * time.Second)
	cursorCount := 0
	for cursorCount < 2 {
		select {
		case p := <-healthy.Send:
			var msg WSMessage
			require.NoError(t, json.Unmarshal(p, &msg))
			if msg.Type == CursorType {
				cursorCount++
			}
		case <-deadline:
			t.Fatal("hub stalled before delivering broadcasts")
		}
	}

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, present := hub.Presence[docID]["slow"]
		return !present
	}, 2*time.Second, 10*time.Millisecond, "lagging client should be unregistered")
}

func TestSimulatorAppendsToFeedOnly(t *testing.T) {
	docID := "doc-sim"
	content := &fakeContent{docs: map[string]string{docID: "<h1>Sim</h1>"}}
	hub := NewHub(content)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, "user1", "user1")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?docId="+docID, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = readMessage(t, conn) // content
	_ = readMessage(t, conn) // metadata
	_ = readMessage(t, conn) // presence

	sim := NewSimulator(hub)
	sim.tick()

	// The synthetic edit lands in the activity feed and is broadcast, but
	// authoritative content is untouched.
	msg := readMessage(t, conn)
	assert.Equal(t, ActivityType, msg.Type)
	var event ActivityEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Contains(t, event.Text, event.Username)

	feed := hub.ActivityFeed(docID)
	require.Len(t, feed, 1)
	assert.Equal(t, event.Username, feed[0].Username)

	got, err := content.DocumentContent(docID)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Sim</h1>", got)
}
