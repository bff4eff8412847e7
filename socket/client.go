package socket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"moosedocs/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows connections from the dev frontend.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	DocID    string
	UserID   string
	Username string
	Color    string
	Title    string
	Send     chan []byte
}

// ServeWs upgrades the connection and joins the client to its document room.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID, username string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		logger.Sugar.Error("Missing docId")
		conn.Close()
		return
	}

	content, err := hub.content.DocumentContent(docID)
	if err != nil {
		logger.Sugar.Warnf("Connection rejected: Document %s not found", docID)
		conn.Close()
		return
	}
	title := titleFromContent(content)

	client := &Client{
		Hub:      hub,
		Conn:     conn,
		DocID:    docID,
		UserID:   userID,
		Username: username,
		Color:    pickColor(),
		Title:    title,
		Send:     make(chan []byte, 256),
	}

	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

// titleFromContent pulls the leading h1 out of the boilerplate HTML for the
// metadata message; an untitled blob falls back to empty.
func titleFromContent(content string) string {
	start := strings.Index(content, "<h1>")
	if start < 0 {
		return ""
	}
	rest := content[start+len("<h1>"):]
	end := strings.Index(rest, "</h1>")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Overwrite the ids with server-authoritative values so a client
		// cannot send messages on behalf of others. Share permissions are
		// recorded but deliberately not enforced here.
		msg.DocID = c.DocID
		msg.UserID = c.UserID

		c.Hub.Broadcast <- msg
	}
}

func (c *Client) writePump() {
	// A ping every 30s keeps the connection alive and detects drops.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
