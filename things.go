// Thingsbox party game
//
// A host screen creates a room with a short human-readable code; players join
// from their own devices. Each round the host sets a prompt, players submit
// anonymous answers, and once the host locks the round everyone votes on the
// answers while players take turns guessing who wrote what.
//
// Features:
// - One WebSocket endpoint; connections attach to a room via create/join events
// - Every mutation broadcasts the full room snapshot to all room members
// - createRoom/joinRoom/deleteRoom acknowledged directly to the caller
// - Stale auto-rejoins into a recreated room are rejected (room_reused)
// - Players identified by a client-supplied id, with a cookie fallback
// - Prompt suggestions with emoji votes, submitted by players
// - Answer voting with a two-unit budget; duplicate answers cost both units
// - Turn rotation over named players, skipping ineligible ones
// - Host-only room deletion; idle rooms reaped after the room timeout
// - In-browser QR code to share a room's join URL, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"html"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type clientMessage struct {
	Type         string         `json:"type"`
	RoomCode     string         `json:"roomCode,omitempty"`     // createRoom / joinRoom
	Role         string         `json:"role,omitempty"`         // "host" | "player"
	Method       string         `json:"method,omitempty"`       // joinRoom: "manual" | "auto" | "host"
	LastRoomID   string         `json:"lastRoomId,omitempty"`   // joinRoom: last observed instance id
	ClientID     string         `json:"clientId,omitempty"`     // stable per-browser player id
	Name         string         `json:"name,omitempty"`         // submitAnswer
	Answer       *string        `json:"answer,omitempty"`       // submitAnswer / voteAnswer
	Text         string         `json:"text,omitempty"`         // submitPromptSuggestion
	SuggestionID string         `json:"suggestionId,omitempty"` // voteSuggestion / removeSuggestion
	Emoji        string         `json:"emoji,omitempty"`        // voteSuggestion / voteAnswer
	AnswerText   string         `json:"answerText,omitempty"`   // toggleAnswerActive
	PlayerID     string         `json:"playerId,omitempty"`     // scoreDelta / toggles / adminRemovePlayer
	Delta        int            `json:"delta,omitempty"`        // scoreDelta
	Updates      []PlayerUpdate `json:"updates,omitempty"`      // adminEditPlayers
	Value        string         `json:"value,omitempty"`        // setPrompt
}

const (
	msgState       = "state"
	msgAck         = "ack"
	msgRoomDeleted = "roomDeleted"
	msgRoundResult = "roundResult"
)

// Messages sent to clients; Type selects which fields are populated.
type serverMessage struct {
	Type     string       `json:"type"`
	State    *GameState   `json:"state,omitempty"`
	RoomCode string       `json:"roomCode,omitempty"`
	Event    string       `json:"event,omitempty"`
	OK       *bool        `json:"ok,omitempty"`
	Error    string       `json:"error,omitempty"`
	Result   *RoundResult `json:"result,omitempty"`
}

type client struct {
	conn     *websocket.Conn
	send     chan serverMessage
	playerID string

	mu         sync.Mutex
	room       *Room
	role       string
	sendClosed bool
}

func (c *client) currentRoom() (*Room, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.role
}

func (c *client) setRoom(r *Room, role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = r
	c.role = role
}

// detachFrom clears the association only if it still points at r, so a
// concurrent join to another room is never clobbered.
func (c *client) detachFrom(r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == r {
		c.room = nil
	}
}

func (c *client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// ack answers a lifecycle request on the caller's own connection.
func (c *client) ack(event string, ok bool, kind string) {
	c.trySend(serverMessage{Type: msgAck, Event: event, OK: &ok, Error: kind})
}

func (c *client) trySend(msg serverMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "thingsbox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveThingsWS(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		c := &client{
			conn:     conn,
			send:     make(chan serverMessage, 8),
			playerID: playerID,
		}

		go c.writePump()
		c.readPump(cfg, rm)
	}
}

func (c *client) readPump(cfg *Config, rm *RoomManager) {
	defer func() {
		if room, _ := c.currentRoom(); room != nil {
			room.leave(c)
		}
		c.closeSend()
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.dispatch(cfg, rm, msg)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *client) dispatch(cfg *Config, rm *RoomManager, msg clientMessage) {
	switch msg.Type {
	case "createRoom":
		c.handleCreateRoom(cfg, rm, msg)
	case "joinRoom":
		c.handleJoinRoom(cfg, rm, msg)
	case "deleteRoom":
		c.handleDeleteRoom(cfg, rm)
	default:
		c.handleRoomEvent(msg)
	}
}

func (c *client) handleCreateRoom(cfg *Config, rm *RoomManager, msg clientMessage) {
	room, kind := rm.createRoom(msg.RoomCode)
	if kind != "" {
		c.ack("createRoom", false, kind)
		return
	}
	role := msg.Role
	if role == "" {
		role = "host"
	}
	c.setRoom(room, role)
	if !room.join(c) {
		c.detachFrom(room)
		c.ack("createRoom", false, errNotFound)
		return
	}
	c.ack("createRoom", true, "")
	logf(cfg, "ROOMS: Created room %s", room.code)
}

func (c *client) handleJoinRoom(cfg *Config, rm *RoomManager, msg clientMessage) {
	room := rm.getRoom(msg.RoomCode)
	if room == nil {
		c.ack("joinRoom", false, errNotFound)
		return
	}
	role := msg.Role
	if role == "" {
		role = "player"
	}
	method := msg.Method
	if method == "" {
		method = "auto"
	}

	// Guard against unintended auto-rejoins when a room code is reused: a
	// non-manual player join must prove knowledge of the current instance.
	if role == "player" && method != "manual" {
		if msg.LastRoomID == "" || msg.LastRoomID != room.instanceID {
			c.ack("joinRoom", false, errRoomReused)
			return
		}
	}

	if prev, _ := c.currentRoom(); prev != nil && prev != room {
		prev.leave(c)
	}
	c.setRoom(room, role)
	if !room.join(c) {
		// The room shut down between the registry lookup and the join.
		c.detachFrom(room)
		c.ack("joinRoom", false, errNotFound)
		return
	}
	c.ack("joinRoom", true, "")
	logf(cfg, "ROOMS: %s %q joined %s", role, c.playerID, room.code)
}

func (c *client) handleDeleteRoom(cfg *Config, rm *RoomManager) {
	room, role := c.currentRoom()
	if room == nil {
		c.ack("deleteRoom", false, errNotFound)
		return
	}
	if role != "host" {
		c.ack("deleteRoom", false, errForbidden)
		return
	}
	rm.deleteRoom(room.code)
	c.ack("deleteRoom", true, "")
	logf(cfg, "ROOMS: Deleted room %s", room.code)
}

// handleRoomEvent covers the non-lifecycle events. They carry no
// acknowledgement channel, so malformed or unroutable payloads are dropped
// on purpose rather than surfaced.
func (c *client) handleRoomEvent(msg clientMessage) {
	room, _ := c.currentRoom()
	if room == nil {
		return
	}

	clientID := msg.ClientID
	if clientID == "" {
		clientID = c.playerID
	}

	switch msg.Type {
	case "submitAnswer":
		room.submitAnswer(clientID, msg.Name, msg.Answer)
	case "clearAnswers":
		room.clearAnswers()
	case "submitPromptSuggestion":
		room.submitPromptSuggestion(clientID, msg.Text)
	case "voteSuggestion":
		room.voteSuggestion(clientID, msg.SuggestionID, msg.Emoji)
	case "removeSuggestion":
		room.removeSuggestion(msg.SuggestionID)
	case "voteAnswer":
		answer := ""
		if msg.Answer != nil {
			answer = *msg.Answer
		}
		room.voteAnswer(clientID, answer, msg.Emoji)
	case "toggleLock":
		room.toggleLock()
	case "nextTurn":
		room.nextTurn()
	case "scoreDelta":
		room.scoreDelta(msg.PlayerID, msg.Delta)
	case "togglePlayerActive":
		room.togglePlayerActive(msg.PlayerID)
	case "toggleAnswerActive":
		room.toggleAnswerActive(msg.AnswerText)
	case "adminEditPlayers":
		room.adminEditPlayers(msg.Updates)
	case "adminRemovePlayer":
		room.adminRemovePlayer(msg.PlayerID)
	case "randomizePlayOrder":
		room.randomizePlayOrder()
	case "setPrompt":
		room.setPrompt(msg.Value)
	case "resolveRound":
		snap := room.snapshot()
		result := resolveRound(snap.Answers, snap.AnswerVotes)
		c.trySend(serverMessage{Type: msgRoundResult, Result: &result})
	default:
		// ignore unknown types
	}
}

// QR handler: generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func serveRoomPage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeCode(ps.ByName("code"))
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		// Codes come straight from the URL, so escape before interpolating.
		safeCode := html.EscapeString(code)
		safePath := html.EscapeString(r.URL.Path)

		body := `<h1>Room ` + safeCode + `</h1>` +
			`<p>Scan the <a href="` + safePath + `/qr">QR code</a> to share this room.</p>` +
			`<p>Game clients connect over the websocket endpoint at <code>` + cfg.prefix + `/ws</code>.</p>`

		_, err := w.Write([]byte(newPage("Room "+code, body)))
		if err != nil {
			errs <- err

			return
		}
	}
}

// registerThingsGame sets up routes so that:
//   - $path/:code       → room landing page
//   - $path/:code/qr    → PNG QR code for that room's URL
//   - /ws               → shared WebSocket endpoint; rooms attach per event
func registerThingsGame(cfg *Config, path string, mux *httprouter.Router) {
	rm := newRoomManager(cfg)

	errs := make(chan error, 64)

	mux.GET(cfg.prefix+path+"/:code", serveRoomPage(cfg, errs))

	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler)

	mux.GET(cfg.prefix+"/ws", serveThingsWS(cfg, rm))
}
