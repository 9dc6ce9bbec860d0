package main

import (
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Player is the server-side record for one participant. Records are created
// lazily on first interaction and persist until an admin removes them or the
// room is deleted; a dropped connection never mutates room state.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NameLocked   bool   `json:"nameLocked"`
	Score        int    `json:"score"`
	Active       bool   `json:"active"`
	Turn         int    `json:"turn"`
	Answer       string `json:"answer,omitempty"`
	AnswerActive bool   `json:"answerActive"`
}

type SuggestionVote struct {
	PlayerID string `json:"playerId"`
	Emoji    string `json:"emoji"`
}

type PromptSuggestion struct {
	ID         string           `json:"id"`
	Text       string           `json:"text"`
	AuthorID   string           `json:"authorId"`
	AuthorName string           `json:"authorName"`
	Votes      []SuggestionVote `json:"votes"`
}

// AnswerVotesEntry buckets votes by answer text rather than player id, so two
// players who submit identical text share one bucket.
type AnswerVotesEntry struct {
	Answer string           `json:"answer"`
	Votes  []SuggestionVote `json:"votes"`
}

type Totals struct {
	TotalPlayers int `json:"totalPlayers"`
	TotalAnswers int `json:"totalAnswers"`
}

// GameState is the full snapshot broadcast to every connection in a room
// after any mutation.
type GameState struct {
	RoomID              string             `json:"roomId"`
	Players             []Player           `json:"players"`
	Answers             []Player           `json:"answers"`
	ShowAnswers         bool               `json:"showAnswers"`
	LockAnswers         bool               `json:"lockAnswers"`
	CurrentTurnPlayerID string             `json:"currentTurnPlayerId"`
	Totals              Totals             `json:"totals"`
	PlayOrder           []string           `json:"playOrder"`
	Prompt              string             `json:"prompt"`
	Suggestions         []PromptSuggestion `json:"suggestions"`
	AnswerVotes         []AnswerVotesEntry `json:"answerVotes"`
}

type PlayerUpdate struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
	Turn *int    `json:"turn,omitempty"`
}

// Room holds the authoritative state for one game session. Every mutation
// runs under mu, so concurrent events for the same room serialize into one
// total order; rooms are otherwise fully independent.
type Room struct {
	code       string
	instanceID string // regenerated on every creation, never reused

	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool

	players                map[string]*Player
	playOrder              []string
	currentTurnIndex       int
	currentTurnPlayerID    string
	nextRoundStartPlayerID string
	lockAnswers            bool
	showAnswers            bool
	prompt                 string
	suggestions            []PromptSuggestion
	answerVotes            []AnswerVotesEntry
	lastLockAt             time.Time
}

func newRoom(code string) *Room {
	return &Room{
		code:             code,
		instanceID:       uuid.NewString(),
		clients:          make(map[*client]bool),
		players:          make(map[string]*Player),
		currentTurnIndex: -1,
		lastLockAt:       time.Now(),
	}
}

func (r *Room) ensurePlayerLocked(id string) *Player {
	p, ok := r.players[id]
	if !ok {
		p = &Player{ID: id, Active: true, AnswerActive: true}
		r.players[id] = p
	}
	return p
}

func (r *Room) playersArrayLocked() []Player {
	arr := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		arr = append(arr, *p)
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].Turn != arr[j].Turn {
			return arr[i].Turn < arr[j].Turn
		}
		if arr[i].Name != arr[j].Name {
			return arr[i].Name < arr[j].Name
		}
		return arr[i].ID < arr[j].ID
	})
	return arr
}

func (r *Room) answersArrayLocked() []Player {
	arr := make([]Player, 0, len(r.players))
	for _, p := range r.playersArrayLocked() {
		if p.Name != "" && strings.TrimSpace(p.Answer) != "" {
			arr = append(arr, p)
		}
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].Answer < arr[j].Answer })
	return arr
}

func (r *Room) maxTurnLocked() int {
	max := 0
	for _, p := range r.players {
		if p.Turn > max {
			max = p.Turn
		}
	}
	return max
}

// recalcPlayOrderLocked rebuilds playOrder to hold exactly the ids of named
// players, ordered by (turn, name).
func (r *Room) recalcPlayOrderLocked() {
	named := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.Name != "" {
			named = append(named, p)
		}
	}
	sort.Slice(named, func(i, j int) bool {
		if named[i].Turn != named[j].Turn {
			return named[i].Turn < named[j].Turn
		}
		return named[i].Name < named[j].Name
	})
	r.playOrder = make([]string, 0, len(named))
	for _, p := range named {
		r.playOrder = append(r.playOrder, p.ID)
	}
}

func (r *Room) eligibleLocked(id string) bool {
	p, ok := r.players[id]
	return ok && p.Active && strings.TrimSpace(p.Answer) != "" && p.AnswerActive
}

// advanceTurnLocked moves the pointer to the next eligible player, scanning
// forward cyclically. If nobody is eligible the pointer stays put, so repeat
// calls are no-ops until eligibility changes.
func (r *Room) advanceTurnLocked() {
	if len(r.playOrder) == 0 {
		r.currentTurnIndex = -1
		r.currentTurnPlayerID = ""
		return
	}
	anyEligible := false
	for _, id := range r.playOrder {
		if r.eligibleLocked(id) {
			anyEligible = true
			break
		}
	}
	if !anyEligible {
		return
	}
	next := r.currentTurnIndex
	for range r.playOrder {
		next = (next + 1) % len(r.playOrder)
		if r.eligibleLocked(r.playOrder[next]) {
			r.currentTurnIndex = next
			r.currentTurnPlayerID = r.playOrder[next]
			return
		}
	}
}

func (r *Room) totalsLocked() Totals {
	t := Totals{}
	for _, p := range r.players {
		if p.Name == "" {
			continue
		}
		t.TotalPlayers++
		if strings.TrimSpace(p.Answer) != "" {
			t.TotalAnswers++
		}
	}
	return t
}

func (r *Room) snapshotLocked() GameState {
	suggestions := make([]PromptSuggestion, len(r.suggestions))
	copy(suggestions, r.suggestions)
	votes := make([]AnswerVotesEntry, 0, len(r.answerVotes))
	for _, av := range r.answerVotes {
		vv := make([]SuggestionVote, len(av.Votes))
		copy(vv, av.Votes)
		votes = append(votes, AnswerVotesEntry{Answer: av.Answer, Votes: vv})
	}
	return GameState{
		RoomID:              r.instanceID,
		Players:             r.playersArrayLocked(),
		Answers:             r.answersArrayLocked(),
		ShowAnswers:         r.showAnswers,
		LockAnswers:         r.lockAnswers,
		CurrentTurnPlayerID: r.currentTurnPlayerID,
		Totals:              r.totalsLocked(),
		PlayOrder:           append([]string{}, r.playOrder...),
		Prompt:              r.prompt,
		Suggestions:         suggestions,
		AnswerVotes:         votes,
	}
}

func (r *Room) snapshot() GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// submitAnswer handles both naming and answering. A name only sticks while
// unlocked, and the very first naming assigns the player's turn rank.
// Answers are rejected while the room is locked; an edit un-hides a
// previously hidden answer.
func (r *Room) submitAnswer(playerID, name string, answer *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	p := r.ensurePlayerLocked(playerID)
	if name != "" && !p.NameLocked && p.Name != name {
		firstNaming := p.Name == ""
		p.Name = name
		p.NameLocked = true
		if firstNaming {
			p.Turn = r.maxTurnLocked() + 1
			r.recalcPlayOrderLocked()
		}
	}
	if answer != nil && !r.lockAnswers {
		p.Answer = *answer
		p.AnswerActive = true
	}
	r.broadcastStateLocked()
}

// clearAnswers resets the round. It never awards points; scoring is applied
// by the host via scoreDelta before this is called. The current turn holder
// is remembered so the next round's rotation resumes fairly after them.
func (r *Room) clearAnswers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.answerVotes = nil
	r.nextRoundStartPlayerID = r.currentTurnPlayerID
	for _, p := range r.players {
		p.Active = true
		p.Answer = ""
		p.AnswerActive = true
	}
	r.lockAnswers = false
	r.showAnswers = false
	r.prompt = ""
	r.currentTurnIndex = -1
	r.currentTurnPlayerID = ""
	r.broadcastStateLocked()
}

// toggleLock flips the answer lock; showAnswers always mirrors it. Locking
// resumes rotation just before the remembered round starter (so they go
// first if eligible) and stamps the inactivity timer; unlocking clears the
// pointer entirely.
func (r *Room) toggleLock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.lockAnswers = !r.lockAnswers
	r.showAnswers = r.lockAnswers
	if r.lockAnswers {
		r.currentTurnIndex = -1
		if r.nextRoundStartPlayerID != "" {
			for i, id := range r.playOrder {
				if id == r.nextRoundStartPlayerID {
					n := len(r.playOrder)
					r.currentTurnIndex = (i - 1 + n) % n
					break
				}
			}
		}
		r.currentTurnPlayerID = ""
		r.advanceTurnLocked()
		r.nextRoundStartPlayerID = ""
		r.lastLockAt = time.Now()
	} else {
		r.currentTurnIndex = -1
		r.currentTurnPlayerID = ""
	}
	r.broadcastStateLocked()
}

// nextTurn only moves the pointer while answers are locked.
func (r *Room) nextTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.lockAnswers {
		return
	}
	r.advanceTurnLocked()
	r.broadcastStateLocked()
}

func (r *Room) scoreDelta(playerID string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	p.Score += delta
	r.broadcastStateLocked()
}

// togglePlayerActive flips eligibility. When the toggle sidelines a player,
// the current turn holder is compensated with a point, since the skipped
// guess cost the asker nothing.
func (r *Room) togglePlayerActive(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	wasActive := p.Active
	p.Active = !p.Active
	if wasActive && !p.Active && r.currentTurnPlayerID != "" {
		if cur, ok := r.players[r.currentTurnPlayerID]; ok {
			cur.Score++
		}
	}
	r.broadcastStateLocked()
}

// toggleAnswerActive hides or restores the answer matching the given text.
// Same compensation rule as togglePlayerActive.
func (r *Room) toggleAnswerActive(answerText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	var target *Player
	for _, p := range r.playersArrayLocked() {
		if p.Answer == answerText {
			target = r.players[p.ID]
			break
		}
	}
	if target == nil {
		return
	}
	wasActive := target.AnswerActive
	target.AnswerActive = !wasActive
	if wasActive && !target.AnswerActive && r.currentTurnPlayerID != "" {
		if cur, ok := r.players[r.currentTurnPlayerID]; ok {
			cur.Score++
		}
	}
	r.broadcastStateLocked()
}

func (r *Room) adminEditPlayers(updates []PlayerUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, u := range updates {
		p, ok := r.players[u.ID]
		if !ok {
			continue
		}
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.Turn != nil {
			p.Turn = *u.Turn
		}
	}
	r.recalcPlayOrderLocked()
	r.broadcastStateLocked()
}

func (r *Room) adminRemovePlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	wasCurrent := r.currentTurnPlayerID == playerID
	delete(r.players, playerID)
	r.recalcPlayOrderLocked()
	if wasCurrent {
		r.currentTurnIndex = -1
		r.currentTurnPlayerID = ""
		r.advanceTurnLocked()
	}
	r.broadcastStateLocked()
}

// randomizePlayOrder shuffles the named players and reassigns turn ranks
// from 1, then restarts rotation from the top.
func (r *Room) randomizePlayOrder() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	ids := make([]string, 0, len(r.players))
	for _, p := range r.playersArrayLocked() {
		if p.Name != "" {
			ids = append(ids, p.ID)
		}
	}

	// Fisher-Yates shuffle using crypto/rand
	for i := len(ids) - 1; i > 0; i-- {
		var b [1]byte
		if _, err := rand.Read(b[:]); err != nil {
			continue
		}
		j := int(b[0]) % (i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}

	for idx, id := range ids {
		r.players[id].Turn = idx + 1
	}
	r.playOrder = ids
	r.currentTurnIndex = -1
	r.advanceTurnLocked()
	r.broadcastStateLocked()
}

func (r *Room) setPrompt(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.prompt = value
	r.broadcastStateLocked()
}

// join reports false when the room has already shut down, so a join racing a
// deletion is refused instead of silently attaching to a dead room.
func (r *Room) join(c *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.clients[c] = true
	r.broadcastStateLocked()
	return true
}

// leave detaches a connection without touching game state; players persist
// until explicitly removed or the room expires.
func (r *Room) leave(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

func (r *Room) expired(cutoff time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastLockAt.Before(cutoff)
}

// shutdown notifies every member that the room is gone and detaches them, so
// no later event can be misrouted into a half-deleted room. Connections stay
// open; clients may create or join another room afterwards.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	notice := serverMessage{Type: msgRoomDeleted, RoomCode: r.code}
	for c := range r.clients {
		select {
		case c.send <- notice:
		default:
		}
		c.detachFrom(r)
		delete(r.clients, c)
	}
}

func (r *Room) broadcastStateLocked() {
	r.broadcastLocked(serverMessage{Type: msgState, State: ptr(r.snapshotLocked())})
}

func (r *Room) broadcastLocked(msg serverMessage) {
	for c := range r.clients {
		select {
		case c.send <- msg:
		default:
			// Client is slow/full - drop them.
			delete(r.clients, c)
			c.detachFrom(r)
			c.closeSend()
		}
	}
}

func ptr[T any](v T) *T { return &v }
