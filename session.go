package main

import (
	"time"
)

// Client-side half of the identity and reconnection protocol.
//
// A browser keeps one stable player id and, per room code, the instance id it
// last observed. Auto-rejoins present that instance id so the server can
// reject reconnects into a recreated room with the same code; manual joins
// are authoritative and overwrite it. ClientSession tracks this as a small
// state machine:
//
//	Disconnected --BeginJoin(manual)--> JoiningManual --accepted--> Joined
//	Disconnected --BeginJoin(auto)----> JoiningAuto   --accepted--> Joined
//	JoiningAuto  --rejected(room_reused)------------------------> Blocked
//	Joined --RoomDeleted-----------------------------------------> Blocked
//	Joined --vanished from player set while previously present---> Blocked
//	Blocked --BeginJoin(manual)--> JoiningManual (auto joins refused)
//
// A successful manual join always unblocks its code.

type JoinState int

const (
	StateDisconnected JoinState = iota
	StateJoiningManual
	StateJoiningAuto
	StateJoined
	StateBlocked
)

func (s JoinState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateJoiningManual:
		return "joining-manual"
	case StateJoiningAuto:
		return "joining-auto"
	case StateJoined:
		return "joined"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

const (
	joinManual = "manual"
	joinAuto   = "auto"
	joinHost   = "host"
)

// manualJoinGrace is how long a manual join attempt outranks a stale
// instance id observed in a snapshot.
const manualJoinGrace = 10 * time.Second

type JoinAttempt struct {
	Code   string
	Method string
	At     time.Time
}

// ClientSession is pure bookkeeping: it performs no I/O, so transports and
// tests drive it with the acks and snapshots they receive.
type ClientSession struct {
	playerID string
	role     string

	state       JoinState
	code        string
	instances   map[string]string
	blocked     map[string]bool
	lastAttempt *JoinAttempt
	wasPresent  bool
	name        string
	nameLocked  bool

	now func() time.Time
}

func newClientSession(playerID, role string) *ClientSession {
	return &ClientSession{
		playerID:  playerID,
		role:      role,
		state:     StateDisconnected,
		instances: make(map[string]string),
		blocked:   make(map[string]bool),
		now:       time.Now,
	}
}

func (s *ClientSession) State() JoinState { return s.state }

func (s *ClientSession) RoomCode() string { return s.code }

func (s *ClientSession) Name() string { return s.name }

func (s *ClientSession) SetName(name string) {
	s.name = name
	s.nameLocked = true
}

// InstanceID reports the instance id last observed for a code, to be sent
// with auto-join attempts.
func (s *ClientSession) InstanceID(code string) string {
	return s.instances[normalizeCode(code)]
}

// Blocked reports whether auto-rejoin is currently disallowed for a code.
// Hosts are never blocked.
func (s *ClientSession) Blocked(code string) bool {
	return s.role == "player" && s.blocked[normalizeCode(code)]
}

// BeginJoin starts a join attempt and returns the instance id to present.
// Auto joins to a blocked code are refused locally; only a manual join can
// clear the block.
func (s *ClientSession) BeginJoin(code, method string) (lastRoomID string, ok bool) {
	code = normalizeCode(code)
	if code == "" {
		return "", false
	}
	if method != joinManual && s.Blocked(code) {
		return "", false
	}

	if method == joinManual {
		s.state = StateJoiningManual
	} else {
		s.state = StateJoiningAuto
	}
	s.lastAttempt = &JoinAttempt{Code: code, Method: method, At: s.now()}
	return s.instances[code], true
}

// JoinAccepted records a successful join. A manual join is authoritative:
// it unblocks the code for future auto-joins.
func (s *ClientSession) JoinAccepted(code, instanceID string) {
	code = normalizeCode(code)
	s.state = StateJoined
	s.code = code
	if instanceID != "" {
		s.instances[code] = instanceID
	}
	if s.lastAttempt != nil && s.lastAttempt.Code == code && s.lastAttempt.Method == joinManual {
		delete(s.blocked, code)
	}
}

func (s *ClientSession) JoinRejected(code, kind string) {
	code = normalizeCode(code)
	if kind == errRoomReused {
		s.blocked[code] = true
		s.state = StateBlocked
		return
	}
	s.state = StateDisconnected
}

// recentManual reports whether the last join attempt for code was a manual
// one inside the grace window.
func (s *ClientSession) recentManual(code string) bool {
	return s.lastAttempt != nil &&
		s.lastAttempt.Code == code &&
		s.lastAttempt.Method == joinManual &&
		s.now().Sub(s.lastAttempt.At) < manualJoinGrace
}

// ObserveState reconciles a room snapshot against local records. Two
// inferences happen here: a player absent from the player set after having
// been present on this connection was removed by an admin, and a snapshot
// carrying an unexpected instance id means the room was recreated under the
// same code behind our back.
func (s *ClientSession) ObserveState(gs GameState) {
	if s.state != StateJoined || s.code == "" {
		return
	}

	if s.role == "player" {
		present := false
		for _, p := range gs.Players {
			if p.ID == s.playerID {
				present = true
				break
			}
		}
		if present {
			s.wasPresent = true
		} else if s.wasPresent {
			// Removed by an admin: forget the committed name and stop
			// auto-rejoining until a manual join succeeds.
			s.name = ""
			s.nameLocked = false
			s.blocked[s.code] = true
			s.state = StateBlocked
			s.code = ""
			return
		}
	}

	saved := s.instances[s.code]
	switch {
	case saved == "":
		s.instances[s.code] = gs.RoomID
	case saved != gs.RoomID:
		if s.recentManual(s.code) {
			s.instances[s.code] = gs.RoomID
			delete(s.blocked, s.code)
		} else if s.role == "player" {
			s.blocked[s.code] = true
			s.state = StateBlocked
			s.code = ""
		}
	}
}

// RoomDeleted handles the server's deletion notice for the current room.
func (s *ClientSession) RoomDeleted(code string) {
	code = normalizeCode(code)
	if s.code != code {
		return
	}
	s.blocked[code] = true
	s.state = StateBlocked
	s.code = ""
	s.wasPresent = false
}

// Disconnected resets per-connection presence tracking. A blocked code
// stays blocked across connections.
func (s *ClientSession) Disconnected() {
	s.wasPresent = false
	if s.state != StateBlocked {
		s.state = StateDisconnected
	}
}
