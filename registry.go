package main

import (
	"strings"
	"sync"
	"time"
)

// Error kinds returned in lifecycle acks. All are recoverable; none are
// surfaced for non-lifecycle events.
const (
	errInvalid    = "invalid"
	errExists     = "exists"
	errNotFound   = "not_found"
	errForbidden  = "forbidden"
	errRoomReused = "room_reused"
)

// RoomManager maps a human-readable code to exactly one live Room, so every
// code resolves to a single authoritative instance. Codes are matched
// case-insensitively; each creation mints a fresh instance id that is never
// reused.
type RoomManager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	roomTimeout time.Duration
}

func newRoomManager(cfg *Config) *RoomManager {
	rm := &RoomManager{
		rooms:       make(map[string]*Room),
		roomTimeout: cfg.roomTimeout,
	}
	if cfg.sweepInterval > 0 {
		go rm.reaperLoop(cfg)
	}
	return rm
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// createRoom returns the new room, or an error kind from the taxonomy above.
func (rm *RoomManager) createRoom(code string) (*Room, string) {
	code = normalizeCode(code)
	if code == "" {
		return nil, errInvalid
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, exists := rm.rooms[code]; exists {
		return nil, errExists
	}
	room := newRoom(code)
	rm.rooms[code] = room
	return room, ""
}

func (rm *RoomManager) getRoom(code string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.rooms[normalizeCode(code)]
}

// deleteRoom is idempotent. The room broadcasts its deletion notice and
// detaches every member before it leaves the registry; a closed room refuses
// joins and ignores events, so a lookup racing the map delete cannot be
// routed into a half-deleted room.
func (rm *RoomManager) deleteRoom(code string) {
	code = normalizeCode(code)

	rm.mu.Lock()
	room := rm.rooms[code]
	rm.mu.Unlock()
	if room == nil {
		return
	}

	room.shutdown()

	rm.mu.Lock()
	delete(rm.rooms, code)
	rm.mu.Unlock()
}

// sweep deletes every room whose last lock action is older than the room
// timeout, as seen from now.
func (rm *RoomManager) sweep(cfg *Config, now time.Time) {
	cutoff := now.Add(-rm.roomTimeout)

	rm.mu.Lock()
	var expired []string
	for code, room := range rm.rooms {
		if room.expired(cutoff) {
			expired = append(expired, code)
		}
	}
	rm.mu.Unlock()

	for _, code := range expired {
		logf(cfg, "ROOMS: Deleting idle room %s", code)
		rm.deleteRoom(code)
	}
}

func (rm *RoomManager) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(cfg.sweepInterval)
	for range ticker.C {
		rm.sweep(cfg, time.Now())
	}
}
