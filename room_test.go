package main

import (
	"testing"
)

func answered(r *Room, id, name, answer string) {
	r.submitAnswer(id, name, &answer)
}

// threePlayerRoom returns a room with three named players who have all
// answered, in turn order p1, p2, p3.
func threePlayerRoom() *Room {
	r := newRoom("ROOM1")
	answered(r, "p1", "Alice", "apple")
	answered(r, "p2", "Bob", "banana")
	answered(r, "p3", "Cara", "cherry")
	return r
}

func TestSubmitAnswerAssignsTurnOnce(t *testing.T) {
	r := newRoom("ROOM1")

	answered(r, "p1", "Alice", "apple")
	if got := r.players["p1"].Turn; got != 1 {
		t.Fatalf("first naming: want turn=1, got %d", got)
	}

	// A renaming attempt must bounce off the lock and leave turn alone.
	answered(r, "p1", "NotAlice", "apple")
	if got := r.players["p1"].Name; got != "Alice" {
		t.Fatalf("name changed despite lock: %q", got)
	}
	if got := r.players["p1"].Turn; got != 1 {
		t.Fatalf("turn changed on renaming attempt: %d", got)
	}

	answered(r, "p2", "Bob", "banana")
	if got := r.players["p2"].Turn; got != 2 {
		t.Fatalf("second naming: want turn=2, got %d", got)
	}
}

func TestPlayOrderContainsExactlyNamedPlayers(t *testing.T) {
	r := newRoom("ROOM1")
	answered(r, "p2", "Bob", "banana")
	answered(r, "p1", "Alice", "apple")

	// Answer-only submission creates a player without a name; it must stay
	// out of the play order.
	answer := "mystery"
	r.submitAnswer("p3", "", &answer)

	want := []string{"p2", "p1"}
	if len(r.playOrder) != len(want) {
		t.Fatalf("playOrder: want %v, got %v", want, r.playOrder)
	}
	for i, id := range want {
		if r.playOrder[i] != id {
			t.Fatalf("playOrder: want %v, got %v", want, r.playOrder)
		}
	}
}

func TestAnswerIgnoredWhileLocked(t *testing.T) {
	r := threePlayerRoom()
	r.toggleLock()

	late := "too late"
	r.submitAnswer("p1", "", &late)
	if got := r.players["p1"].Answer; got != "apple" {
		t.Fatalf("locked room accepted answer edit: %q", got)
	}
}

func TestAnswerEditUnhides(t *testing.T) {
	r := threePlayerRoom()

	r.toggleAnswerActive("apple")
	if r.players["p1"].AnswerActive {
		t.Fatal("expected answer to be hidden")
	}

	edited := "apricot"
	r.submitAnswer("p1", "", &edited)
	if !r.players["p1"].AnswerActive {
		t.Fatal("editing an answer should un-hide it")
	}
}

func TestToggleLockStartsRotation(t *testing.T) {
	r := threePlayerRoom()

	r.toggleLock()
	if !r.lockAnswers || !r.showAnswers {
		t.Fatalf("lock/show mismatch: lock=%v show=%v", r.lockAnswers, r.showAnswers)
	}
	if got := r.currentTurnPlayerID; got != "p1" {
		t.Fatalf("first turn: want p1, got %q", got)
	}

	r.toggleLock()
	if r.showAnswers {
		t.Fatal("showAnswers must mirror lockAnswers")
	}
	if r.currentTurnPlayerID != "" || r.currentTurnIndex != -1 {
		t.Fatalf("unlock must clear the turn pointer, got %q/%d", r.currentTurnPlayerID, r.currentTurnIndex)
	}
}

func TestNextTurnSkipsIneligible(t *testing.T) {
	r := threePlayerRoom()
	r.toggleLock()

	r.togglePlayerActive("p2")
	r.nextTurn()
	if got := r.currentTurnPlayerID; got != "p3" {
		t.Fatalf("expected rotation to skip inactive p2, got %q", got)
	}

	r.nextTurn()
	if got := r.currentTurnPlayerID; got != "p1" {
		t.Fatalf("expected wraparound to p1, got %q", got)
	}
}

func TestNextTurnOnlyWhileLocked(t *testing.T) {
	r := threePlayerRoom()

	r.nextTurn()
	if got := r.currentTurnPlayerID; got != "" {
		t.Fatalf("nextTurn while unlocked moved the pointer to %q", got)
	}
}

func TestAdvanceTurnIdempotentWithoutEligiblePlayers(t *testing.T) {
	r := newRoom("ROOM1")
	r.submitAnswer("p1", "Alice", nil)
	r.submitAnswer("p2", "Bob", nil)

	r.toggleLock()
	for i := 0; i < 3; i++ {
		r.nextTurn()
		if got := r.currentTurnPlayerID; got != "" {
			t.Fatalf("call %d: no player is eligible, but pointer moved to %q", i, got)
		}
	}
}

func TestClearAnswersResetsRound(t *testing.T) {
	r := threePlayerRoom()
	r.setPrompt("Things you'd never say out loud")
	r.toggleLock()
	r.voteAnswer("p2", "apple", "laugh")
	r.nextTurn() // pointer now at p2

	r.clearAnswers()

	if r.nextRoundStartPlayerID != "p2" {
		t.Fatalf("round starter: want p2, got %q", r.nextRoundStartPlayerID)
	}
	if r.lockAnswers || r.showAnswers {
		t.Fatal("clearAnswers must unlock the room")
	}
	if r.prompt != "" {
		t.Fatalf("prompt survived the reset: %q", r.prompt)
	}
	if len(r.answerVotes) != 0 {
		t.Fatalf("votes survived the reset: %v", r.answerVotes)
	}
	if r.currentTurnPlayerID != "" || r.currentTurnIndex != -1 {
		t.Fatal("turn pointer survived the reset")
	}
	for id, p := range r.players {
		if p.Answer != "" || !p.AnswerActive || !p.Active {
			t.Fatalf("player %s not reset: %+v", id, p)
		}
	}
	if r.players["p1"].Score != 0 {
		t.Fatal("clearAnswers must not award points")
	}
}

func TestToggleLockResumesAfterRoundStarter(t *testing.T) {
	r := threePlayerRoom()
	r.toggleLock()
	r.nextTurn() // p2 holds the turn going into the reset
	r.clearAnswers()

	answered(r, "p1", "", "apple")
	answered(r, "p2", "", "banana")
	answered(r, "p3", "", "cherry")

	r.toggleLock()
	if got := r.currentTurnPlayerID; got != "p2" {
		t.Fatalf("new round should start with the remembered holder p2, got %q", got)
	}
	if r.nextRoundStartPlayerID != "" {
		t.Fatal("round starter must be cleared once consumed")
	}
}

func TestToggleCompensatesTurnHolder(t *testing.T) {
	cases := []struct {
		name   string
		toggle func(r *Room)
	}{
		{
			name:   "player deactivated",
			toggle: func(r *Room) { r.togglePlayerActive("p2") },
		},
		{
			name:   "answer hidden",
			toggle: func(r *Room) { r.toggleAnswerActive("banana") },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := threePlayerRoom()
			r.toggleLock() // p1 holds the turn

			tc.toggle(r)
			if got := r.players["p1"].Score; got != 1 {
				t.Fatalf("turn holder compensation: want score=1, got %d", got)
			}

			// Toggling back on must not award anything.
			tc.toggle(r)
			if got := r.players["p1"].Score; got != 1 {
				t.Fatalf("reactivation awarded a point: score=%d", got)
			}
		})
	}
}

func TestAdminRemoveCurrentHolderReAdvances(t *testing.T) {
	r := threePlayerRoom()
	r.toggleLock() // p1 holds the turn

	r.adminRemovePlayer("p1")

	if _, ok := r.players["p1"]; ok {
		t.Fatal("player not removed")
	}
	if got := r.currentTurnPlayerID; got != "p2" {
		t.Fatalf("expected forced re-advance to p2, got %q", got)
	}
	for _, id := range r.playOrder {
		if id == "p1" {
			t.Fatal("removed player still in playOrder")
		}
	}
}

func TestAdminEditPlayersRecomputesOrder(t *testing.T) {
	r := threePlayerRoom()

	turn := 99
	r.adminEditPlayers([]PlayerUpdate{{ID: "p1", Turn: &turn}})

	if got := r.playOrder[len(r.playOrder)-1]; got != "p1" {
		t.Fatalf("p1 should sort last after turn edit, got order %v", r.playOrder)
	}
}

func TestRandomizePlayOrderReassignsTurns(t *testing.T) {
	r := threePlayerRoom()
	r.randomizePlayOrder()

	if len(r.playOrder) != 3 {
		t.Fatalf("playOrder length changed: %v", r.playOrder)
	}
	seen := make(map[int]bool)
	for _, id := range r.playOrder {
		seen[r.players[id].Turn] = true
	}
	for want := 1; want <= 3; want++ {
		if !seen[want] {
			t.Fatalf("turn ranks not 1..3 after shuffle: %v", seen)
		}
	}
	for i, id := range r.playOrder {
		if r.players[id].Turn != i+1 {
			t.Fatalf("playOrder not aligned with turn ranks: %v", r.playOrder)
		}
	}
}

func TestScoreDeltaUnknownPlayerIgnored(t *testing.T) {
	r := threePlayerRoom()
	r.scoreDelta("ghost", 5)
	if _, ok := r.players["ghost"]; ok {
		t.Fatal("scoreDelta created a ghost player")
	}
}

func TestSnapshotTotals(t *testing.T) {
	r := newRoom("ROOM1")
	answered(r, "p1", "Alice", "apple")
	r.submitAnswer("p2", "Bob", nil)

	snap := r.snapshot()
	if snap.Totals.TotalPlayers != 2 || snap.Totals.TotalAnswers != 1 {
		t.Fatalf("totals: want 2 players / 1 answer, got %+v", snap.Totals)
	}
	if snap.RoomID == "" {
		t.Fatal("snapshot missing room instance id")
	}
	if len(snap.Answers) != 1 || snap.Answers[0].ID != "p1" {
		t.Fatalf("answers: want just p1, got %+v", snap.Answers)
	}
}
