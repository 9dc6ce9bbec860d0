package main

import (
	"testing"
)

func lockedRoom() *Room {
	r := threePlayerRoom()
	r.toggleLock()
	return r
}

func findVote(r *Room, answer, playerID string) (string, bool) {
	for _, av := range r.answerVotes {
		if av.Answer != answer {
			continue
		}
		for _, v := range av.Votes {
			if v.PlayerID == playerID {
				return v.Emoji, true
			}
		}
	}
	return "", false
}

func TestVoteAnswerRequiresLock(t *testing.T) {
	r := threePlayerRoom()
	r.voteAnswer("p1", "apple", "laugh")
	if len(r.answerVotes) != 0 {
		t.Fatalf("unlocked room accepted a vote: %v", r.answerVotes)
	}
}

func TestVoteAnswerEmptyTextIgnored(t *testing.T) {
	r := lockedRoom()
	r.voteAnswer("p1", "", "laugh")
	if len(r.answerVotes) != 0 {
		t.Fatalf("empty answer produced a bucket: %v", r.answerVotes)
	}
}

func TestVoteBudgetEnforced(t *testing.T) {
	r := lockedRoom()

	r.voteAnswer("p1", "apple", "laugh")
	r.voteAnswer("p1", "banana", "love")
	r.voteAnswer("p1", "cherry", "wow")

	if _, ok := findVote(r, "apple", "p1"); !ok {
		t.Fatal("first vote missing")
	}
	if _, ok := findVote(r, "banana", "p1"); !ok {
		t.Fatal("second vote missing")
	}
	if _, ok := findVote(r, "cherry", "p1"); ok {
		t.Fatal("third vote exceeded the budget but was recorded")
	}
}

func TestDuplicateAnswerCostsFullBudget(t *testing.T) {
	r := newRoom("ROOM1")
	answered(r, "p1", "Alice", "same")
	answered(r, "p2", "Bob", "same")
	answered(r, "p3", "Cara", "other")
	r.toggleLock()

	r.voteAnswer("p3", "same", "laugh")
	if _, ok := findVote(r, "same", "p3"); !ok {
		t.Fatal("vote on duplicated answer missing")
	}

	// Both units are spent; any further vote must be rejected.
	r.voteAnswer("p3", "other", "love")
	if _, ok := findVote(r, "other", "p3"); ok {
		t.Fatal("budget should be exhausted after a duplicate-weight vote")
	}

	// Toggling the expensive vote off frees the budget again.
	r.voteAnswer("p3", "same", "laugh")
	r.voteAnswer("p3", "other", "love")
	if _, ok := findVote(r, "other", "p3"); !ok {
		t.Fatal("vote should succeed once the duplicate-weight vote is removed")
	}
}

func TestSameEmojiTogglesVoteOff(t *testing.T) {
	r := lockedRoom()

	r.voteAnswer("p1", "apple", "laugh")
	r.voteAnswer("p1", "apple", "laugh")
	if _, ok := findVote(r, "apple", "p1"); ok {
		t.Fatal("same-emoji revote should remove the vote")
	}
}

func TestDifferentEmojiReplacesVote(t *testing.T) {
	r := lockedRoom()

	r.voteAnswer("p1", "apple", "laugh")
	r.voteAnswer("p1", "apple", "love")

	emoji, ok := findVote(r, "apple", "p1")
	if !ok || emoji != "love" {
		t.Fatalf("want replaced vote with love, got %q ok=%v", emoji, ok)
	}

	// Replacement never double-spends; a second answer is still affordable.
	r.voteAnswer("p1", "banana", "wow")
	if _, ok := findVote(r, "banana", "p1"); !ok {
		t.Fatal("replacing an emoji should not consume extra budget")
	}
}

func TestSubmitPromptSuggestion(t *testing.T) {
	r := newRoom("ROOM1")
	answered(r, "p1", "Alice", "apple")

	r.submitPromptSuggestion("p1", "  Things in a junk drawer  ")
	r.submitPromptSuggestion("p1", "   ")
	r.submitPromptSuggestion("anon", "Things cats knock over")

	if len(r.suggestions) != 2 {
		t.Fatalf("want 2 suggestions, got %d", len(r.suggestions))
	}
	if got := r.suggestions[0].Text; got != "Things in a junk drawer" {
		t.Fatalf("suggestion text not trimmed: %q", got)
	}
	if got := r.suggestions[0].AuthorName; got != "Alice" {
		t.Fatalf("author name: want Alice, got %q", got)
	}
	if got := r.suggestions[1].AuthorName; got != "Anonymous" {
		t.Fatalf("unnamed author: want Anonymous, got %q", got)
	}
	if r.suggestions[0].ID == r.suggestions[1].ID {
		t.Fatal("suggestion ids must be unique")
	}
}

func TestSuggestionVotes(t *testing.T) {
	r := newRoom("ROOM1")
	r.submitPromptSuggestion("p1", "Things you regret googling")
	id := r.suggestions[0].ID

	r.voteSuggestion("p2", id, "laugh")
	if len(r.suggestions[0].Votes) != 1 {
		t.Fatalf("want 1 vote, got %v", r.suggestions[0].Votes)
	}

	r.voteSuggestion("p2", id, "love")
	if got := r.suggestions[0].Votes[0].Emoji; got != "love" {
		t.Fatalf("different emoji should replace, got %q", got)
	}

	r.voteSuggestion("p2", id, "love")
	if len(r.suggestions[0].Votes) != 0 {
		t.Fatalf("same emoji should toggle off, got %v", r.suggestions[0].Votes)
	}

	r.voteSuggestion("p2", "missing", "laugh")
	if len(r.suggestions[0].Votes) != 0 {
		t.Fatal("vote on unknown suggestion mutated state")
	}
}

func TestRemoveSuggestion(t *testing.T) {
	r := newRoom("ROOM1")
	r.submitPromptSuggestion("p1", "Things you'd bring camping")
	r.submitPromptSuggestion("p1", "Things that smell like summer")
	first := r.suggestions[0].ID

	r.removeSuggestion(first)
	if len(r.suggestions) != 1 {
		t.Fatalf("want 1 suggestion left, got %d", len(r.suggestions))
	}
	if r.suggestions[0].ID == first {
		t.Fatal("removed the wrong suggestion")
	}

	r.removeSuggestion("missing")
	if len(r.suggestions) != 1 {
		t.Fatal("removing an unknown id mutated state")
	}
}
