package main

import (
	"strings"

	"github.com/google/uuid"
)

// Answer voting gives each player a budget of two vote units per round.
// Voting on an answer whose text is duplicated by another player costs both
// units at once; duplicates are detected by exact text match across the
// currently submitted answers.

const voteBudget = 2

func (r *Room) submitPromptSuggestion(playerID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	value := strings.TrimSpace(text)
	if value == "" {
		return
	}
	p := r.ensurePlayerLocked(playerID)
	authorName := p.Name
	if authorName == "" {
		authorName = "Anonymous"
	}
	r.suggestions = append(r.suggestions, PromptSuggestion{
		ID:         uuid.NewString(),
		Text:       value,
		AuthorID:   p.ID,
		AuthorName: authorName,
		Votes:      []SuggestionVote{},
	})
	r.broadcastStateLocked()
}

// voteSuggestion is unbudgeted: one vote per player per suggestion, same
// emoji toggles off, a different emoji replaces in place.
func (r *Room) voteSuggestion(playerID, suggestionID, emoji string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	var s *PromptSuggestion
	for i := range r.suggestions {
		if r.suggestions[i].ID == suggestionID {
			s = &r.suggestions[i]
			break
		}
	}
	if s == nil {
		return
	}
	for i, v := range s.Votes {
		if v.PlayerID == playerID {
			if v.Emoji == emoji {
				s.Votes = append(s.Votes[:i], s.Votes[i+1:]...)
			} else {
				s.Votes[i].Emoji = emoji
			}
			r.broadcastStateLocked()
			return
		}
	}
	s.Votes = append(s.Votes, SuggestionVote{PlayerID: playerID, Emoji: emoji})
	r.broadcastStateLocked()
}

func (r *Room) removeSuggestion(suggestionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for i := range r.suggestions {
		if r.suggestions[i].ID == suggestionID {
			r.suggestions = append(r.suggestions[:i], r.suggestions[i+1:]...)
			r.broadcastStateLocked()
			return
		}
	}
}

// duplicateCountsLocked counts submitted answers per trimmed text.
func (r *Room) duplicateCountsLocked() map[string]int {
	counts := make(map[string]int)
	for _, p := range r.answersArrayLocked() {
		text := strings.TrimSpace(p.Answer)
		if text == "" {
			continue
		}
		counts[text]++
	}
	return counts
}

func voteWeight(counts map[string]int, text string) int {
	if counts[text] >= 2 {
		return voteBudget
	}
	return 1
}

// voteAnswer records, replaces, or removes a vote on an answer. An attempt
// that would push the voter past the budget is dropped without any error
// signal; the sender simply sees no new vote in the next broadcast.
func (r *Room) voteAnswer(playerID, answer, emoji string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.lockAnswers {
		return
	}
	if answer == "" {
		return
	}

	var entry *AnswerVotesEntry
	for i := range r.answerVotes {
		if r.answerVotes[i].Answer == answer {
			entry = &r.answerVotes[i]
			break
		}
	}
	if entry == nil {
		r.answerVotes = append(r.answerVotes, AnswerVotesEntry{Answer: answer, Votes: []SuggestionVote{}})
		entry = &r.answerVotes[len(r.answerVotes)-1]
	}

	existing := -1
	for i, v := range entry.Votes {
		if v.PlayerID == playerID {
			existing = i
			break
		}
	}

	counts := r.duplicateCountsLocked()
	spent := 0
	for _, av := range r.answerVotes {
		for _, v := range av.Votes {
			if v.PlayerID == playerID {
				spent += voteWeight(counts, av.Answer)
				break
			}
		}
	}

	if existing >= 0 {
		// Presence, not emoji identity, consumes budget: a same-emoji revote
		// toggles the vote off, a different emoji swaps it in place.
		if entry.Votes[existing].Emoji == emoji {
			entry.Votes = append(entry.Votes[:existing], entry.Votes[existing+1:]...)
		} else {
			entry.Votes[existing].Emoji = emoji
		}
	} else {
		if spent+voteWeight(counts, answer) > voteBudget {
			r.broadcastStateLocked()
			return
		}
		entry.Votes = append(entry.Votes, SuggestionVote{PlayerID: playerID, Emoji: emoji})
	}
	r.broadcastStateLocked()
}
