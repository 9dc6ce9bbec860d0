package main

import "strings"

// Round scoring. Pure over the submitted answers and vote buckets; the host
// applies the resulting deltas via scoreDelta before clearing the round, so
// clients always see credit attributed to the round it belongs to.

const (
	awardGold  = "gold"  // first place
	awardGreen = "green" // second place
)

type RoundResult struct {
	FirstPoints  int               `json:"firstPoints"`
	SecondPoints int               `json:"secondPoints"`
	AnswerAwards map[string]string `json:"answerAwards"` // answer text -> gold|green
	PlayerAwards map[string]int    `json:"playerAwards"` // player id -> points
	VoterBonus   map[string]bool   `json:"voterBonus"`   // player id -> +1 earned
}

// resolveRound computes winners, ties, and the voter participation bonus for
// the current answers and votes. The award ladder depends on how many
// answers participated: five or fewer awards first place only (+1), six to
// nine awards first and second (+1 each), ten or more awards +2/+1. A tie at
// the top consumes the first-place slot for every tied answer and no second
// is awarded.
func resolveRound(answers []Player, answerVotes []AnswerVotesEntry) RoundResult {
	res := RoundResult{
		AnswerAwards: make(map[string]string),
		PlayerAwards: make(map[string]int),
		VoterBonus:   make(map[string]bool),
	}

	current := make(map[string]bool, len(answers))
	participants := 0
	for _, p := range answers {
		if strings.TrimSpace(p.Answer) == "" {
			continue
		}
		current[p.Answer] = true
		participants++
	}

	entries := make([]AnswerVotesEntry, 0, len(answerVotes))
	maxVotes := 0
	for _, av := range answerVotes {
		if !current[av.Answer] {
			continue
		}
		entries = append(entries, av)
		if len(av.Votes) > maxVotes {
			maxVotes = len(av.Votes)
		}
	}

	awardSecond := true
	switch {
	case participants <= 5:
		res.FirstPoints = 1
		awardSecond = false
	case participants <= 9:
		res.FirstPoints = 1
		res.SecondPoints = 1
	default:
		res.FirstPoints = 2
		res.SecondPoints = 1
	}

	if maxVotes == 0 {
		return res
	}

	authorOf := func(text string) (string, bool) {
		for _, p := range answers {
			if p.Answer == text {
				return p.ID, true
			}
		}
		return "", false
	}

	var firsts []AnswerVotesEntry
	for _, e := range entries {
		if len(e.Votes) == maxVotes {
			firsts = append(firsts, e)
		}
	}

	if len(firsts) >= 2 {
		// Tied top answers all take gold and the second slot is consumed.
		for _, e := range firsts {
			res.AnswerAwards[e.Answer] = awardGold
			if id, ok := authorOf(e.Answer); ok {
				res.PlayerAwards[id] = res.FirstPoints
			}
		}
	} else {
		winner := firsts[0]
		res.AnswerAwards[winner.Answer] = awardGold
		if id, ok := authorOf(winner.Answer); ok {
			res.PlayerAwards[id] = res.FirstPoints
		}
		if awardSecond {
			secondMax := 0
			for _, e := range entries {
				if len(e.Votes) < maxVotes && len(e.Votes) > secondMax {
					secondMax = len(e.Votes)
				}
			}
			if secondMax > 0 {
				for _, e := range entries {
					if len(e.Votes) == secondMax {
						res.AnswerAwards[e.Answer] = awardGreen
						if id, ok := authorOf(e.Answer); ok {
							res.PlayerAwards[id] = res.SecondPoints
						}
					}
				}
			}
		}
	}

	// Voter participation bonus: +1 for anyone whose votes, by duplicate
	// weight, put both budget units on awarded answers.
	counts := make(map[string]int)
	for _, p := range answers {
		text := strings.TrimSpace(p.Answer)
		if text == "" {
			continue
		}
		counts[text]++
	}
	weightByVoter := make(map[string]int)
	for _, e := range entries {
		if _, awarded := res.AnswerAwards[e.Answer]; !awarded {
			continue
		}
		w := voteWeight(counts, e.Answer)
		for _, v := range e.Votes {
			next := weightByVoter[v.PlayerID] + w
			if next > voteBudget {
				next = voteBudget
			}
			weightByVoter[v.PlayerID] = next
		}
	}
	for id, total := range weightByVoter {
		if total >= voteBudget {
			res.VoterBonus[id] = true
		}
	}

	return res
}
