package engine

import (
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

func DefaultRules() Rules {
	return Rules{
		ChoiceCount:    3,
		ChoiceTimeout:  10 * time.Second,
		RoundSeconds:   60,
		TickInterval:   time.Second,
		HintBelow:      20,
		HintEvery:      5,
		MaxPoints:      300,
		MinPoints:      50,
		DecayPerSecond: 5,
		TurnPause:      2 * time.Second,
	}
}

func NewState(rules Rules) State {
	return State{
		Phase:           PhaseLobby,
		Players:         []Player{},
		CorrectGuessers: map[string]bool{},
		Rules:           rules,
	}
}

func DefaultEnv(words WordSource) Env {
	return Env{Words: words, Intn: rand.IntN}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Hint renders the current word with unrevealed letters as "_", space-joined.
func Hint(s State) string {
	runes := []rune(s.CurrentWord)
	parts := make([]string, len(runes))
	for i, r := range runes {
		if slices.Contains(s.Revealed, i) {
			parts[i] = string(r)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}

// revealOne discloses one random hidden letter; no-op once all are shown.
func revealOne(env Env, s State) State {
	n := len([]rune(s.CurrentWord))
	hidden := make([]int, 0, n)
	for i := range n {
		if !slices.Contains(s.Revealed, i) {
			hidden = append(hidden, i)
		}
	}
	if len(hidden) == 0 {
		return s
	}
	s.Revealed = append(slices.Clone(s.Revealed), hidden[env.Intn(len(hidden))])
	return s
}
