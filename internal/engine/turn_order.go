package engine

import "slices"

func (s State) indexOf(playerID string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == playerID })
}

func (s State) drawerID() string {
	if s.DrawerIndex < 0 || s.DrawerIndex >= len(s.Players) {
		return ""
	}
	return s.Players[s.DrawerIndex].ID
}

// DrawerID is the id of the player whose turn it is, or empty before the game.
func (s State) DrawerID() string {
	if !s.Started {
		return ""
	}
	return s.drawerID()
}

// HasPlayer reports whether playerID is seated in the room.
func (s State) HasPlayer(playerID string) bool {
	return s.indexOf(playerID) >= 0
}

func (s State) totalTurns() int {
	return s.TotalRounds * len(s.Players)
}

func (s State) turnsCompleted() int {
	return (s.CurrentRound-1)*len(s.Players) + s.DrawerIndex
}

func (s State) everyoneGuessed() bool {
	return len(s.CorrectGuessers) >= len(s.Players)-1
}

// advanceDrawer moves to the next seat; passing the last seat completes a lap.
func advanceDrawer(s State) State {
	s.DrawerIndex++
	if s.DrawerIndex >= len(s.Players) {
		s.DrawerIndex = 0
		s.CurrentRound++
	}
	return s
}

// removePlayer deletes the seat at idx while keeping DrawerIndex on the same
// person. When the drawer's own seat goes, the index stays put so the next
// player in order takes it, wrapping to the first seat after the last one.
func removePlayer(s State, idx int) State {
	s.Players = slices.Delete(slices.Clone(s.Players), idx, idx+1)

	switch {
	case idx < s.DrawerIndex:
		s.DrawerIndex--
	case idx == s.DrawerIndex && s.DrawerIndex >= len(s.Players):
		s.DrawerIndex = 0
		if s.Started {
			s.CurrentRound++
		}
	}
	return s
}
