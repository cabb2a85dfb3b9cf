package types

// RoomView is the read-only room summary served by GET /rooms/{code}.
type RoomView struct {
	Code        string       `json:"code"`
	Version     int          `json:"version"`
	Phase       string       `json:"phase"`
	HostID      string       `json:"hostId"`
	GameStarted bool         `json:"gameStarted"`
	Round       int          `json:"round"`
	TotalRounds int          `json:"totalRounds"`
	DrawerID    string       `json:"drawerId,omitempty"`
	Players     []PlayerInfo `json:"players"`
}

// GameResult is one archived finished game, served by GET /rooms/{code}/results.
type GameResult struct {
	Code        string  `json:"code"`
	TotalRounds int     `json:"totalRounds"`
	FinishedAt  int64   `json:"finishedAt"` // unix millis
	Leaderboard []Score `json:"leaderboard"`
}
