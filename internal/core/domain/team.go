package domain

// Team groups the players that share credit for solved questions.
type Team struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	MemberUserIDs []string `json:"memberUserIds"`
}

// Standing is one leaderboard row.
type Standing struct {
	Rank   int    `json:"rank"`
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Found  int    `json:"found"`
	Points int    `json:"points"`
}
