package domain

import "time"

// Decision is the outcome of one intercept evaluation.
type Decision struct {
	ID          string    `json:"id"`
	At          time.Time `json:"at"`
	Command     string    `json:"command"`
	Color       string    `json:"color"`
	Winrate     float64   `json:"winrate"`
	Passed      bool      `json:"passed"`
	PassCommand string    `json:"pass_command"`
}

type Stats struct {
	Forwarded    int64     `json:"forwarded"`
	Relayed      int64     `json:"relayed"`
	Intercepts   int64     `json:"intercepts"`
	Passes       int64     `json:"passes"`
	Plays        int64     `json:"plays"`
	LastDecision *Decision `json:"last_decision,omitempty"`
}
