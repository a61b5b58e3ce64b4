package domain

import "time"

type RefreshState string

const (
	RefreshRunning   RefreshState = "running"
	RefreshCompleted RefreshState = "completed"
	RefreshFailed    RefreshState = "failed"
	RefreshCanceled  RefreshState = "canceled"
)

func (s RefreshState) IsTerminal() bool {
	return s == RefreshCompleted || s == RefreshFailed || s == RefreshCanceled
}

// RefreshJob suit un rafraîchissement en masse des snapshots catalogue.
type RefreshJob struct {
	ID         string       `json:"id"`
	State      RefreshState `json:"state"`
	Current    int          `json:"current"`
	Total      int          `json:"total"`
	Updated    int          `json:"updated"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt,omitzero"`
}
