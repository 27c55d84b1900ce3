package timer

import (
	"encoding/json"

	"github.com/mcdev12/stagetimer/go/internal/models"
)

// Action names recorded in the action log
const (
	ActionStart       = "start"
	ActionPause       = "pause"
	ActionReset       = "reset"
	ActionSetDuration = "set_duration"
)

// Mutation is the full next state of the timer plus the action that produced it
type Mutation struct {
	Record  models.TimerRecord
	Action  string
	Details json.RawMessage
}

// MutateFunc computes the next state from the current one. Returning a nil
// Mutation and nil error leaves the record untouched.
type MutateFunc func(current models.TimerRecord) (*Mutation, error)

// GetTimerRequest asks for the current timer record
type GetTimerRequest struct{}

// StartRequest starts the countdown
type StartRequest struct{}

// PauseRequest pauses a running countdown
type PauseRequest struct{}

// ResetRequest stops the countdown without touching its duration
type ResetRequest struct{}

// SetDurationRequest retargets the timer. Minutes is kept as the raw operator
// input so validation happens in one place.
type SetDurationRequest struct {
	Minutes string `json:"minutes"`
}

// TimerResponse carries the record after the call
type TimerResponse struct {
	Timer *models.TimerRecord `json:"timer"`
}

// ListActionsRequest asks for the most recent control actions
type ListActionsRequest struct {
	Limit int32 `json:"limit"`
}

// ListActionsResponse carries the action log, newest first
type ListActionsResponse struct {
	Actions []models.TimerAction `json:"actions"`
}
