package grid

import (
	"encoding/json"
	"fmt"
)

// State is the pass/fail outcome of a session.
type State string

const (
	StatePassed State = "passed"
	StateFailed State = "failed"
)

// Reasons attached to session statuses.
const (
	ReasonCompleted = "scraping completed successfully"
	ReasonNoData    = "no data scraped"
	ReasonException = "exception occurred"
)

// Status is the single outcome reported for a session.
type Status struct {
	State  State
	Reason string
}

// Passed returns a passing status.
func Passed(reason string) Status {
	return Status{State: StatePassed, Reason: reason}
}

// Failed returns a failing status with the given reason.
func Failed(reason string) Status {
	return Status{State: StateFailed, Reason: reason}
}

// OK reports whether the status is passing.
func (s Status) OK() bool {
	return s.State == StatePassed
}

func (s Status) String() string {
	if s.Reason == "" {
		return string(s.State)
	}
	return fmt.Sprintf("%s(%s)", s.State, s.Reason)
}

type executorCommand struct {
	Action    string         `json:"action"`
	Arguments statusArgument `json:"arguments"`
}

type statusArgument struct {
	Status State  `json:"status"`
	Reason string `json:"reason"`
}

// StatusScript renders the executor script that marks a grid session as
// passed or failed.
func StatusScript(status Status) (string, error) {
	payload, err := json.Marshal(executorCommand{
		Action:    "setSessionStatus",
		Arguments: statusArgument{Status: status.State, Reason: status.Reason},
	})
	if err != nil {
		return "", fmt.Errorf("marshal status command: %w", err)
	}
	return "browserstack_executor: " + string(payload), nil
}
