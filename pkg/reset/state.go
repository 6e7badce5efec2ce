package reset

import (
	"fmt"

	"github.com/oarkflow/streamguard/pkg/models"
)

var transitions = map[models.ResetState][]models.ResetState{
	models.StateRequested: {models.StateRateLimited, models.StateValidated, models.StateFailed},
	models.StateValidated: {models.StateRateLimited, models.StateExecuting, models.StateFailed},
	models.StateExecuting: {models.StateSucceeded, models.StateFailed},
}

type attempt struct {
	models.ResetAttempt
}

func newAttempt() *attempt {
	return &attempt{models.ResetAttempt{
		State: models.StateRequested,
		Trail: []models.ResetState{models.StateRequested},
	}}
}

// move advances the attempt. An illegal transition is a programming error.
func (a *attempt) move(to models.ResetState) {
	for _, allowed := range transitions[a.State] {
		if allowed == to {
			a.State = to
			a.Trail = append(a.Trail, to)
			return
		}
	}
	panic(fmt.Sprintf("reset: illegal transition %s -> %s", a.State, to))
}

func (a *attempt) finish(to models.ResetState, result models.ResetResult) *models.ResetAttempt {
	a.move(to)
	a.Result = result
	return &a.ResetAttempt
}
