package queue

import (
	"encoding/json"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/defistack/automate/model"
)

type processOutcome int

const (
	outcomeDone processOutcome = iota
	outcomeError
	outcomeLater
)

// Process is handed to a handler for one task execution. The handler
// reports its terminal result through exactly one of Done, Error or Later;
// returning without calling any of them counts as Done.
type Process struct {
	task *model.Task

	outcome processOutcome
	reason  error
	laterAt time.Time
}

func newProcess(task *model.Task) *Process {
	return &Process{task: task}
}

func (p *Process) Task() *model.Task {
	return p.task
}

// Params decodes the task's opaque params into v. The payload is read
// into a generic map and mapped onto the typed struct by json tag name.
func (p *Process) Params(v interface{}) error {
	var generic map[string]interface{}
	if err := json.Unmarshal(p.task.Params, &generic); err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  v,
	})
	if err != nil {
		return err
	}
	return dec.Decode(generic)
}

// Done marks the run a terminal success
func (p *Process) Done() {
	p.outcome = outcomeDone
}

// Error marks the run a terminal failure. The reason is recorded with the
// task and surfaced to operators; the task is not retried automatically.
func (p *Process) Error(err error) {
	p.outcome = outcomeError
	p.reason = err
}

// Later completes this run and re-pushes the same handler and params after
// the given delay. Polling style handlers use it to self-reschedule.
func (p *Process) Later(delay time.Duration) {
	p.outcome = outcomeLater
	p.laterAt = time.Now().Add(delay)
}

// LaterAt is Later with an absolute due time
func (p *Process) LaterAt(at time.Time) {
	p.outcome = outcomeLater
	p.laterAt = at
}
