package automate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/metrics"
	"github.com/defistack/automate/pkg/logger"
)

// HandlerTriggerRun is the queue handler name for one trigger evaluation
const HandlerTriggerRun = "automateTriggerRun"

// RunParams addresses one trigger
type RunParams struct {
	ID string `json:"id"`
}

// Engine decides whether a trigger should fire and executes its effects.
// Runs for the same trigger are serialized on the trigger id so a slow run
// can never double-fire on-chain actions; runs for distinct triggers are
// fully independent.
type Engine struct {
	service  *Service
	registry *Registry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	runTimeout time.Duration

	logger  logger.Logger
	metrics *metrics.Collector
}

func NewEngine(service *Service, registry *Registry, lg logger.Logger, m *metrics.Collector) *Engine {
	return &Engine{
		service:    service,
		registry:   registry,
		locks:      make(map[string]*sync.Mutex),
		runTimeout: 5 * time.Minute,
		logger:     logger.EnsureLogger(lg),
		metrics:    m,
	}
}

// Perform is the queue entry point. A missing trigger fails the task; a
// trigger that simply isn't due yet completes it, not-fired is an expected
// outcome and not an error.
func (e *Engine) Perform(p *queue.Process) error {
	var params RunParams
	if err := p.Params(&params); err != nil {
		return fmt.Errorf("decode trigger run params: %w", err)
	}
	if params.ID == "" {
		return fmt.Errorf("trigger run params missing id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.runTimeout)
	defer cancel()

	fired, err := e.Run(ctx, params.ID)
	if err != nil {
		e.observe("error")
		return err
	}

	if fired {
		e.observe("fired")
	} else {
		e.observe("skipped")
	}

	p.Done()
	return nil
}

// Run evaluates one trigger end to end and reports whether the action
// phase was entered
func (e *Engine) Run(ctx context.Context, triggerID string) (bool, error) {
	lock := e.triggerLock(triggerID)
	lock.Lock()
	defer lock.Unlock()

	startedAt := time.Now()

	trigger, err := e.service.Trigger(triggerID)
	if err != nil {
		return false, err
	}
	if !trigger.Active {
		e.logger.Debug("trigger inactive, skipping", "trigger_id", triggerID)
		return false, nil
	}

	conditions, err := e.service.Conditions(triggerID)
	if err != nil {
		return false, err
	}

	for _, condition := range conditions {
		handler, err := e.registry.Condition(condition.Type)
		if err != nil {
			return false, fmt.Errorf("trigger %s: %w", triggerID, err)
		}

		ok, err := handler.Check(ctx, trigger, condition.Params)
		if err != nil {
			return false, fmt.Errorf("trigger %s condition %s (%s): %w", triggerID, condition.ID, condition.Type, err)
		}
		if !ok {
			// first false condition ends the run, nothing after it is
			// evaluated and no action executes
			e.logger.Debug("condition not satisfied",
				"trigger_id", triggerID, "condition_id", condition.ID, "type", condition.Type)
			return false, nil
		}
	}

	// all conditions passed (vacuously true for the empty set); stamp the
	// run start before executing so rate-limit conditions see this attempt
	// even when an action fails part way
	if err := e.service.SetLastCall(triggerID, startedAt); err != nil {
		return false, err
	}

	actions, err := e.service.Actions(triggerID)
	if err != nil {
		return true, err
	}

	for _, action := range actions {
		handler, err := e.registry.Action(action.Type)
		if err != nil {
			return true, fmt.Errorf("trigger %s: %w", triggerID, err)
		}

		if err := handler.Execute(ctx, trigger, action.Params); err != nil {
			// abort the remaining actions; already executed ones stay
			return true, fmt.Errorf("trigger %s action %s (%s): %w", triggerID, action.ID, action.Type, err)
		}

		e.logger.Info("action executed", "trigger_id", triggerID, "action_id", action.ID, "type", action.Type)
	}

	return true, nil
}

func (e *Engine) triggerLock(triggerID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	lock, ok := e.locks[triggerID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[triggerID] = lock
	}
	return lock
}

func (e *Engine) observe(result string) {
	if e.metrics != nil {
		e.metrics.IncTriggerRun(result)
	}
}
