package automate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/defistack/automate/model"
)

// ConditionHandler evaluates one condition against external state. It must
// be side-effect free; the engine may call it any number of times.
type ConditionHandler interface {
	Check(ctx context.Context, trigger *model.Trigger, params json.RawMessage) (bool, error)
}

// ActionHandler executes one side-effecting action. Executed actions are
// never rolled back, blockchain side effects cannot be undone anyway.
type ActionHandler interface {
	Execute(ctx context.Context, trigger *model.Trigger, params json.RawMessage) error
}

type ConditionFunc func(ctx context.Context, trigger *model.Trigger, params json.RawMessage) (bool, error)

func (f ConditionFunc) Check(ctx context.Context, trigger *model.Trigger, params json.RawMessage) (bool, error) {
	return f(ctx, trigger, params)
}

type ActionFunc func(ctx context.Context, trigger *model.Trigger, params json.RawMessage) error

func (f ActionFunc) Execute(ctx context.Context, trigger *model.Trigger, params json.RawMessage) error {
	return f(ctx, trigger, params)
}

// Registry maps condition and action type tags to their implementations.
// Registration happens at boot; lookups at run time. An unknown tag is a
// configuration fault for the run that hits it, not a silent no-op.
type Registry struct {
	mu         sync.RWMutex
	conditions map[string]ConditionHandler
	actions    map[string]ActionHandler
}

func NewRegistry() *Registry {
	return &Registry{
		conditions: make(map[string]ConditionHandler),
		actions:    make(map[string]ActionHandler),
	}
}

func (r *Registry) RegisterCondition(typeTag string, h ConditionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[typeTag] = h
}

func (r *Registry) RegisterAction(typeTag string, h ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[typeTag] = h
}

func (r *Registry) Condition(typeTag string) (ConditionHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.conditions[typeTag]
	if !ok {
		return nil, fmt.Errorf("condition %q: %w", typeTag, ErrTypeNotRegistered)
	}
	return h, nil
}

func (r *Registry) Action(typeTag string) (ActionHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.actions[typeTag]
	if !ok {
		return nil, fmt.Errorf("action %q: %w", typeTag, ErrTypeNotRegistered)
	}
	return h, nil
}
