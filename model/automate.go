package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Trigger is a user owned automation unit: an ordered set of conditions
// gating an ordered set of actions, scoped to one wallet.
type Trigger struct {
	ID     string          `json:"id"`
	Wallet string          `json:"wallet"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
	Name   string          `json:"name"`
	Active bool            `json:"active"`

	// LastCallAt is the start time of the most recent run that reached the
	// action phase. Condition implementations use it for rate limiting.
	LastCallAt *time.Time `json:"lastCallAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Condition is a side-effect-free predicate owned by a trigger. Priority is
// an ascending total order key, ties broken by creation order.
type Condition struct {
	ID        string          `json:"id"`
	Trigger   string          `json:"trigger"`
	Type      string          `json:"type"`
	Params    json.RawMessage `json:"params"`
	Priority  int             `json:"priority"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Action is a side-effecting operation owned by a trigger, same ordering
// semantics as Condition but an independent priority sequence.
type Action struct {
	ID        string          `json:"id"`
	Trigger   string          `json:"trigger"`
	Type      string          `json:"type"`
	Params    json.RawMessage `json:"params"`
	Priority  int             `json:"priority"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SortConditions orders by (priority asc, createdAt asc) in place
func SortConditions(list []*Condition) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

// SortActions orders by (priority asc, createdAt asc) in place
func SortActions(list []*Action) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
