package domain

import (
	"strings"
	"time"
)

// State is the current liveness of a resource. A resource always holds
// exactly one State; sets of states are expressed with StateSet.
type State uint8

const (
	StateInactive State = iota + 1
	StateActive
	StateHostInactive
)

var stateNames = map[State]string{
	StateInactive:     "INACTIVE",
	StateActive:       "ACTIVE",
	StateHostInactive: "HOST_INACTIVE",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseState accepts the persisted names case-insensitively.
func ParseState(s string) (State, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for st, name := range stateNames {
		if name == norm {
			return st, nil
		}
	}
	return 0, ErrValidation("unknown resource state %q", s)
}

// StateSet is a required-state mask used only for gating.
type StateSet uint8

// NewStateSet builds a mask from the given states.
func NewStateSet(states ...State) StateSet {
	var set StateSet
	for _, s := range states {
		set |= 1 << s
	}
	return set
}

// Contains reports whether s is a member of the set.
func (m StateSet) Contains(s State) bool { return m&(1<<s) != 0 }

// Empty reports whether the set has no members.
func (m StateSet) Empty() bool { return m == 0 }

// States lists the members in declaration order.
func (m StateSet) States() []State {
	var out []State
	for _, s := range []State{StateActive, StateInactive, StateHostInactive} {
		if m.Contains(s) {
			out = append(out, s)
		}
	}
	return out
}

func (m StateSet) String() string {
	states := m.States()
	if len(states) == 0 {
		return "{}"
	}
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = s.String()
	}
	return strings.Join(names, "|")
}

// ResourceClass decides which states a resource may hold.
type ResourceClass string

const (
	// ClassSimple resources are probed directly: ACTIVE or INACTIVE.
	ClassSimple ResourceClass = "simple"
	// ClassCompound resources run on a host that may itself be down.
	ClassCompound ResourceClass = "compound"
)

// ParseResourceClass validates a class string. Empty means simple.
func ParseResourceClass(s string) (ResourceClass, error) {
	switch ResourceClass(strings.ToLower(strings.TrimSpace(s))) {
	case "", ClassSimple:
		return ClassSimple, nil
	case ClassCompound:
		return ClassCompound, nil
	default:
		return "", ErrValidation("resource class must be simple or compound, got %q", s)
	}
}

// States returns the states a resource of this class may hold.
func (c ResourceClass) States() StateSet {
	if c == ClassCompound {
		return NewStateSet(StateActive, StateInactive, StateHostInactive)
	}
	return NewStateSet(StateActive, StateInactive)
}

// Resource is the persisted liveness record of a stateful group.
type Resource struct {
	GroupName string
	Class     ResourceClass
	State     State
	UpdatedAt time.Time
}

// Action names a manual operation on a resource.
type Action string

const (
	ActionWake      Action = "wake"
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionHibernate Action = "hibernate"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionWake, ActionStart, ActionStop, ActionHibernate:
		return a, nil
	default:
		return "", ErrValidation("unknown action %q", s)
	}
}
