// Package resource runs the liveness state machine of stateful groups:
// periodic reconciliation, state gating and manual actions.
package resource

import "alpine-bot/internal/domain"

// NextState applies the transition table of a resource class to the probe
// results. serverOK is ignored for simple resources and whenever the host
// is down.
func NextState(class domain.ResourceClass, cur domain.State, hostOK, serverOK bool) domain.State {
	if class != domain.ClassCompound {
		switch {
		case cur == domain.StateInactive && hostOK:
			return domain.StateActive
		case cur == domain.StateActive && !hostOK:
			return domain.StateInactive
		case cur == domain.StateHostInactive:
			// Not a simple state; settle on what the probe says.
			if hostOK {
				return domain.StateActive
			}
			return domain.StateInactive
		}
		return cur
	}

	switch {
	case !hostOK:
		return domain.StateHostInactive
	case serverOK:
		return domain.StateActive
	default:
		return domain.StateInactive
	}
}

// ShouldNotify reports whether a transition is announced to group members.
// Only moves into or out of ACTIVE are.
func ShouldNotify(prev, next domain.State) bool {
	if prev == next {
		return false
	}
	return prev == domain.StateActive || next == domain.StateActive
}

// transitionMessage picks the announcement for a notified transition.
func transitionMessage(next domain.State) domain.MessageID {
	if next == domain.StateActive {
		return domain.MsgResourceActive
	}
	return domain.MsgResourceInactive
}

// converged reports whether a woken resource has come back: its host
// answers. For a compound resource that is any state but HOST_INACTIVE.
func converged(class domain.ResourceClass, s domain.State) bool {
	if class == domain.ClassCompound {
		return s != domain.StateHostInactive
	}
	return s == domain.StateActive
}
