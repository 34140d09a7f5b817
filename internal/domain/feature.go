package domain

import "time"

// LevelRequirement is the minimum permission level a leveled command needs
// in each invocation context.
type LevelRequirement struct {
	User    int
	Channel int
}

// NewLevelRequirement enforces User >= Channel: a direct message must never
// be easier to pass than a shared channel.
func NewLevelRequirement(user, channel int) (LevelRequirement, error) {
	if user < channel {
		return LevelRequirement{}, ErrValidation("user level %d must be >= channel level %d", user, channel)
	}
	return LevelRequirement{User: user, Channel: channel}, nil
}

// CommandSpec describes one command of a feature group.
type CommandSpec struct {
	Name   string
	Brief  string
	Levels LevelRequirement
	States StateSet // empty: no state gate
	Action Action   // empty: the command does not launch an action
}

// ResourceSpec configures the resource owned by a stateful group.
type ResourceSpec struct {
	Class             ResourceClass
	Host              string // group name of the host resource, if any
	Interval          time.Duration
	Cooldown          time.Duration
	WakeCheckInterval time.Duration
	WakeMaxAttempts   int
}

// Entitled is implemented by every feature group: its commands may be
// granted to principals.
type Entitled interface {
	GroupName() string
	Kind() GroupKind
	Commands() []CommandSpec
	Command(name string) (CommandSpec, bool)
}

// Leveled groups additionally gate commands on permission levels.
type Leveled interface {
	Entitled
	Requirement(command string) (LevelRequirement, bool)
}

// Stateful groups additionally own a resource whose state gates commands.
type Stateful interface {
	Leveled
	Resource() ResourceSpec
}
