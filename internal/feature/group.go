// Package feature builds the feature groups served by the bot. Each group
// exposes only the capabilities its kind grants: every group is
// domain.Entitled, ordered groups add domain.Leveled, stateful groups add
// domain.Stateful.
package feature

import (
	"alpine-bot/internal/domain"
)

// Compile-time checks.
var (
	_ domain.Entitled = (*basicGroup)(nil)
	_ domain.Leveled  = (*orderedGroup)(nil)
	_ domain.Stateful = (*statefulGroup)(nil)
)

type basicGroup struct {
	name     string
	kind     domain.GroupKind
	commands []domain.CommandSpec
	index    map[string]int
}

func newBasicGroup(name string, kind domain.GroupKind, commands []domain.CommandSpec) *basicGroup {
	g := &basicGroup{
		name:     name,
		kind:     kind,
		commands: commands,
		index:    make(map[string]int, len(commands)),
	}
	for i, c := range commands {
		g.index[c.Name] = i
	}
	return g
}

func (g *basicGroup) GroupName() string      { return g.name }
func (g *basicGroup) Kind() domain.GroupKind { return g.kind }

func (g *basicGroup) Commands() []domain.CommandSpec {
	out := make([]domain.CommandSpec, len(g.commands))
	copy(out, g.commands)
	return out
}

func (g *basicGroup) Command(name string) (domain.CommandSpec, bool) {
	i, ok := g.index[name]
	if !ok {
		return domain.CommandSpec{}, false
	}
	return g.commands[i], true
}

type orderedGroup struct {
	*basicGroup
}

// Requirement returns the levels a command needs. ok is false for names the
// group does not declare, such as parent nodes; those are not level gated.
func (g *orderedGroup) Requirement(command string) (domain.LevelRequirement, bool) {
	c, ok := g.Command(command)
	if !ok {
		return domain.LevelRequirement{}, false
	}
	return c.Levels, true
}

type statefulGroup struct {
	*orderedGroup
	resource domain.ResourceSpec
}

func (g *statefulGroup) Resource() domain.ResourceSpec { return g.resource }

// NewBasic creates a group gated on entitlements only.
func NewBasic(name string, commands []domain.CommandSpec) domain.Entitled {
	return newBasicGroup(name, domain.GroupBasic, commands)
}

// NewOrdered creates a group gated on entitlements and permission levels.
func NewOrdered(name string, commands []domain.CommandSpec) domain.Leveled {
	return &orderedGroup{basicGroup: newBasicGroup(name, domain.GroupOrdered, commands)}
}

// NewStateful creates a leveled group that owns a resource.
func NewStateful(name string, commands []domain.CommandSpec, resource domain.ResourceSpec) domain.Stateful {
	return &statefulGroup{
		orderedGroup: &orderedGroup{basicGroup: newBasicGroup(name, domain.GroupStateful, commands)},
		resource:     resource,
	}
}
