package feature

import (
	"sort"
	"strings"
	"time"

	"alpine-bot/internal/config"
	"alpine-bot/internal/domain"
)

// Registry holds the feature groups loaded at startup.
type Registry struct {
	groups map[string]domain.Entitled
	order  []string
}

// NewRegistry creates a registry from already built groups.
func NewRegistry(groups ...domain.Entitled) (*Registry, error) {
	r := &Registry{groups: make(map[string]domain.Entitled, len(groups))}
	for _, g := range groups {
		if _, dup := r.groups[g.GroupName()]; dup {
			return nil, domain.ErrValidation("group %q registered twice", g.GroupName())
		}
		r.groups[g.GroupName()] = g
		r.order = append(r.order, g.GroupName())
	}
	return r, nil
}

// FromFeatures builds every group of a validated features file. interval
// is used for resources that do not set their own.
func FromFeatures(f *config.Features, interval time.Duration) (*Registry, error) {
	groups := make([]domain.Entitled, 0, len(f.Groups))
	for _, def := range f.Groups {
		g, err := Build(def, interval)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return NewRegistry(groups...)
}

// Build converts one group definition into the group type of its kind.
func Build(def config.GroupDef, interval time.Duration) (domain.Entitled, error) {
	kind, err := domain.ParseGroupKind(def.Kind)
	if err != nil {
		return nil, err
	}

	var class domain.ResourceClass
	var resource domain.ResourceSpec
	if kind.Stateful() {
		if def.Resource == nil {
			return nil, domain.ErrValidation("group %q: stateful groups need a resource", def.Name)
		}
		resource = def.Resource.Spec(interval)
		class = resource.Class
	}

	specs := make([]domain.CommandSpec, 0, len(def.Commands))
	for _, c := range def.Commands {
		spec := domain.CommandSpec{
			Name:  config.QualifiedName(def.Name, c.Name),
			Brief: c.Brief,
		}
		if kind.Leveled() {
			if spec.Levels, err = c.Levels(); err != nil {
				return nil, err
			}
		}
		if kind.Stateful() {
			if spec.States, err = c.StateSet(class); err != nil {
				return nil, err
			}
			if c.Action != "" {
				if spec.Action, err = domain.ParseAction(c.Action); err != nil {
					return nil, err
				}
			}
		}
		specs = append(specs, spec)
	}

	switch kind {
	case domain.GroupOrdered:
		return NewOrdered(def.Name, specs), nil
	case domain.GroupStateful:
		return NewStateful(def.Name, specs, resource), nil
	default:
		return NewBasic(def.Name, specs), nil
	}
}

// Group returns the named group.
func (r *Registry) Group(name string) (domain.Entitled, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Groups returns every group in registration order.
func (r *Registry) Groups() []domain.Entitled {
	out := make([]domain.Entitled, len(r.order))
	for i, name := range r.order {
		out[i] = r.groups[name]
	}
	return out
}

// Stateful returns the groups that own a resource.
func (r *Registry) Stateful() []domain.Stateful {
	var out []domain.Stateful
	for _, name := range r.order {
		if s, ok := r.groups[name].(domain.Stateful); ok {
			out = append(out, s)
		}
	}
	return out
}

// Lookup resolves a qualified command name to its group. Parent nodes that
// are not declared commands resolve to a spec carrying only the name.
func (r *Registry) Lookup(command string) (domain.Entitled, domain.CommandSpec, bool) {
	root, _, _ := strings.Cut(command, ".")
	g, ok := r.groups[root]
	if !ok {
		return nil, domain.CommandSpec{}, false
	}
	if spec, ok := g.Command(command); ok {
		return g, spec, true
	}
	if command == root || hasDescendant(g, command) {
		return g, domain.CommandSpec{Name: command}, true
	}
	return nil, domain.CommandSpec{}, false
}

func hasDescendant(g domain.Entitled, command string) bool {
	prefix := command + "."
	for _, c := range g.Commands() {
		if strings.HasPrefix(c.Name, prefix) {
			return true
		}
	}
	return false
}

// CommandNames returns the qualified names of a group's declared commands,
// sorted. The store adds the parent chains.
func CommandNames(g domain.Entitled) []string {
	cmds := g.Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}
