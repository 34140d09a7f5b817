package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"alpine-bot/internal/domain"
)

// Features is the parsed features file: every feature group the bot serves
// plus optional message overrides.
type Features struct {
	Prefix   string            `yaml:"prefix"`
	Messages map[string]string `yaml:"messages,omitempty"`
	Groups   []GroupDef        `yaml:"groups"`
}

// GroupDef declares one feature group.
type GroupDef struct {
	Name     string       `yaml:"name"`
	Kind     string       `yaml:"kind,omitempty"`
	Brief    string       `yaml:"brief,omitempty"`
	Commands []CommandDef `yaml:"commands"`
	Resource *ResourceDef `yaml:"resource,omitempty"`
}

// CommandDef declares one command. Name is relative to the group: "start"
// in group "mc" is registered as "mc.start".
type CommandDef struct {
	Name         string   `yaml:"name"`
	Brief        string   `yaml:"brief,omitempty"`
	UserLevel    *int     `yaml:"user_level,omitempty"`
	ChannelLevel *int     `yaml:"channel_level,omitempty"`
	States       []string `yaml:"states,omitempty"`
	Action       string   `yaml:"action,omitempty"`
}

// ResourceDef declares the resource owned by a stateful group.
type ResourceDef struct {
	Class             string              `yaml:"class,omitempty"`
	Host              string              `yaml:"host,omitempty"`
	Interval          time.Duration       `yaml:"interval,omitempty"`
	Cooldown          time.Duration       `yaml:"cooldown,omitempty"`
	WakeCheckInterval time.Duration       `yaml:"wake_check_interval,omitempty"`
	WakeMaxAttempts   int                 `yaml:"wake_max_attempts,omitempty"`
	Probes            ProbeDefs           `yaml:"probes"`
	Actions           map[string][]string `yaml:"actions,omitempty"`
}

// ProbeDefs holds the argv of each liveness probe. A probe succeeds when
// its process exits with status 0.
type ProbeDefs struct {
	Host   []string `yaml:"host,omitempty"`
	Server []string `yaml:"server,omitempty"`
}

// Resource defaults applied when the features file leaves a field unset.
const (
	DefaultCooldown          = 60 * time.Second
	DefaultWakeCheckInterval = 10 * time.Second
	DefaultWakeMaxAttempts   = 12
)

// LoadFeatures reads and validates a features file.
func LoadFeatures(path string) (*Features, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return ParseFeatures(data)
}

// ParseFeatures decodes and validates features YAML.
func ParseFeatures(data []byte) (*Features, error) {
	var f Features
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse features: %w", err)
	}
	if f.Prefix == "" {
		f.Prefix = "!"
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// QualifiedName returns the registered name of a command of group.
func QualifiedName(group, name string) string {
	switch {
	case name == "" || name == group:
		return group
	case strings.HasPrefix(name, group+"."):
		return name
	default:
		return group + "." + name
	}
}

// Group returns the definition of the named group.
func (f *Features) Group(name string) (GroupDef, bool) {
	for _, g := range f.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return GroupDef{}, false
}

// Validate checks every definition and reports all problems at once.
func (f *Features) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	for key := range f.Messages {
		if _, err := domain.ParseMessageKey(key); err != nil {
			add("messages: %v", err)
		}
	}

	seen := make(map[string]bool, len(f.Groups))
	for _, g := range f.Groups {
		if g.Name == "" {
			add("group without a name")
			continue
		}
		if strings.Contains(g.Name, ".") {
			add("group %q: name must not contain '.'", g.Name)
		}
		if seen[g.Name] {
			add("group %q declared twice", g.Name)
		}
		seen[g.Name] = true

		kind, err := domain.ParseGroupKind(g.Kind)
		if err != nil {
			add("group %q: %v", g.Name, err)
			continue
		}
		if len(g.Commands) == 0 {
			add("group %q: no commands", g.Name)
		}

		var class domain.ResourceClass
		switch {
		case kind.Stateful() && g.Resource == nil:
			add("group %q: stateful groups need a resource", g.Name)
		case !kind.Stateful() && g.Resource != nil:
			add("group %q: only stateful groups may declare a resource", g.Name)
		case g.Resource != nil:
			class, err = domain.ParseResourceClass(g.Resource.Class)
			if err != nil {
				add("group %q: %v", g.Name, err)
			} else {
				f.validateResource(g, class, add)
			}
		}

		names := make(map[string]bool, len(g.Commands))
		for _, c := range g.Commands {
			qn := QualifiedName(g.Name, c.Name)
			if names[qn] {
				add("group %q: command %q declared twice", g.Name, qn)
			}
			names[qn] = true
			if err := domain.ValidateCommandName(qn); err != nil {
				add("group %q: %v", g.Name, err)
			}
			validateCommand(g, kind, class, c, add)
		}
	}

	if len(problems) > 0 {
		return domain.ErrValidation("invalid features: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateCommand(g GroupDef, kind domain.GroupKind, class domain.ResourceClass, c CommandDef, add func(string, ...interface{})) {
	qn := QualifiedName(g.Name, c.Name)

	if !kind.Leveled() && (c.UserLevel != nil || c.ChannelLevel != nil) {
		add("command %q: levels require an ordered or stateful group", qn)
	}
	if kind.Leveled() {
		if _, err := c.Levels(); err != nil {
			add("command %q: %v", qn, err)
		}
	}

	if len(c.States) > 0 {
		if !kind.Stateful() {
			add("command %q: states require a stateful group", qn)
		} else if _, err := c.StateSet(class); err != nil {
			add("command %q: %v", qn, err)
		}
	}

	if c.Action != "" {
		action, err := domain.ParseAction(c.Action)
		switch {
		case err != nil:
			add("command %q: %v", qn, err)
		case !kind.Stateful():
			add("command %q: actions require a stateful group", qn)
		case g.Resource != nil && len(g.Resource.Actions[string(action)]) == 0:
			add("command %q: resource has no %q script", qn, action)
		}
	}
}

func (f *Features) validateResource(g GroupDef, class domain.ResourceClass, add func(string, ...interface{})) {
	r := g.Resource
	if len(r.Probes.Host) == 0 {
		add("group %q: resource needs a host probe", g.Name)
	}
	if class == domain.ClassCompound && len(r.Probes.Server) == 0 {
		add("group %q: compound resources need a server probe", g.Name)
	}
	if class == domain.ClassSimple && len(r.Probes.Server) > 0 {
		add("group %q: simple resources take only a host probe", g.Name)
	}
	for name := range r.Actions {
		if _, err := domain.ParseAction(name); err != nil {
			add("group %q: %v", g.Name, err)
		}
	}
	if r.Interval < 0 || r.Cooldown < 0 || r.WakeCheckInterval < 0 || r.WakeMaxAttempts < 0 {
		add("group %q: resource timings must not be negative", g.Name)
	}

	if r.Host == "" {
		return
	}
	if class != domain.ClassCompound {
		add("group %q: only compound resources depend on a host", g.Name)
	}
	if r.Host == g.Name {
		add("group %q: resource cannot be its own host", g.Name)
		return
	}
	host, ok := f.Group(r.Host)
	switch {
	case !ok:
		add("group %q: host %q is not declared", g.Name, r.Host)
	case host.Resource == nil:
		add("group %q: host %q has no resource", g.Name, r.Host)
	case len(host.Resource.Actions[string(domain.ActionWake)]) == 0:
		add("group %q: host %q has no wake script", g.Name, r.Host)
	case host.Resource.Host != "":
		add("group %q: host %q must not depend on another host", g.Name, r.Host)
	}
}

// Levels returns the level requirement of the command. Unset levels are 0.
func (c CommandDef) Levels() (domain.LevelRequirement, error) {
	var user, channel int
	if c.UserLevel != nil {
		user = *c.UserLevel
	}
	if c.ChannelLevel != nil {
		channel = *c.ChannelLevel
	}
	return domain.NewLevelRequirement(user, channel)
}

// StateSet parses the required states against the resource class.
func (c CommandDef) StateSet(class domain.ResourceClass) (domain.StateSet, error) {
	allowed := class.States()
	var states []domain.State
	for _, s := range c.States {
		st, err := domain.ParseState(s)
		if err != nil {
			return 0, err
		}
		if !allowed.Contains(st) {
			return 0, domain.ErrValidation("state %s is not valid for %s resources", st, class)
		}
		states = append(states, st)
	}
	return domain.NewStateSet(states...), nil
}

// Spec converts the resource definition, filling defaults. fallback is the
// process-wide reconcile interval.
func (r ResourceDef) Spec(fallback time.Duration) domain.ResourceSpec {
	class, _ := domain.ParseResourceClass(r.Class)
	spec := domain.ResourceSpec{
		Class:             class,
		Host:              r.Host,
		Interval:          r.Interval,
		Cooldown:          r.Cooldown,
		WakeCheckInterval: r.WakeCheckInterval,
		WakeMaxAttempts:   r.WakeMaxAttempts,
	}
	if spec.Interval == 0 {
		spec.Interval = fallback
	}
	if spec.Cooldown == 0 {
		spec.Cooldown = DefaultCooldown
	}
	if spec.WakeCheckInterval == 0 {
		spec.WakeCheckInterval = DefaultWakeCheckInterval
	}
	if spec.WakeMaxAttempts == 0 {
		spec.WakeMaxAttempts = DefaultWakeMaxAttempts
	}
	return spec
}
