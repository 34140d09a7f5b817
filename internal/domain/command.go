package domain

import (
	"strings"
	"time"
)

// GroupKind selects the access model of a feature group.
type GroupKind string

const (
	GroupBasic    GroupKind = "basic"
	GroupOrdered  GroupKind = "ordered"
	GroupStateful GroupKind = "stateful"
)

// ParseGroupKind validates a kind string. An empty string means basic.
func ParseGroupKind(s string) (GroupKind, error) {
	switch GroupKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", GroupBasic:
		return GroupBasic, nil
	case GroupOrdered:
		return GroupOrdered, nil
	case GroupStateful:
		return GroupStateful, nil
	default:
		return "", ErrValidation("group kind must be basic, ordered or stateful, got %q", s)
	}
}

// Leveled reports whether commands of this kind are gated on permission levels.
func (k GroupKind) Leveled() bool { return k == GroupOrdered || k == GroupStateful }

// Stateful reports whether groups of this kind own a resource.
func (k GroupKind) Stateful() bool { return k == GroupStateful }

// Group is a bundle of related commands sharing an access model.
type Group struct {
	Name      string
	Kind      GroupKind
	CreatedAt time.Time
}

// Command is a registered command. Name is the dotted qualified name.
type Command struct {
	Name      string
	GroupName string
}

// Entitlement is a direct grant of one command to one principal.
type Entitlement struct {
	Principal   PrincipalRef
	CommandName string
	GroupName   string
	GrantedAt   time.Time
}

// GroupMembership is the derived edge between a principal and a group it
// holds at least one entitlement in.
type GroupMembership struct {
	Principal PrincipalRef
	GroupName string
}

// ParentNames returns the ancestors of a dotted command name, nearest first.
// "g.parent.child" yields ["g.parent", "g"].
func ParentNames(name string) []string {
	var parents []string
	for {
		i := strings.LastIndexByte(name, '.')
		if i <= 0 {
			return parents
		}
		name = name[:i]
		parents = append(parents, name)
	}
}

// WithParents returns name followed by its ancestors, nearest first.
func WithParents(name string) []string {
	return append([]string{name}, ParentNames(name)...)
}

// ValidateCommandName checks that a qualified name has no empty segments.
func ValidateCommandName(name string) error {
	if name == "" {
		return ErrValidation("command name is required")
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return ErrValidation("command name %q has an empty segment", name)
		}
	}
	return nil
}
