package domain

import (
	"strconv"
	"strings"
)

// MessageID enumerates every message the subsystem can emit.
type MessageID int

const (
	MsgWelcome MessageID = iota + 1
	MsgStartup
	MsgResourceActive
	MsgResourceInactive
	MsgResourceState
	MsgNoCommandPermission
	MsgStateUnavailable
	MsgCooldown
	MsgWakeFailed
	MsgWakeSent
	MsgHostInactive
	MsgActionStarted
	MsgResourceNotFound
	MsgResourceUnresponsive
)

var messageKeys = map[MessageID]string{
	MsgWelcome:              "welcome",
	MsgStartup:              "startup",
	MsgResourceActive:       "resource_active",
	MsgResourceInactive:     "resource_inactive",
	MsgResourceState:        "resource_state",
	MsgNoCommandPermission:  "no_command_permission",
	MsgStateUnavailable:     "state_unavailable",
	MsgCooldown:             "cooldown",
	MsgWakeFailed:           "wake_failed",
	MsgWakeSent:             "wake_sent",
	MsgHostInactive:         "host_inactive",
	MsgActionStarted:        "action_started",
	MsgResourceNotFound:     "resource_not_found",
	MsgResourceUnresponsive: "resource_unresponsive",
}

// Key is the identifier used for overrides in the features file.
func (id MessageID) Key() string { return messageKeys[id] }

// ParseMessageKey resolves an override key.
func ParseMessageKey(key string) (MessageID, error) {
	for id, k := range messageKeys {
		if k == key {
			return id, nil
		}
	}
	return 0, ErrValidation("unknown message %q", key)
}

// MessageParams is implemented by the parameter struct of each message.
// Fields returns the placeholder values substituted into the template.
type MessageParams interface {
	Fields() map[string]string
}

// NoParams is used by messages without placeholders.
type NoParams struct{}

func (NoParams) Fields() map[string]string { return nil }

// GroupParams names the feature group a message is about.
type GroupParams struct {
	Group  string
	Prefix string
}

func (p GroupParams) Fields() map[string]string {
	return map[string]string{"group": p.Group, "prefix": p.Prefix}
}

// ResourceParams names a resource and, optionally, its state.
type ResourceParams struct {
	Resource string
	State    State
}

func (p ResourceParams) Fields() map[string]string {
	f := map[string]string{"resource": p.Resource}
	if p.State != 0 {
		f["state"] = p.State.String()
	}
	return f
}

// ActionParams names an action on a resource.
type ActionParams struct {
	Resource string
	Action   Action
}

func (p ActionParams) Fields() map[string]string {
	return map[string]string{"resource": p.Resource, "action": string(p.Action)}
}

// CooldownParams carries the remaining cooldown.
type CooldownParams struct {
	Command string
	Seconds int
}

func (p CooldownParams) Fields() map[string]string {
	return map[string]string{"command": p.Command, "seconds": strconv.Itoa(p.Seconds)}
}

// StateUnavailableParams carries the state that blocked a command.
type StateUnavailableParams struct {
	Resource string
	Actual   State
	Required StateSet
}

func (p StateUnavailableParams) Fields() map[string]string {
	return map[string]string{
		"resource": p.Resource,
		"state":    p.Actual.String(),
		"required": p.Required.String(),
	}
}

// ExpandPlaceholders replaces {name} tokens in tmpl with values from fields.
// Unknown tokens are left untouched.
func ExpandPlaceholders(tmpl string, fields map[string]string) string {
	if len(fields) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
