// Package notify renders bot messages and fans them out to the members of
// a feature group.
package notify

import (
	"fmt"

	"alpine-bot/internal/domain"
)

var defaultTemplates = map[domain.MessageID]string{
	domain.MsgWelcome:              "You now have access to {group}. Type {prefix}help {group} for a list of commands.",
	domain.MsgStartup:              "Bot started. Type {prefix}help for a list of commands.",
	domain.MsgResourceActive:       "Response received from {resource}. Server is active.",
	domain.MsgResourceInactive:     "No response from {resource}. Server is inactive.",
	domain.MsgResourceState:        "{resource} state: {state}",
	domain.MsgNoCommandPermission:  "You do not have permission for this command.",
	domain.MsgStateUnavailable:     "Command unavailable in current state: {state}",
	domain.MsgCooldown:             "Command on cooldown for {seconds} seconds.",
	domain.MsgWakeFailed:           "No response from {resource} after the wake attempt. Command not sent.",
	domain.MsgWakeSent:             "{resource} is inactive. Sending magic packet...",
	domain.MsgHostInactive:         "Host {resource} is inactive.",
	domain.MsgActionStarted:        "Running {action} on {resource}...",
	domain.MsgResourceNotFound:     "Specified server not found.",
	domain.MsgResourceUnresponsive: "No response from {resource}. Command not sent.",
}

// Formatter renders messages from plain placeholder templates. Overrides
// replace the built-in text per message; they are never evaluated.
type Formatter struct {
	templates map[domain.MessageID]string
}

// NewFormatter creates a Formatter. overrides is keyed by message key, as
// in the features file.
func NewFormatter(overrides map[string]string) (*Formatter, error) {
	templates := make(map[domain.MessageID]string, len(defaultTemplates))
	for id, t := range defaultTemplates {
		templates[id] = t
	}
	for key, t := range overrides {
		id, err := domain.ParseMessageKey(key)
		if err != nil {
			return nil, err
		}
		templates[id] = t
	}
	return &Formatter{templates: templates}, nil
}

// Format renders message id with params.
func (f *Formatter) Format(id domain.MessageID, params domain.MessageParams) string {
	tmpl, ok := f.templates[id]
	if !ok {
		return fmt.Sprintf("message %d", id)
	}
	if params == nil {
		return tmpl
	}
	return domain.ExpandPlaceholders(tmpl, params.Fields())
}
