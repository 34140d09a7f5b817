package domain

import (
	"fmt"
	"strings"
	"time"
)

// PrincipalKind distinguishes users from channels.
type PrincipalKind string

const (
	PrincipalUser    PrincipalKind = "user"
	PrincipalChannel PrincipalKind = "channel"
)

// ParsePrincipalKind validates a kind string.
func ParsePrincipalKind(s string) (PrincipalKind, error) {
	switch PrincipalKind(strings.ToLower(strings.TrimSpace(s))) {
	case PrincipalUser:
		return PrincipalUser, nil
	case PrincipalChannel:
		return PrincipalChannel, nil
	default:
		return "", ErrValidation("principal kind must be 'user' or 'channel', got %q", s)
	}
}

// PrincipalRef identifies a user or channel. Chat platform ids are opaque
// strings; a user and a channel may share the same id.
type PrincipalRef struct {
	Kind PrincipalKind
	ID   string
}

// User returns a reference to the user with the given id.
func User(id string) PrincipalRef { return PrincipalRef{Kind: PrincipalUser, ID: id} }

// Channel returns a reference to the channel with the given id.
func Channel(id string) PrincipalRef { return PrincipalRef{Kind: PrincipalChannel, ID: id} }

func (p PrincipalRef) String() string { return fmt.Sprintf("%s:%s", p.Kind, p.ID) }

// Validate checks that the reference is well-formed.
func (p PrincipalRef) Validate() error {
	if p.ID == "" {
		return ErrValidation("principal id is required")
	}
	if p.Kind != PrincipalUser && p.Kind != PrincipalChannel {
		return ErrValidation("principal kind must be 'user' or 'channel', got %q", p.Kind)
	}
	return nil
}

// Principal is a stored user or channel record.
type Principal struct {
	PrincipalRef
	CreatedAt time.Time
}

// Admin is a user flagged to bypass entitlement and level checks. Admin
// records live apart from principals so purging a principal keeps the flag.
type Admin struct {
	UserID    string
	CreatedAt time.Time
}
