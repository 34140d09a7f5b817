package domain

import (
	"context"
	"time"
)

// PermissionLevel is the integer rank of a principal inside a leveled group.
type PermissionLevel struct {
	Principal PrincipalRef
	GroupName string
	Level     int
	UpdatedAt time.Time
}

// RevokeResult reports what a revoke removed.
type RevokeResult struct {
	Revoked []string // command names, in removal order
	Purged  bool     // the principal held nothing afterwards and was removed
}

// PurgeResult reports principals removed as a side effect of deleting
// commands or groups.
type PurgeResult struct {
	Purged []PrincipalRef
}

// EntitlementRepository is the durable entitlement store. Every mutating
// method runs in a single transaction.
type EntitlementRepository interface {
	RegisterGroup(ctx context.Context, g Group, commands []string) error
	GetGroup(ctx context.Context, name string) (*Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	GetCommand(ctx context.Context, name string) (*Command, error)
	ListCommands(ctx context.Context, group string) ([]Command, error)
	DeleteCommand(ctx context.Context, name string) (PurgeResult, error)
	DeleteGroup(ctx context.Context, name string) (PurgeResult, error)

	GrantCommand(ctx context.Context, p PrincipalRef, command, group string) (created bool, err error)
	GrantGroup(ctx context.Context, p PrincipalRef, group string) (created bool, err error)
	RevokeCommand(ctx context.Context, p PrincipalRef, command string) (RevokeResult, error)
	RevokeGroup(ctx context.Context, p PrincipalRef, group string) (RevokeResult, error)
	DeletePrincipal(ctx context.Context, p PrincipalRef) (bool, error)

	GetPrincipal(ctx context.Context, p PrincipalRef) (*Principal, error)
	ListPrincipals(ctx context.Context) ([]Principal, error)
	IsEntitled(ctx context.Context, p PrincipalRef, command string) (bool, error)
	ListPrincipalsForCommand(ctx context.Context, command string) ([]PrincipalRef, error)
	ListCommandsForPrincipal(ctx context.Context, p PrincipalRef) ([]Entitlement, error)
	ListEntitlements(ctx context.Context) ([]Entitlement, error)
	ListGroupMembers(ctx context.Context, group string) ([]PrincipalRef, error)
	ListMemberships(ctx context.Context) ([]GroupMembership, error)
}

// PermissionRepository stores the ordered permission overlay.
type PermissionRepository interface {
	// Set reports whether the principal record was created.
	Set(ctx context.Context, p PrincipalRef, group string, level int) (created bool, err error)
	Get(ctx context.Context, p PrincipalRef, group string) (level int, ok bool, err error)
	Remove(ctx context.Context, p PrincipalRef, group string) (purged bool, err error)
	List(ctx context.Context, group string) ([]PermissionLevel, error)
}

// AdminRepository stores admin flags.
type AdminRepository interface {
	Add(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) error
	IsAdmin(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]Admin, error)
}

// ResourceRepository stores the current state of each stateful group.
type ResourceRepository interface {
	Ensure(ctx context.Context, group string, class ResourceClass) (*Resource, error)
	Get(ctx context.Context, group string) (*Resource, error)
	List(ctx context.Context) ([]Resource, error)
	// Transition moves the resource from one state to another atomically.
	// It reports false, without error, when the stored state is not from.
	Transition(ctx context.Context, group string, from, to State) (bool, error)
	Delete(ctx context.Context, group string) error
}

// AuditRepository provides operations for audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}
