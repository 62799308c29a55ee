package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditInfo is the audit envelope shared by all domain entities: a stable
// public identifier distinct from the internal key, creation/modification
// timestamps, and optional actor references. Actor references are nullable
// because system-initiated changes have no actor, and they null out when the
// referenced account is deleted.
type AuditInfo struct {
	PublicID       string    `json:"public_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedBy      *string   `json:"created_by,omitempty"`
	LastModifiedBy *string   `json:"last_modified_by,omitempty"`
}

// NewAuditInfo creates an audit envelope with a fresh public id.
// actor may be nil for system-initiated creation.
func NewAuditInfo(actor *string) AuditInfo {
	now := time.Now().UTC()
	return AuditInfo{
		PublicID:       uuid.New().String(),
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      actor,
		LastModifiedBy: actor,
	}
}

// Touch records a modification by the given actor.
func (a *AuditInfo) Touch(actor *string) {
	a.UpdatedAt = time.Now().UTC()
	if actor != nil {
		a.LastModifiedBy = actor
	}
}

// NullifyActor clears actor references pointing at a deleted account. The
// audit trail degrades gracefully instead of cascading.
func (a *AuditInfo) NullifyActor(accountID string) {
	if a.CreatedBy != nil && *a.CreatedBy == accountID {
		a.CreatedBy = nil
	}
	if a.LastModifiedBy != nil && *a.LastModifiedBy == accountID {
		a.LastModifiedBy = nil
	}
}

// EntityStatus is the tri-state soft-lifecycle marker carried by entities
// with a deletion concept. It is independent of any domain-specific status
// field (membership status, channel operational status).
type EntityStatus string

const (
	EntityStatusActive    EntityStatus = "active"
	EntityStatusSuspended EntityStatus = "suspended"
	EntityStatusDeleted   EntityStatus = "deleted"
)

// LifecycleInfo holds the Entity Status plus the timestamps marking
// suspension/resumption and logical deletion. Deletion is logical, never
// physical removal.
type LifecycleInfo struct {
	Status      EntityStatus `json:"status"`
	SuspendedAt *time.Time   `json:"suspended_at,omitempty"`
	ResumedAt   *time.Time   `json:"resumed_at,omitempty"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
	DeletedBy   *string      `json:"deleted_by,omitempty"`
}

// NewLifecycleInfo returns a lifecycle in the active state.
func NewLifecycleInfo() LifecycleInfo {
	return LifecycleInfo{Status: EntityStatusActive}
}

// IsDeleted reports whether the entity has been logically deleted.
func (l *LifecycleInfo) IsDeleted() bool {
	return l.Status == EntityStatusDeleted
}

// Suspend marks the entity suspended. Suspending a deleted entity is invalid.
func (l *LifecycleInfo) Suspend(now time.Time) error {
	if l.Status == EntityStatusDeleted {
		return ErrInvalidTransition
	}
	if l.Status == EntityStatusSuspended {
		return nil
	}
	l.Status = EntityStatusSuspended
	l.SuspendedAt = &now
	return nil
}

// Resume returns a suspended entity to the active state. Resuming a deleted
// entity is invalid.
func (l *LifecycleInfo) Resume(now time.Time) error {
	if l.Status == EntityStatusDeleted {
		return ErrInvalidTransition
	}
	if l.Status == EntityStatusActive {
		return nil
	}
	l.Status = EntityStatusActive
	l.ResumedAt = &now
	return nil
}

// MarkDeleted logically deletes the entity. Idempotent on an already-deleted
// entity.
func (l *LifecycleInfo) MarkDeleted(now time.Time, actor *string) {
	if l.Status == EntityStatusDeleted {
		return
	}
	l.Status = EntityStatusDeleted
	l.DeletedAt = &now
	l.DeletedBy = actor
}

// NullifyActor clears the deleting-actor reference when it points at a
// deleted account.
func (l *LifecycleInfo) NullifyActor(accountID string) {
	if l.DeletedBy != nil && *l.DeletedBy == accountID {
		l.DeletedBy = nil
	}
}
