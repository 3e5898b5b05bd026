package domain

import "time"

// Role gates operations through the authorization service. String conversion
// happens only at the persistence and transport boundaries.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// ParseRole validates a wire-level role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleAgent, RoleUser:
		return Role(s), nil
	}
	return "", NewValidation("unknown role %q", s)
}

// User represents an authenticated identity in the platform.
type User struct {
	Recorder

	ID             int64
	Username       string
	Email          string
	HashedPassword string
	Role           Role
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser builds a user with defaults applied. The credential hash is computed
// by the caller; the domain never sees raw passwords.
func NewUser(username, email, hashedPassword string, role Role, now time.Time) (*User, error) {
	if username == "" {
		return nil, NewValidation("username must not be empty")
	}
	if email == "" {
		return nil, NewValidation("email must not be empty")
	}
	if role == "" {
		role = RoleUser
	}
	return &User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ChangeRole switches the user's role. Equal roles are a no-op and record
// nothing.
func (u *User) ChangeRole(newRole Role, performedBy int64, now time.Time) {
	if u.Role == newRole {
		return
	}
	old := u.Role
	u.Role = newRole
	u.UpdatedAt = now
	u.record(UserRoleChanged{
		Occurrence:  newOccurrence(now),
		UserID:      u.ID,
		OldRole:     old,
		NewRole:     newRole,
		PerformedBy: performedBy,
	})
}

// Activate marks the user active.
func (u *User) Activate(performedBy int64, now time.Time) {
	if u.IsActive {
		return
	}
	u.IsActive = true
	u.UpdatedAt = now
	u.record(UserUpdated{
		Occurrence:  newOccurrence(now),
		UserID:      u.ID,
		Changes:     ChangeSet{"is_active": {Old: false, New: true}},
		PerformedBy: performedBy,
	})
}

// Deactivate marks the user inactive. Inactive users cannot log in or be
// assigned tickets.
func (u *User) Deactivate(performedBy int64, now time.Time) {
	if !u.IsActive {
		return
	}
	u.IsActive = false
	u.UpdatedAt = now
	u.record(UserUpdated{
		Occurrence:  newOccurrence(now),
		UserID:      u.ID,
		Changes:     ChangeSet{"is_active": {Old: true, New: false}},
		PerformedBy: performedBy,
	})
}

// RecordCreation is called once the repository has assigned an id.
func (u *User) RecordCreation(now time.Time) {
	u.record(UserCreated{
		Occurrence: newOccurrence(now),
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
	})
}

// RecordUpdate registers a generic field-level update.
func (u *User) RecordUpdate(changes ChangeSet, performedBy int64, now time.Time) {
	if len(changes) == 0 {
		return
	}
	u.record(UserUpdated{
		Occurrence:  newOccurrence(now),
		UserID:      u.ID,
		Changes:     changes,
		PerformedBy: performedBy,
	})
}

// RecordDeletion registers the deletion fact before the row is removed.
func (u *User) RecordDeletion(performedBy int64, now time.Time) {
	u.record(UserDeleted{
		Occurrence:  newOccurrence(now),
		UserID:      u.ID,
		PerformedBy: performedBy,
	})
}

// ── RBAC helpers ──

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) IsAgentOrAbove() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleAgent)
}

func (u *User) CanManageUsers() bool {
	return u.IsAdmin()
}

func (u *User) CanManageTickets() bool {
	return u.IsAgentOrAbove()
}
