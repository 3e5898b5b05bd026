package domain

// AuthorizationService centralizes RBAC rules as pure guard functions: each
// returns nil when the actor is allowed and a FORBIDDEN domain error naming
// the violated rule otherwise. The service has no persistence access and no
// knowledge of HTTP semantics.
type AuthorizationService struct{}

// NewAuthorizationService returns the stateless RBAC rule set.
func NewAuthorizationService() AuthorizationService {
	return AuthorizationService{}
}

func (AuthorizationService) EnsureCanManageUsers(actor *User) error {
	if !actor.CanManageUsers() {
		return NewForbidden("manage-users", "user %s (role=%s) may not manage users", actor.Username, actor.Role)
	}
	return nil
}

func (AuthorizationService) EnsureCanManageTickets(actor *User) error {
	if !actor.CanManageTickets() {
		return NewForbidden("manage-tickets", "user %s (role=%s) may not manage tickets", actor.Username, actor.Role)
	}
	return nil
}

func (AuthorizationService) EnsureOwnerOrAdmin(actor *User, resourceOwnerID int64) error {
	if actor.ID != resourceOwnerID && !actor.IsAdmin() {
		return NewForbidden("owner-or-admin", "user %s is neither the resource owner nor an admin", actor.Username)
	}
	return nil
}

// EnsureCanChangeRole allows only admins to change roles, and never lets an
// admin demote themselves away from admin.
func (AuthorizationService) EnsureCanChangeRole(actor, target *User, newRole Role) error {
	if !actor.IsAdmin() {
		return NewForbidden("change-role", "only admins may change roles")
	}
	if target.ID == actor.ID && newRole != RoleAdmin {
		return NewForbidden("change-role", "admin may not demote themselves")
	}
	return nil
}

// EnsureCanDeleteUser allows only admins to delete users, and never
// themselves.
func (AuthorizationService) EnsureCanDeleteUser(actor *User, targetID int64) error {
	if !actor.IsAdmin() {
		return NewForbidden("delete-user", "only admins may delete users")
	}
	if actor.ID == targetID {
		return NewForbidden("delete-user", "admin may not delete themselves")
	}
	return nil
}

func (AuthorizationService) EnsureCanAccessDataset(actor *User, datasetOwnerID int64) error {
	if actor.ID != datasetOwnerID && !actor.IsAdmin() {
		return NewForbidden("access-dataset", "user %s may not access this dataset", actor.Username)
	}
	return nil
}

// EnsureCanAssignTicket allows only admins to assign tickets.
func (AuthorizationService) EnsureCanAssignTicket(actor *User) error {
	if !actor.IsAdmin() {
		return NewForbidden("assign-ticket", "only admins may assign tickets")
	}
	return nil
}

// EnsureIsActiveAgent verifies the assignment target holds the agent role and
// is active.
func (AuthorizationService) EnsureIsActiveAgent(target *User) error {
	if target.Role != RoleAgent {
		return NewForbidden("assign-ticket", "user %s is not an agent (role=%s)", target.Username, target.Role)
	}
	if !target.IsActive {
		return NewForbidden("assign-ticket", "agent %s is inactive", target.Username)
	}
	return nil
}

// EnsureCanReplyTicket allows the creator, the current assignee, or an admin.
func (AuthorizationService) EnsureCanReplyTicket(actor *User, createdBy int64, assignedTo *int64) error {
	if actor.IsAdmin() || actor.ID == createdBy {
		return nil
	}
	if assignedTo != nil && actor.ID == *assignedTo {
		return nil
	}
	return NewForbidden("reply-ticket", "only the creator, assigned agent or an admin may reply")
}

// EnsureCanAccessTicket mirrors the reply rule for read access to a ticket's
// detail view.
func (AuthorizationService) EnsureCanAccessTicket(actor *User, createdBy int64, assignedTo *int64) error {
	if actor.IsAdmin() || actor.ID == createdBy {
		return nil
	}
	if assignedTo != nil && actor.ID == *assignedTo {
		return nil
	}
	return NewForbidden("access-ticket", "only the creator, assigned agent or an admin may view this ticket")
}

// EnsureCanAttachFile shares the reply rule: creator, assignee, or admin.
func (s AuthorizationService) EnsureCanAttachFile(actor *User, createdBy int64, assignedTo *int64) error {
	if err := s.EnsureCanReplyTicket(actor, createdBy, assignedTo); err != nil {
		return NewForbidden("attach-file", "only the creator, assigned agent or an admin may attach files")
	}
	return nil
}
