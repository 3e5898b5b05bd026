package domain

import "testing"

func authzUsers() (admin, agent, regular *User) {
	admin = &User{ID: 1, Username: "root", Role: RoleAdmin, IsActive: true}
	agent = &User{ID: 2, Username: "smith", Role: RoleAgent, IsActive: true}
	regular = &User{ID: 3, Username: "neo", Role: RoleUser, IsActive: true}
	return admin, agent, regular
}

func TestAuthorization_ManageGuards(t *testing.T) {
	authz := NewAuthorizationService()
	admin, agent, regular := authzUsers()

	if err := authz.EnsureCanManageUsers(admin); err != nil {
		t.Errorf("admin blocked from managing users: %v", err)
	}
	for _, actor := range []*User{agent, regular} {
		if err := authz.EnsureCanManageUsers(actor); !IsDomainError(err, ErrCodeForbidden) {
			t.Errorf("%s managing users: error = %v, want forbidden", actor.Username, err)
		}
	}

	for _, actor := range []*User{admin, agent} {
		if err := authz.EnsureCanManageTickets(actor); err != nil {
			t.Errorf("%s blocked from managing tickets: %v", actor.Username, err)
		}
	}
	if err := authz.EnsureCanManageTickets(regular); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("regular user managing tickets: error = %v, want forbidden", err)
	}
}

func TestAuthorization_OwnerOrAdmin(t *testing.T) {
	authz := NewAuthorizationService()
	admin, agent, regular := authzUsers()

	if err := authz.EnsureOwnerOrAdmin(regular, regular.ID); err != nil {
		t.Errorf("owner blocked: %v", err)
	}
	if err := authz.EnsureOwnerOrAdmin(admin, regular.ID); err != nil {
		t.Errorf("admin blocked: %v", err)
	}
	if err := authz.EnsureOwnerOrAdmin(agent, regular.ID); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("agent accessing another user's resource: error = %v, want forbidden", err)
	}
}

func TestAuthorization_ChangeRole(t *testing.T) {
	authz := NewAuthorizationService()
	admin, agent, regular := authzUsers()

	if err := authz.EnsureCanChangeRole(admin, regular, RoleAgent); err != nil {
		t.Errorf("admin promoting user: %v", err)
	}
	if err := authz.EnsureCanChangeRole(agent, regular, RoleAgent); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("agent changing roles: error = %v, want forbidden", err)
	}
	// Self-demotion is blocked, self-affirmation is fine.
	if err := authz.EnsureCanChangeRole(admin, admin, RoleUser); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("admin demoting self: error = %v, want forbidden", err)
	}
	if err := authz.EnsureCanChangeRole(admin, admin, RoleAdmin); err != nil {
		t.Errorf("admin keeping own role: %v", err)
	}
}

func TestAuthorization_DeleteUser(t *testing.T) {
	authz := NewAuthorizationService()
	admin, agent, regular := authzUsers()

	if err := authz.EnsureCanDeleteUser(admin, regular.ID); err != nil {
		t.Errorf("admin deleting user: %v", err)
	}
	if err := authz.EnsureCanDeleteUser(admin, admin.ID); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("admin deleting self: error = %v, want forbidden", err)
	}
	if err := authz.EnsureCanDeleteUser(agent, regular.ID); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("agent deleting user: error = %v, want forbidden", err)
	}
}

func TestAuthorization_TicketAssignment(t *testing.T) {
	authz := NewAuthorizationService()
	admin, agent, regular := authzUsers()

	if err := authz.EnsureCanAssignTicket(admin); err != nil {
		t.Errorf("admin assigning: %v", err)
	}
	for _, actor := range []*User{agent, regular} {
		if err := authz.EnsureCanAssignTicket(actor); !IsDomainError(err, ErrCodeForbidden) {
			t.Errorf("%s assigning: error = %v, want forbidden", actor.Username, err)
		}
	}

	if err := authz.EnsureIsActiveAgent(agent); err != nil {
		t.Errorf("active agent rejected as target: %v", err)
	}
	if err := authz.EnsureIsActiveAgent(regular); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("non-agent target: error = %v, want forbidden", err)
	}
	if err := authz.EnsureIsActiveAgent(admin); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("admin target: error = %v, want forbidden", err)
	}
	inactive := &User{ID: 9, Username: "gone", Role: RoleAgent, IsActive: false}
	if err := authz.EnsureIsActiveAgent(inactive); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("inactive agent target: error = %v, want forbidden", err)
	}
}

func TestAuthorization_TicketThreadAccess(t *testing.T) {
	authz := NewAuthorizationService()
	admin, agent, regular := authzUsers()
	outsider := &User{ID: 8, Username: "eve", Role: RoleUser, IsActive: true}

	createdBy := regular.ID
	assignedTo := agent.ID

	tests := []struct {
		name    string
		actor   *User
		allowed bool
	}{
		{"creator", regular, true},
		{"assignee", agent, true},
		{"admin", admin, true},
		{"outsider", outsider, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replyErr := authz.EnsureCanReplyTicket(tt.actor, createdBy, &assignedTo)
			accessErr := authz.EnsureCanAccessTicket(tt.actor, createdBy, &assignedTo)
			attachErr := authz.EnsureCanAttachFile(tt.actor, createdBy, &assignedTo)

			if tt.allowed {
				if replyErr != nil || accessErr != nil || attachErr != nil {
					t.Errorf("blocked: reply=%v access=%v attach=%v", replyErr, accessErr, attachErr)
				}
				return
			}
			for name, err := range map[string]error{"reply": replyErr, "access": accessErr, "attach": attachErr} {
				if !IsDomainError(err, ErrCodeForbidden) {
					t.Errorf("%s error = %v, want forbidden", name, err)
				}
			}
		})
	}

	// With no assignee only the creator and admins get through.
	if err := authz.EnsureCanReplyTicket(agent, createdBy, nil); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("unassigned agent replying: error = %v, want forbidden", err)
	}
}

func TestAuthorization_DatasetAccess(t *testing.T) {
	authz := NewAuthorizationService()
	admin, agent, regular := authzUsers()

	if err := authz.EnsureCanAccessDataset(regular, regular.ID); err != nil {
		t.Errorf("owner blocked: %v", err)
	}
	if err := authz.EnsureCanAccessDataset(admin, regular.ID); err != nil {
		t.Errorf("admin blocked: %v", err)
	}
	if err := authz.EnsureCanAccessDataset(agent, regular.ID); !IsDomainError(err, ErrCodeForbidden) {
		t.Errorf("agent accessing foreign dataset: error = %v, want forbidden", err)
	}
}
