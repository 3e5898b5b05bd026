package domain

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"agent", RoleAgent, false},
		{"user", RoleUser, false},
		{"", "", true},
		{"superuser", "", true},
		{"Admin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewUser(t *testing.T) {
	user, err := NewUser("ada", "ada@example.com", "hash", "", testNow)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if user.Role != RoleUser {
		t.Errorf("default role = %q, want user", user.Role)
	}
	if !user.IsActive {
		t.Error("new user not active")
	}

	if _, err := NewUser("", "a@b.c", "h", RoleUser, testNow); !IsDomainError(err, ErrCodeValidation) {
		t.Errorf("empty username error = %v, want validation", err)
	}
	if _, err := NewUser("ada", "", "h", RoleUser, testNow); !IsDomainError(err, ErrCodeValidation) {
		t.Errorf("empty email error = %v, want validation", err)
	}
}

func TestUser_ChangeRole(t *testing.T) {
	user := &User{ID: 2, Username: "ada", Role: RoleUser}

	user.ChangeRole(RoleAgent, 1, testNow)
	if user.Role != RoleAgent {
		t.Fatalf("role = %q, want agent", user.Role)
	}
	events := user.CollectEvents()
	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	changed, ok := events[0].(UserRoleChanged)
	if !ok {
		t.Fatalf("event type = %T", events[0])
	}
	if changed.OldRole != RoleUser || changed.NewRole != RoleAgent || changed.PerformedBy != 1 {
		t.Errorf("event = %+v", changed)
	}

	// Same role again records nothing.
	before := user.UpdatedAt
	user.ChangeRole(RoleAgent, 1, testNow.Add(time.Hour))
	if n := user.PendingEvents(); n != 0 {
		t.Errorf("no-op role change recorded %d events", n)
	}
	if !user.UpdatedAt.Equal(before) {
		t.Error("no-op role change bumped UpdatedAt")
	}
}

func TestUser_ActivateDeactivate(t *testing.T) {
	user := &User{ID: 3, Username: "bo", Role: RoleAgent, IsActive: true}

	user.Activate(1, testNow)
	if n := user.PendingEvents(); n != 0 {
		t.Errorf("activating an active user recorded %d events", n)
	}

	user.Deactivate(1, testNow)
	if user.IsActive {
		t.Fatal("user still active")
	}
	events := user.CollectEvents()
	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	updated, ok := events[0].(UserUpdated)
	if !ok {
		t.Fatalf("event type = %T", events[0])
	}
	change, ok := updated.Changes["is_active"]
	if !ok || change.Old != true || change.New != false {
		t.Errorf("changes = %+v", updated.Changes)
	}

	user.Deactivate(1, testNow)
	if n := user.PendingEvents(); n != 0 {
		t.Errorf("deactivating an inactive user recorded %d events", n)
	}
}

func TestUser_RoleHelpers(t *testing.T) {
	tests := []struct {
		role        Role
		admin       bool
		agentOrMore bool
	}{
		{RoleAdmin, true, true},
		{RoleAgent, false, true},
		{RoleUser, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			u := &User{Role: tt.role}
			if u.IsAdmin() != tt.admin {
				t.Errorf("IsAdmin() = %v, want %v", u.IsAdmin(), tt.admin)
			}
			if u.IsAgentOrAbove() != tt.agentOrMore {
				t.Errorf("IsAgentOrAbove() = %v, want %v", u.IsAgentOrAbove(), tt.agentOrMore)
			}
			if u.CanManageUsers() != tt.admin {
				t.Errorf("CanManageUsers() = %v, want %v", u.CanManageUsers(), tt.admin)
			}
			if u.CanManageTickets() != tt.agentOrMore {
				t.Errorf("CanManageTickets() = %v, want %v", u.CanManageTickets(), tt.agentOrMore)
			}
		})
	}

	var nilUser *User
	if nilUser.IsAdmin() || nilUser.IsAgentOrAbove() {
		t.Error("nil user passed role checks")
	}
}
