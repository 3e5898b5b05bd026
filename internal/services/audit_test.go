package services

import (
	"context"
	"testing"
	"time"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
	"github.com/deskcore/backend/usecase"
)

type recordingAuditRepo struct {
	users    []repository.AuditEntry
	tickets  []repository.AuditEntry
	datasets []repository.AuditEntry
}

func (r *recordingAuditRepo) AppendUserLog(_ context.Context, entry repository.AuditEntry) error {
	r.users = append(r.users, entry)
	return nil
}

func (r *recordingAuditRepo) AppendTicketLog(_ context.Context, entry repository.AuditEntry) error {
	r.tickets = append(r.tickets, entry)
	return nil
}

func (r *recordingAuditRepo) AppendDatasetLog(_ context.Context, entry repository.AuditEntry) error {
	r.datasets = append(r.datasets, entry)
	return nil
}

func TestAuditWriter_RoutesEventsToTables(t *testing.T) {
	repo := &recordingAuditRepo{}
	writer := NewAuditWriter(repo, nil)
	at := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	occ := domain.Occurrence{ID: "evt-1", At: at}

	events := []domain.Event{
		domain.UserRoleChanged{Occurrence: occ, UserID: 7, OldRole: domain.RoleUser, NewRole: domain.RoleAgent, PerformedBy: 1},
		domain.TicketStatusChanged{Occurrence: occ, TicketID: 9, OldStatus: domain.TicketOpen, NewStatus: domain.TicketInProgress, ChangedBy: 2},
		domain.DatasetStatusChanged{Occurrence: occ, DatasetID: 3, OldStatus: domain.DatasetPending, NewStatus: domain.DatasetProcessing},
	}
	for _, event := range events {
		if err := writer.Handle(context.Background(), event); err != nil {
			t.Fatalf("Handle(%s): %v", event.EventType(), err)
		}
	}

	if len(repo.users) != 1 || len(repo.tickets) != 1 || len(repo.datasets) != 1 {
		t.Fatalf("entries = %d/%d/%d, want 1 per table", len(repo.users), len(repo.tickets), len(repo.datasets))
	}

	user := repo.users[0]
	if user.SubjectID != 7 || user.Action != "role_changed" || user.PerformedBy != 1 {
		t.Errorf("user entry = %+v", user)
	}
	if change := user.Changes["role"]; change.Old != "user" || change.New != "agent" {
		t.Errorf("role change = %+v", change)
	}

	ticket := repo.tickets[0]
	if ticket.SubjectID != 9 || ticket.Action != "status_changed" || ticket.PerformedBy != 2 {
		t.Errorf("ticket entry = %+v", ticket)
	}

	dataset := repo.datasets[0]
	if dataset.SubjectID != 3 || dataset.Action != "status_changed" {
		t.Errorf("dataset entry = %+v", dataset)
	}
	if dataset.PerformedBy != 0 {
		t.Errorf("system transition PerformedBy = %d, want 0", dataset.PerformedBy)
	}
	if !dataset.PerformedAt.Equal(at) {
		t.Errorf("PerformedAt = %v, want %v", dataset.PerformedAt, at)
	}
}

func TestAuditWriter_AssigneeChanges(t *testing.T) {
	repo := &recordingAuditRepo{}
	writer := NewAuditWriter(repo, nil)
	agent := int64(5)

	event := domain.TicketAssigned{
		Occurrence:  domain.Occurrence{ID: "evt-2", At: time.Now()},
		TicketID:    4,
		OldAssignee: nil,
		NewAssignee: &agent,
		AssignedBy:  1,
	}
	if err := writer.Handle(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	change := repo.tickets[0].Changes["assigned_to"]
	if change.Old != nil {
		t.Errorf("Old = %v, want nil", change.Old)
	}
	if change.New != int64(5) {
		t.Errorf("New = %v, want 5", change.New)
	}
}

func TestRegisterAuditHandlers_CoversDispatch(t *testing.T) {
	repo := &recordingAuditRepo{}
	dispatcher := usecase.NewEventDispatcher(nil)
	RegisterAuditHandlers(dispatcher, NewAuditWriter(repo, nil))

	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	user, err := domain.NewUser("jdoe", "jdoe@example.com", "hash", domain.RoleUser, now)
	if err != nil {
		t.Fatal(err)
	}
	user.ID = 11
	user.RecordCreation(now)

	dispatcher.Dispatch(context.Background(), user.CollectEvents())

	if len(repo.users) != 1 {
		t.Fatalf("user entries = %d, want 1", len(repo.users))
	}
	if repo.users[0].Action != "created" {
		t.Errorf("action = %q, want created", repo.users[0].Action)
	}
}
