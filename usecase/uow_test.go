package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deskcore/backend/domain"
)

type fakeTx struct {
	commits   int
	rollbacks int
	commitErr error
}

func (t *fakeTx) Commit(context.Context) error   { t.commits++; return t.commitErr }
func (t *fakeTx) Rollback(context.Context) error { t.rollbacks++; return nil }

type fakeStarter struct {
	tx  *fakeTx
	err error
}

func (s *fakeStarter) BeginTx(ctx context.Context) (context.Context, Tx, error) {
	if s.err != nil {
		return ctx, nil, s.err
	}
	return ctx, s.tx, nil
}

func newTicketWithEvents(t *testing.T, n int) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{ID: 1, Status: domain.TicketOpen}
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ticket.RecordUpdate(domain.ChangeSet{"title": {Old: "a", New: "b"}}, 1, now)
	}
	return ticket
}

func TestUnitOfWork_CommitThenDispatch(t *testing.T) {
	tx := &fakeTx{}
	dispatcher := NewEventDispatcher(nil)

	var dispatched []string
	dispatcher.Register(domain.EventTicketUpdated, EventHandler{
		Name: "recorder",
		Fn: func(_ context.Context, e domain.Event) error {
			if tx.commits == 0 {
				t.Error("handler ran before commit")
			}
			dispatched = append(dispatched, e.EventID())
			return nil
		},
	})

	_, uow, err := Begin(context.Background(), &fakeStarter{tx: tx}, dispatcher, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer uow.Rollback(context.Background())

	uow.CollectEventsFrom(newTicketWithEvents(t, 3))
	if uow.Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", uow.Pending())
	}

	if err := uow.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(dispatched) != 3 {
		t.Errorf("dispatched %d events, want 3", len(dispatched))
	}
	if uow.Pending() != 0 {
		t.Errorf("Pending after commit = %d", uow.Pending())
	}

	// The deferred rollback after a successful commit must not touch the tx.
	uow.Rollback(context.Background())
	if tx.rollbacks != 0 {
		t.Errorf("rollback ran %d times after commit", tx.rollbacks)
	}
	if tx.commits != 1 {
		t.Errorf("commit ran %d times", tx.commits)
	}
}

func TestUnitOfWork_CommitFailureSkipsDispatch(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("deadlock")}
	dispatcher := NewEventDispatcher(nil)

	var dispatched int
	dispatcher.Register(domain.EventTicketUpdated, EventHandler{
		Name: "recorder",
		Fn: func(context.Context, domain.Event) error {
			dispatched++
			return nil
		},
	})

	_, uow, err := Begin(context.Background(), &fakeStarter{tx: tx}, dispatcher, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	uow.CollectEventsFrom(newTicketWithEvents(t, 2))

	if err := uow.Commit(context.Background()); err == nil {
		t.Fatal("Commit succeeded, want error")
	}
	if dispatched != 0 {
		t.Errorf("dispatched %d events after failed commit", dispatched)
	}

	// Failed commit leaves the unit open; rollback still runs.
	uow.Rollback(context.Background())
	if tx.rollbacks != 1 {
		t.Errorf("rollbacks = %d, want 1", tx.rollbacks)
	}
}

func TestUnitOfWork_RollbackDropsEvents(t *testing.T) {
	tx := &fakeTx{}
	dispatcher := NewEventDispatcher(nil)

	var dispatched int
	dispatcher.Register(domain.EventTicketUpdated, EventHandler{
		Name: "recorder",
		Fn: func(context.Context, domain.Event) error {
			dispatched++
			return nil
		},
	})

	_, uow, err := Begin(context.Background(), &fakeStarter{tx: tx}, dispatcher, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	uow.CollectEventsFrom(newTicketWithEvents(t, 2))

	uow.Rollback(context.Background())
	if dispatched != 0 {
		t.Errorf("dispatched %d events after rollback", dispatched)
	}
	if uow.Pending() != 0 {
		t.Errorf("Pending after rollback = %d", uow.Pending())
	}
	if tx.rollbacks != 1 {
		t.Errorf("rollbacks = %d, want 1", tx.rollbacks)
	}

	// Second rollback is a no-op.
	uow.Rollback(context.Background())
	if tx.rollbacks != 1 {
		t.Errorf("rollbacks after second call = %d, want 1", tx.rollbacks)
	}
}

func TestUnitOfWork_BeginFailure(t *testing.T) {
	_, _, err := Begin(context.Background(), &fakeStarter{err: errors.New("pool closed")}, nil, nil)
	if err == nil {
		t.Fatal("Begin succeeded, want error")
	}
}

func TestUnitOfWork_CollectPreservesOrder(t *testing.T) {
	tx := &fakeTx{}
	dispatcher := NewEventDispatcher(nil)

	var order []domain.EventType
	handler := EventHandler{
		Name: "order",
		Fn: func(_ context.Context, e domain.Event) error {
			order = append(order, e.EventType())
			return nil
		},
	}
	dispatcher.Register(domain.EventTicketCreated, handler)
	dispatcher.Register(domain.EventTicketStatusChanged, handler)

	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{ID: 1, Status: domain.TicketOpen}
	ticket.RecordCreation(now)
	if err := ticket.TransitionTo(domain.TicketInProgress, 1, now); err != nil {
		t.Fatal(err)
	}

	_, uow, err := Begin(context.Background(), &fakeStarter{tx: tx}, dispatcher, nil)
	if err != nil {
		t.Fatal(err)
	}
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != domain.EventTicketCreated || order[1] != domain.EventTicketStatusChanged {
		t.Errorf("dispatch order = %v", order)
	}
}
