package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deskcore/backend/domain"
)

type stubEvent struct {
	id string
	t  domain.EventType
}

func (e stubEvent) EventID() string            { return e.id }
func (e stubEvent) EventType() domain.EventType { return e.t }
func (e stubEvent) OccurredAt() time.Time       { return time.Time{} }

func TestEventDispatcher_Order(t *testing.T) {
	d := NewEventDispatcher(nil)

	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.Register(domain.EventTicketCreated, EventHandler{
			Name: name,
			Fn: func(context.Context, domain.Event) error {
				calls = append(calls, name)
				return nil
			},
		})
	}

	d.Dispatch(context.Background(), []domain.Event{stubEvent{id: "e1", t: domain.EventTicketCreated}})

	want := []string{"first", "second", "third"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestEventDispatcher_ExactTypeMatch(t *testing.T) {
	d := NewEventDispatcher(nil)

	var got int
	d.Register(domain.EventTicketCreated, EventHandler{
		Name: "counter",
		Fn: func(context.Context, domain.Event) error {
			got++
			return nil
		},
	})

	d.Dispatch(context.Background(), []domain.Event{
		stubEvent{id: "a", t: domain.EventTicketCreated},
		stubEvent{id: "b", t: domain.EventTicketDeleted},
		stubEvent{id: "c", t: domain.EventDatasetCreated},
	})

	if got != 1 {
		t.Errorf("handler ran %d times, want 1", got)
	}
}

func TestEventDispatcher_HandlerFailureIsIsolated(t *testing.T) {
	d := NewEventDispatcher(nil)

	var after []string
	d.Register(domain.EventUserCreated, EventHandler{
		Name: "boom",
		Fn: func(context.Context, domain.Event) error {
			return errors.New("handler exploded")
		},
	})
	d.Register(domain.EventUserCreated, EventHandler{
		Name: "survivor",
		Fn: func(_ context.Context, e domain.Event) error {
			after = append(after, e.EventID())
			return nil
		},
	})

	d.Dispatch(context.Background(), []domain.Event{
		stubEvent{id: "e1", t: domain.EventUserCreated},
		stubEvent{id: "e2", t: domain.EventUserCreated},
	})

	if len(after) != 2 || after[0] != "e1" || after[1] != "e2" {
		t.Errorf("later handler saw %v, want both events", after)
	}
}
