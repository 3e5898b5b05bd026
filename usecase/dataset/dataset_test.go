package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
	"github.com/deskcore/backend/usecase"
)

var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

type memoryTx struct{}

func (memoryTx) Commit(context.Context) error   { return nil }
func (memoryTx) Rollback(context.Context) error { return nil }

type memoryTxStarter struct{}

func (memoryTxStarter) BeginTx(ctx context.Context) (context.Context, usecase.Tx, error) {
	return ctx, memoryTx{}, nil
}

type memoryUserRepo struct {
	byID map[int64]*domain.User
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) List(context.Context, repository.UserFilter) ([]domain.User, error) {
	return nil, nil
}

func (r *memoryUserRepo) Create(context.Context, *domain.User) error { return nil }
func (r *memoryUserRepo) Update(context.Context, *domain.User) error { return nil }
func (r *memoryUserRepo) Delete(context.Context, int64) error        { return nil }

type memoryDatasetRepo struct {
	byID   map[int64]*domain.Dataset
	nextID int64
}

func newMemoryDatasetRepo() *memoryDatasetRepo {
	return &memoryDatasetRepo{byID: map[int64]*domain.Dataset{}, nextID: 1}
}

func (r *memoryDatasetRepo) clone(ds *domain.Dataset, withRows bool) *domain.Dataset {
	out := *ds
	out.CollectEvents()
	if withRows {
		out.Rows = append([]domain.DatasetRow(nil), ds.Rows...)
	} else {
		out.Rows = nil
	}
	return &out
}

func (r *memoryDatasetRepo) GetByID(_ context.Context, id int64, withRows bool) (*domain.Dataset, error) {
	ds, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDatasetNotFound
	}
	return r.clone(ds, withRows), nil
}

func (r *memoryDatasetRepo) List(_ context.Context, filter repository.DatasetFilter) ([]domain.Dataset, error) {
	var out []domain.Dataset
	for _, ds := range r.byID {
		if filter.OwnerID != 0 && ds.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && string(ds.Status) != filter.Status {
			continue
		}
		out = append(out, *r.clone(ds, false))
	}
	return out, nil
}

func (r *memoryDatasetRepo) Count(ctx context.Context, filter repository.DatasetFilter) (int64, error) {
	datasets, err := r.List(ctx, filter)
	return int64(len(datasets)), err
}

func (r *memoryDatasetRepo) Create(_ context.Context, ds *domain.Dataset) error {
	ds.ID = r.nextID
	r.nextID++
	for i := range ds.Rows {
		ds.Rows[i].ID = r.nextID
		ds.Rows[i].DatasetID = ds.ID
		r.nextID++
	}
	r.byID[ds.ID] = r.clone(ds, true)
	return nil
}

func (r *memoryDatasetRepo) Update(_ context.Context, ds *domain.Dataset) error {
	stored, ok := r.byID[ds.ID]
	if !ok {
		return domain.ErrDatasetNotFound
	}
	rows := stored.Rows
	r.byID[ds.ID] = r.clone(ds, false)
	r.byID[ds.ID].Rows = rows
	return nil
}

func (r *memoryDatasetRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrDatasetNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryDatasetRepo) AddRow(_ context.Context, row *domain.DatasetRow) error {
	ds, ok := r.byID[row.DatasetID]
	if !ok {
		return domain.ErrDatasetNotFound
	}
	row.ID = r.nextID
	r.nextID++
	ds.Rows = append(ds.Rows, *row)
	return nil
}

func (r *memoryDatasetRepo) UpdateRow(_ context.Context, row *domain.DatasetRow) error {
	ds, ok := r.byID[row.DatasetID]
	if !ok {
		return domain.ErrDatasetNotFound
	}
	for i := range ds.Rows {
		if ds.Rows[i].ID == row.ID {
			ds.Rows[i] = *row
			return nil
		}
	}
	return domain.ErrDatasetRowNotFound
}

func (r *memoryDatasetRepo) DeleteRow(_ context.Context, rowID int64) error {
	for _, ds := range r.byID {
		for i := range ds.Rows {
			if ds.Rows[i].ID == rowID {
				ds.Rows = append(ds.Rows[:i], ds.Rows[i+1:]...)
				return nil
			}
		}
	}
	return domain.ErrDatasetRowNotFound
}

func (r *memoryDatasetRepo) ListRows(_ context.Context, datasetID int64) ([]domain.DatasetRow, error) {
	ds, ok := r.byID[datasetID]
	if !ok {
		return nil, domain.ErrDatasetNotFound
	}
	return append([]domain.DatasetRow(nil), ds.Rows...), nil
}

func (r *memoryDatasetRepo) ReindexRows(_ context.Context, datasetID int64, positions map[int64]int) error {
	ds, ok := r.byID[datasetID]
	if !ok {
		return domain.ErrDatasetNotFound
	}
	for i := range ds.Rows {
		if pos, ok := positions[ds.Rows[i].ID]; ok {
			ds.Rows[i].Position = pos
		}
	}
	return nil
}

type testHarness struct {
	uc       *UseCase
	datasets *memoryDatasetRepo
	events   []domain.Event
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	admin := &domain.User{ID: 1, Username: "root", Role: domain.RoleAdmin, IsActive: true}
	owner := &domain.User{ID: 2, Username: "alice", Role: domain.RoleUser, IsActive: true}
	other := &domain.User{ID: 3, Username: "bob", Role: domain.RoleUser, IsActive: true}
	users := &memoryUserRepo{byID: map[int64]*domain.User{1: admin, 2: owner, 3: other}}

	datasets := newMemoryDatasetRepo()
	h := &testHarness{datasets: datasets}

	dispatcher := usecase.NewEventDispatcher(nil)
	record := usecase.EventHandler{
		Name: "recorder",
		Fn: func(_ context.Context, e domain.Event) error {
			h.events = append(h.events, e)
			return nil
		},
	}
	for _, eventType := range []domain.EventType{
		domain.EventDatasetCreated,
		domain.EventDatasetUpdated,
		domain.EventDatasetDeleted,
		domain.EventDatasetStatusChanged,
	} {
		dispatcher.Register(eventType, record)
	}

	h.uc = New(datasets, users, memoryTxStarter{}, dispatcher, testClock, nil)
	return h
}

func (h *testHarness) mustCreate(t *testing.T, ownerID int64, rows ...RowInput) *domain.Dataset {
	t.Helper()
	ds, err := h.uc.Create(context.Background(), ownerID, CreateInput{
		Name:        "support-faq",
		TargetModel: "gpt-4o-mini",
		Rows:        rows,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ds
}

func TestUseCase_CreateEmitsEvent(t *testing.T) {
	h := newHarness(t)

	ds := h.mustCreate(t, 2, RowInput{Prompt: "q", Response: "a"})
	if ds.ID == 0 {
		t.Fatal("dataset id not assigned")
	}
	if ds.Status != domain.DatasetPending {
		t.Errorf("status = %q, want pending", ds.Status)
	}

	if len(h.events) != 1 {
		t.Fatalf("events = %d, want 1", len(h.events))
	}
	created, ok := h.events[0].(domain.DatasetCreated)
	if !ok {
		t.Fatalf("event type = %T", h.events[0])
	}
	if created.DatasetID != ds.ID || created.OwnerID != 2 {
		t.Errorf("event = %+v", created)
	}
}

func TestUseCase_CreateUnknownActor(t *testing.T) {
	h := newHarness(t)
	_, err := h.uc.Create(context.Background(), 99, CreateInput{Name: "x", TargetModel: "m"})
	if !domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
		t.Fatalf("error = %v, want unauthorized", err)
	}
}

func TestUseCase_OwnershipGuard(t *testing.T) {
	h := newHarness(t)
	ds := h.mustCreate(t, 2)

	if _, err := h.uc.Get(context.Background(), 3, ds.ID); !domain.IsDomainError(err, domain.ErrCodeForbidden) {
		t.Errorf("foreign Get: error = %v, want forbidden", err)
	}
	if _, err := h.uc.Get(context.Background(), 1, ds.ID); err != nil {
		t.Errorf("admin Get: %v", err)
	}
	if _, err := h.uc.Get(context.Background(), 2, ds.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}
}

func TestUseCase_ListScopesNonAdmins(t *testing.T) {
	h := newHarness(t)
	h.mustCreate(t, 2)
	h.mustCreate(t, 3)

	mine, err := h.uc.List(context.Background(), 2, repository.DatasetFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if mine.Total != 1 || len(mine.Datasets) != 1 {
		t.Errorf("non-admin sees %d datasets, want 1", mine.Total)
	}

	all, err := h.uc.List(context.Background(), 1, repository.DatasetFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 2 {
		t.Errorf("admin sees %d datasets, want 2", all.Total)
	}
}

func TestUseCase_UpdateRecordsChanges(t *testing.T) {
	h := newHarness(t)
	ds := h.mustCreate(t, 2)
	h.events = nil

	name := "support-faq-v2"
	updated, err := h.uc.Update(context.Background(), 2, UpdateInput{DatasetID: ds.ID, Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != name {
		t.Errorf("name = %q", updated.Name)
	}

	if len(h.events) != 1 {
		t.Fatalf("events = %d, want 1", len(h.events))
	}
	event := h.events[0].(domain.DatasetUpdated)
	if change := event.Changes["name"]; change.Old != "support-faq" || change.New != name {
		t.Errorf("change = %+v", change)
	}

	// Same values again change nothing and emit nothing.
	h.events = nil
	if _, err := h.uc.Update(context.Background(), 2, UpdateInput{DatasetID: ds.ID, Name: &name}); err != nil {
		t.Fatal(err)
	}
	if len(h.events) != 0 {
		t.Errorf("no-op update emitted %d events", len(h.events))
	}
}

func TestUseCase_TransitionLifecycle(t *testing.T) {
	h := newHarness(t)
	ds := h.mustCreate(t, 2)
	h.events = nil
	ctx := context.Background()

	if _, err := h.uc.Transition(ctx, 2, ds.ID, domain.DatasetCompleted); !domain.IsDomainError(err, domain.ErrCodeInvalidTransition) {
		t.Fatalf("pending -> completed: error = %v, want invalid transition", err)
	}

	if _, err := h.uc.SystemTransition(ctx, ds.ID, domain.DatasetProcessing); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := h.uc.SystemTransition(ctx, ds.ID, domain.DatasetProcessing); !domain.IsDomainError(err, domain.ErrCodeInvalidTransition) {
		t.Fatalf("double claim: error = %v, want invalid transition", err)
	}
	if _, err := h.uc.SystemTransition(ctx, ds.ID, domain.DatasetCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(h.events) != 2 {
		t.Fatalf("events = %d, want 2", len(h.events))
	}
	for _, e := range h.events {
		if e.EventType() != domain.EventDatasetStatusChanged {
			t.Errorf("event type = %s", e.EventType())
		}
	}
}

func TestUseCase_RowLifecycle(t *testing.T) {
	h := newHarness(t)
	ds := h.mustCreate(t, 2,
		RowInput{Prompt: "q1", Response: "a1"},
		RowInput{Prompt: "q2", Response: "a2"},
	)
	ctx := context.Background()

	added, err := h.uc.AddRow(ctx, 2, ds.ID, RowInput{Prompt: "q3", Response: "a3"})
	if err != nil {
		t.Fatal(err)
	}
	if added.Position != 2 {
		t.Errorf("new row position = %d, want 2", added.Position)
	}

	if _, err := h.uc.AddRow(ctx, 2, ds.ID, RowInput{Prompt: "", Response: "a"}); !domain.IsDomainError(err, domain.ErrCodeValidation) {
		t.Errorf("invalid row: error = %v, want validation", err)
	}

	if err := h.uc.RemoveRow(ctx, 2, ds.ID, added.ID); err != nil {
		t.Fatal(err)
	}
	rows, err := h.datasets.ListRows(ctx, ds.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for i, row := range rows {
		if row.Position != i {
			t.Errorf("row %d position = %d", i, row.Position)
		}
	}
}

func TestUseCase_DeleteEmitsEvent(t *testing.T) {
	h := newHarness(t)
	ds := h.mustCreate(t, 2)
	h.events = nil

	if err := h.uc.Delete(context.Background(), 3, ds.ID); !domain.IsDomainError(err, domain.ErrCodeForbidden) {
		t.Fatalf("foreign delete: error = %v, want forbidden", err)
	}
	if err := h.uc.Delete(context.Background(), 2, ds.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.datasets.GetByID(context.Background(), ds.ID, false); err == nil {
		t.Error("dataset still present after delete")
	}
	if len(h.events) != 1 || h.events[0].EventType() != domain.EventDatasetDeleted {
		t.Errorf("events = %v", h.events)
	}
}

func TestUseCase_ListPending(t *testing.T) {
	h := newHarness(t)
	a := h.mustCreate(t, 2)
	b := h.mustCreate(t, 3)
	if _, err := h.uc.SystemTransition(context.Background(), b.ID, domain.DatasetProcessing); err != nil {
		t.Fatal(err)
	}

	ids, err := h.uc.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != a.ID {
		t.Errorf("pending ids = %v, want [%d]", ids, a.ID)
	}
}
