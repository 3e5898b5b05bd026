package services

import (
	"context"
	"errors"
	"testing"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
)

type fakeLifecycle struct {
	pending     []int64
	listErr     error
	transitions []struct {
		id   int64
		next domain.DatasetStatus
	}
	failClaim map[int64]error
}

func (f *fakeLifecycle) ListPending(context.Context, int) ([]int64, error) {
	return f.pending, f.listErr
}

func (f *fakeLifecycle) SystemTransition(_ context.Context, id int64, next domain.DatasetStatus) (*domain.Dataset, error) {
	if next == domain.DatasetProcessing {
		if err, ok := f.failClaim[id]; ok {
			return nil, err
		}
	}
	f.transitions = append(f.transitions, struct {
		id   int64
		next domain.DatasetStatus
	}{id, next})
	return &domain.Dataset{ID: id, Status: next}, nil
}

type fakeDatasetReader struct {
	repository.DatasetRepository
	byID map[int64]*domain.Dataset
}

func (f *fakeDatasetReader) GetByID(_ context.Context, id int64, _ bool) (*domain.Dataset, error) {
	dataset, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrDatasetNotFound
	}
	return dataset, nil
}

type fixedHealth bool

func (h fixedHealth) IsOnline() bool { return bool(h) }

func validDataset(id int64) *domain.Dataset {
	return &domain.Dataset{
		ID:     id,
		Name:   "support-faq",
		Status: domain.DatasetProcessing,
		Rows: []domain.DatasetRow{
			{ID: 1, DatasetID: id, Prompt: "How do I reset my password?", Response: "Use the reset link."},
		},
	}
}

func lastTransition(f *fakeLifecycle, id int64) (domain.DatasetStatus, bool) {
	for i := len(f.transitions) - 1; i >= 0; i-- {
		if f.transitions[i].id == id {
			return f.transitions[i].next, true
		}
	}
	return "", false
}

func TestFinetuneWorker_RunOnceCompletes(t *testing.T) {
	lifecycle := &fakeLifecycle{pending: []int64{1}}
	reader := &fakeDatasetReader{byID: map[int64]*domain.Dataset{1: validDataset(1)}}
	worker := NewFinetuneWorker(lifecycle, reader, nil, fixedHealth(true), nil, FinetuneConfig{})

	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	status, ok := lastTransition(lifecycle, 1)
	if !ok || status != domain.DatasetCompleted {
		t.Errorf("final status = %v, want completed", status)
	}
	if lifecycle.transitions[0].next != domain.DatasetProcessing {
		t.Errorf("first transition = %v, want processing", lifecycle.transitions[0].next)
	}
}

func TestFinetuneWorker_EmptyDatasetFails(t *testing.T) {
	empty := validDataset(2)
	empty.Rows = nil
	lifecycle := &fakeLifecycle{pending: []int64{2}}
	reader := &fakeDatasetReader{byID: map[int64]*domain.Dataset{2: empty}}
	worker := NewFinetuneWorker(lifecycle, reader, nil, fixedHealth(true), nil, FinetuneConfig{})

	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	status, ok := lastTransition(lifecycle, 2)
	if !ok || status != domain.DatasetFailed {
		t.Errorf("final status = %v, want failed", status)
	}
}

func TestFinetuneWorker_TrainErrorFails(t *testing.T) {
	lifecycle := &fakeLifecycle{pending: []int64{3}}
	reader := &fakeDatasetReader{byID: map[int64]*domain.Dataset{3: validDataset(3)}}
	train := func(context.Context, *domain.Dataset) error { return errors.New("backend unavailable") }
	worker := NewFinetuneWorker(lifecycle, reader, train, fixedHealth(true), nil, FinetuneConfig{})

	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	status, ok := lastTransition(lifecycle, 3)
	if !ok || status != domain.DatasetFailed {
		t.Errorf("final status = %v, want failed", status)
	}
}

func TestFinetuneWorker_SkipsClaimedDatasets(t *testing.T) {
	lifecycle := &fakeLifecycle{
		pending: []int64{4, 5},
		failClaim: map[int64]error{
			4: domain.NewInvalidTransition("processing", "processing"),
		},
	}
	reader := &fakeDatasetReader{byID: map[int64]*domain.Dataset{5: validDataset(5)}}
	worker := NewFinetuneWorker(lifecycle, reader, nil, fixedHealth(true), nil, FinetuneConfig{})

	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if _, ok := lastTransition(lifecycle, 4); ok {
		t.Error("claimed dataset was still transitioned")
	}
	status, ok := lastTransition(lifecycle, 5)
	if !ok || status != domain.DatasetCompleted {
		t.Errorf("dataset 5 final status = %v, want completed", status)
	}
}

func TestFinetuneWorker_SkipsWhenOffline(t *testing.T) {
	lifecycle := &fakeLifecycle{pending: []int64{6}}
	worker := NewFinetuneWorker(lifecycle, nil, nil, fixedHealth(false), nil, FinetuneConfig{})

	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(lifecycle.transitions) != 0 {
		t.Errorf("transitions = %d, want 0", len(lifecycle.transitions))
	}
}

func TestFinetuneWorker_ListErrorPropagates(t *testing.T) {
	lifecycle := &fakeLifecycle{listErr: errors.New("connection refused")}
	worker := NewFinetuneWorker(lifecycle, nil, nil, fixedHealth(true), nil, FinetuneConfig{})

	if err := worker.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce succeeded, want error")
	}
}
