package domain

import (
	"testing"
	"time"
)

func TestParseDatasetStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    DatasetStatus
		wantErr bool
	}{
		{"pending", DatasetPending, false},
		{"processing", DatasetProcessing, false},
		{"completed", DatasetCompleted, false},
		{"failed", DatasetFailed, false},
		{"", "", true},
		{"running", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDatasetStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDatasetStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDatasetStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDataset_TransitionStatus(t *testing.T) {
	tests := []struct {
		name string
		from DatasetStatus
		to   DatasetStatus
		ok   bool
	}{
		{"pending claimed", DatasetPending, DatasetProcessing, true},
		{"pending straight to completed", DatasetPending, DatasetCompleted, false},
		{"pending straight to failed", DatasetPending, DatasetFailed, false},
		{"processing succeeded", DatasetProcessing, DatasetCompleted, true},
		{"processing failed", DatasetProcessing, DatasetFailed, true},
		{"processing back to pending", DatasetProcessing, DatasetPending, false},
		{"failed retried", DatasetFailed, DatasetPending, true},
		{"failed to processing directly", DatasetFailed, DatasetProcessing, false},
		{"completed is terminal", DatasetCompleted, DatasetPending, false},
		{"completed to processing", DatasetCompleted, DatasetProcessing, false},
		{"completed to failed", DatasetCompleted, DatasetFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset := &Dataset{ID: 1, Status: tt.from}
			err := dataset.TransitionStatus(tt.to, testNow)

			if tt.ok {
				if err != nil {
					t.Fatalf("TransitionStatus(%q) from %q: %v", tt.to, tt.from, err)
				}
				if dataset.Status != tt.to {
					t.Errorf("status = %q, want %q", dataset.Status, tt.to)
				}
				events := dataset.CollectEvents()
				if len(events) != 1 {
					t.Fatalf("recorded %d events, want 1", len(events))
				}
				changed, ok := events[0].(DatasetStatusChanged)
				if !ok {
					t.Fatalf("event type = %T", events[0])
				}
				if changed.OldStatus != tt.from || changed.NewStatus != tt.to {
					t.Errorf("event = %+v", changed)
				}
				return
			}

			if !IsDomainError(err, ErrCodeInvalidTransition) {
				t.Fatalf("error = %v, want invalid transition", err)
			}
			if dataset.Status != tt.from {
				t.Errorf("status changed to %q on rejected transition", dataset.Status)
			}
			if n := dataset.PendingEvents(); n != 0 {
				t.Errorf("rejected transition recorded %d events", n)
			}
		})
	}
}

func TestNewDataset(t *testing.T) {
	rows := []DatasetRow{
		{Prompt: "q1", Response: "a1"},
		{Prompt: "q2", Response: "a2"},
	}
	dataset, err := NewDataset("support-intents", "gpt-base", 5, rows, testNow)
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if dataset.Status != DatasetPending {
		t.Errorf("status = %q, want pending", dataset.Status)
	}
	for i, row := range dataset.Rows {
		if row.Position != i {
			t.Errorf("row %d position = %d", i, row.Position)
		}
	}

	if _, err := NewDataset("", "m", 5, nil, testNow); !IsDomainError(err, ErrCodeValidation) {
		t.Errorf("empty name error = %v, want validation", err)
	}
	if _, err := NewDataset("n", "m", 5, []DatasetRow{{Prompt: "q"}}, testNow); !IsDomainError(err, ErrCodeValidation) {
		t.Errorf("row without response error = %v, want validation", err)
	}
}

func TestDataset_RowLifecycle(t *testing.T) {
	dataset, err := NewDataset("rows", "m", 1, nil, testNow)
	if err != nil {
		t.Fatal(err)
	}
	dataset.ID = 10

	first, err := dataset.AddRow(DatasetRow{ID: 101, Prompt: "p1", Response: "r1"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	second, err := dataset.AddRow(DatasetRow{ID: 102, Prompt: "p2", Response: "r2"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	third, err := dataset.AddRow(DatasetRow{ID: 103, Prompt: "p3", Response: "r3"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if first.Position != 0 || second.Position != 1 || third.Position != 2 {
		t.Fatalf("positions = %d %d %d", first.Position, second.Position, third.Position)
	}
	if first.DatasetID != 10 {
		t.Errorf("row DatasetID = %d, want 10", first.DatasetID)
	}

	if _, err := dataset.AddRow(DatasetRow{Prompt: "", Response: "r"}, testNow); !IsDomainError(err, ErrCodeValidation) {
		t.Errorf("invalid row error = %v, want validation", err)
	}

	// Update keeps position and created timestamp.
	if err := dataset.UpdateRow(DatasetRow{ID: 102, Prompt: "p2b", Response: "r2b", Position: 99}, testNow); err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}
	if dataset.Rows[1].Prompt != "p2b" || dataset.Rows[1].Position != 1 {
		t.Errorf("updated row = %+v", dataset.Rows[1])
	}
	if err := dataset.UpdateRow(DatasetRow{ID: 999, Prompt: "p", Response: "r"}, testNow); !IsDomainError(err, ErrCodeNotFound) {
		t.Errorf("unknown row error = %v, want not found", err)
	}

	// Removing the middle row closes the gap.
	if err := dataset.RemoveRow(102, testNow); err != nil {
		t.Fatalf("RemoveRow: %v", err)
	}
	if len(dataset.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(dataset.Rows))
	}
	for i, row := range dataset.Rows {
		if row.Position != i {
			t.Errorf("row %d position = %d after removal", i, row.Position)
		}
	}
	if dataset.Rows[0].ID != 101 || dataset.Rows[1].ID != 103 {
		t.Errorf("remaining rows = %d, %d", dataset.Rows[0].ID, dataset.Rows[1].ID)
	}

	if err := dataset.RemoveRow(102, testNow); !IsDomainError(err, ErrCodeNotFound) {
		t.Errorf("removing missing row error = %v, want not found", err)
	}
}

func TestDatasetRow_Validate(t *testing.T) {
	if err := (&DatasetRow{Prompt: "q", Response: "a"}).Validate(); err != nil {
		t.Errorf("valid row rejected: %v", err)
	}
	if err := (&DatasetRow{Response: "a"}).Validate(); !IsDomainError(err, ErrCodeValidation) {
		t.Error("row without prompt accepted")
	}
	if err := (&DatasetRow{Prompt: "q"}).Validate(); !IsDomainError(err, ErrCodeValidation) {
		t.Error("row without response accepted")
	}
}

func TestDataset_UpdatedAtAdvances(t *testing.T) {
	dataset, err := NewDataset("clock", "m", 1, nil, testNow)
	if err != nil {
		t.Fatal(err)
	}
	later := testNow.Add(time.Minute)
	if _, err := dataset.AddRow(DatasetRow{ID: 1, Prompt: "p", Response: "r"}, later); err != nil {
		t.Fatal(err)
	}
	if !dataset.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", dataset.UpdatedAt, later)
	}
}
