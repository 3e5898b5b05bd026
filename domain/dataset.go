package domain

import "time"

// DatasetStatus is the closed set of fine-tuning states.
type DatasetStatus string

const (
	DatasetPending    DatasetStatus = "pending"
	DatasetProcessing DatasetStatus = "processing"
	DatasetCompleted  DatasetStatus = "completed"
	DatasetFailed     DatasetStatus = "failed"
)

// ParseDatasetStatus validates a wire-level status string.
func ParseDatasetStatus(s string) (DatasetStatus, error) {
	switch DatasetStatus(s) {
	case DatasetPending, DatasetProcessing, DatasetCompleted, DatasetFailed:
		return DatasetStatus(s), nil
	}
	return "", NewValidation("unknown dataset status %q", s)
}

// datasetTransitions is the fine-tuning transition table. failed -> pending is
// the explicit retry path; completed is terminal.
var datasetTransitions = map[DatasetStatus][]DatasetStatus{
	DatasetPending:    {DatasetProcessing},
	DatasetProcessing: {DatasetCompleted, DatasetFailed},
	DatasetFailed:     {DatasetPending},
	DatasetCompleted:  {},
}

// DatasetRow is one prompt/response example owned by exactly one dataset.
type DatasetRow struct {
	ID        int64
	DatasetID int64
	Prompt    string
	Response  string
	Category  string
	Semantics string
	Position  int
	CreatedAt time.Time
}

// Validate checks row invariants.
func (r *DatasetRow) Validate() error {
	if r == nil || r.Prompt == "" {
		return NewValidation("row prompt must not be empty")
	}
	if r.Response == "" {
		return NewValidation("row response must not be empty")
	}
	return nil
}

// Dataset is an LLM fine-tuning dataset: a named, owned collection of ordered
// rows moving through the fine-tuning state machine.
type Dataset struct {
	Recorder

	ID          int64
	OwnerID     int64
	Name        string
	TargetModel string
	Status      DatasetStatus
	Metadata    map[string]string
	Rows        []DatasetRow
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDataset builds a pending dataset, validating and positioning any initial
// rows.
func NewDataset(name, targetModel string, ownerID int64, rows []DatasetRow, now time.Time) (*Dataset, error) {
	if name == "" {
		return nil, NewValidation("dataset name must not be empty")
	}
	d := &Dataset{
		OwnerID:     ownerID,
		Name:        name,
		TargetModel: targetModel,
		Status:      DatasetPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return nil, err
		}
		rows[i].Position = i
		d.Rows = append(d.Rows, rows[i])
	}
	return d, nil
}

// CanTransitionTo reports whether the requested edge exists.
func (d *Dataset) CanTransitionTo(next DatasetStatus) bool {
	for _, allowed := range datasetTransitions[d.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionStatus moves the dataset along the fine-tuning state machine. On
// an invalid edge the dataset is left unmodified and no event is recorded.
func (d *Dataset) TransitionStatus(next DatasetStatus, now time.Time) error {
	if !d.CanTransitionTo(next) {
		return NewInvalidTransition(string(d.Status), string(next))
	}
	old := d.Status
	d.Status = next
	d.UpdatedAt = now
	d.record(DatasetStatusChanged{
		Occurrence: newOccurrence(now),
		DatasetID:  d.ID,
		OldStatus:  old,
		NewStatus:  next,
	})
	return nil
}

// AddRow validates and appends a row at the next position. Row mutations
// bypass the status machine.
func (d *Dataset) AddRow(row DatasetRow, now time.Time) (DatasetRow, error) {
	if err := row.Validate(); err != nil {
		return DatasetRow{}, err
	}
	row.DatasetID = d.ID
	row.Position = len(d.Rows)
	d.Rows = append(d.Rows, row)
	d.UpdatedAt = now
	return row, nil
}

// UpdateRow replaces the row with the given id, keeping its position.
func (d *Dataset) UpdateRow(row DatasetRow, now time.Time) error {
	if err := row.Validate(); err != nil {
		return err
	}
	for i := range d.Rows {
		if d.Rows[i].ID == row.ID {
			row.DatasetID = d.ID
			row.Position = d.Rows[i].Position
			row.CreatedAt = d.Rows[i].CreatedAt
			d.Rows[i] = row
			d.UpdatedAt = now
			return nil
		}
	}
	return ErrDatasetRowNotFound
}

// RemoveRow deletes the row with the given id and re-indexes the remaining
// rows to a dense 0..n-1 position sequence.
func (d *Dataset) RemoveRow(rowID int64, now time.Time) error {
	idx := -1
	for i := range d.Rows {
		if d.Rows[i].ID == rowID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrDatasetRowNotFound
	}
	d.Rows = append(d.Rows[:idx], d.Rows[idx+1:]...)
	for i := range d.Rows {
		d.Rows[i].Position = i
	}
	d.UpdatedAt = now
	return nil
}

// RecordCreation is called once the repository has assigned an id.
func (d *Dataset) RecordCreation(now time.Time) {
	d.record(DatasetCreated{
		Occurrence:  newOccurrence(now),
		DatasetID:   d.ID,
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		TargetModel: d.TargetModel,
	})
}

// RecordUpdate registers a generic field-level update.
func (d *Dataset) RecordUpdate(changes ChangeSet, performedBy int64, now time.Time) {
	if len(changes) == 0 {
		return
	}
	d.record(DatasetUpdated{
		Occurrence:  newOccurrence(now),
		DatasetID:   d.ID,
		Changes:     changes,
		PerformedBy: performedBy,
	})
}

// RecordDeletion registers the deletion fact before the row is removed.
func (d *Dataset) RecordDeletion(performedBy int64, now time.Time) {
	d.record(DatasetDeleted{
		Occurrence:  newOccurrence(now),
		DatasetID:   d.ID,
		PerformedBy: performedBy,
	})
}
