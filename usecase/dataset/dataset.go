package dataset

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
	"github.com/deskcore/backend/usecase"
)

type UseCase struct {
	datasets   repository.DatasetRepository
	users      repository.UserRepository
	authz      domain.AuthorizationService
	txm        usecase.TxStarter
	dispatcher *usecase.EventDispatcher
	clock      usecase.Clock
	logger     *zap.Logger
}

func New(
	datasets repository.DatasetRepository,
	users repository.UserRepository,
	txm usecase.TxStarter,
	dispatcher *usecase.EventDispatcher,
	clock usecase.Clock,
	logger *zap.Logger,
) *UseCase {
	if clock == nil {
		clock = usecase.UTCNow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		datasets:   datasets,
		users:      users,
		authz:      domain.NewAuthorizationService(),
		txm:        txm,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

func (uc *UseCase) actor(ctx context.Context, actorID int64) (*domain.User, error) {
	actor, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return actor, nil
}

type RowInput struct {
	Prompt    string
	Response  string
	Category  string
	Semantics string
}

type CreateInput struct {
	Name        string
	TargetModel string
	Metadata    map[string]string
	Rows        []RowInput
}

// Create builds a pending dataset owned by the actor, with zero or more
// initial rows.
func (uc *UseCase) Create(ctx context.Context, actorID int64, input CreateInput) (*domain.Dataset, error) {
	if _, err := uc.actor(ctx, actorID); err != nil {
		return nil, err
	}

	now := uc.clock()
	rows := make([]domain.DatasetRow, 0, len(input.Rows))
	for _, r := range input.Rows {
		rows = append(rows, domain.DatasetRow{
			Prompt:    r.Prompt,
			Response:  r.Response,
			Category:  r.Category,
			Semantics: r.Semantics,
			CreatedAt: now,
		})
	}

	ds, err := domain.NewDataset(input.Name, input.TargetModel, actorID, rows, now)
	if err != nil {
		return nil, err
	}
	ds.Metadata = input.Metadata

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	if err := uc.datasets.Create(txCtx, ds); err != nil {
		return nil, err
	}
	ds.RecordCreation(now)
	uow.CollectEventsFrom(ds)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// Get returns the dataset with rows; owner or admin only.
func (uc *UseCase) Get(ctx context.Context, actorID, datasetID int64) (*domain.Dataset, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ds, err := uc.datasets.GetByID(ctx, datasetID, true)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessDataset(actor, ds.OwnerID); err != nil {
		return nil, err
	}
	return ds, nil
}

// ListResult carries one page plus the unpaged total.
type ListResult struct {
	Datasets []domain.Dataset
	Total    int64
}

// List returns datasets matching the filter. Non-admins are restricted to
// their own datasets.
func (uc *UseCase) List(ctx context.Context, actorID int64, filter repository.DatasetFilter) (*ListResult, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		filter.OwnerID = actor.ID
	}
	datasets, err := uc.datasets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := uc.datasets.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Datasets: datasets, Total: total}, nil
}

type UpdateInput struct {
	DatasetID   int64
	Name        *string
	TargetModel *string
	Metadata    map[string]string
}

// Update mutates dataset fields; owner or admin. Field-level changes are
// recorded for the audit trail.
func (uc *UseCase) Update(ctx context.Context, actorID int64, input UpdateInput) (*domain.Dataset, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ds, err := uc.datasets.GetByID(txCtx, input.DatasetID, false)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessDataset(actor, ds.OwnerID); err != nil {
		return nil, err
	}

	now := uc.clock()
	changes := domain.ChangeSet{}
	if input.Name != nil && *input.Name != ds.Name {
		if *input.Name == "" {
			return nil, domain.NewValidation("dataset name must not be empty")
		}
		changes["name"] = domain.FieldChange{Old: ds.Name, New: *input.Name}
		ds.Name = *input.Name
	}
	if input.TargetModel != nil && *input.TargetModel != ds.TargetModel {
		changes["target_model"] = domain.FieldChange{Old: ds.TargetModel, New: *input.TargetModel}
		ds.TargetModel = *input.TargetModel
	}
	if input.Metadata != nil {
		changes["metadata"] = domain.FieldChange{Old: ds.Metadata, New: input.Metadata}
		ds.Metadata = input.Metadata
	}
	if len(changes) == 0 {
		return ds, nil
	}
	ds.UpdatedAt = now
	ds.RecordUpdate(changes, actorID, now)

	if err := uc.datasets.Update(txCtx, ds); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(ds)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// Transition drives the fine-tuning state machine on behalf of an actor.
func (uc *UseCase) Transition(ctx context.Context, actorID, datasetID int64, next domain.DatasetStatus) (*domain.Dataset, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return uc.transition(ctx, datasetID, next, func(ds *domain.Dataset) error {
		return uc.authz.EnsureCanAccessDataset(actor, ds.OwnerID)
	})
}

// SystemTransition drives the state machine for the processing pipeline,
// which acts with no user identity.
func (uc *UseCase) SystemTransition(ctx context.Context, datasetID int64, next domain.DatasetStatus) (*domain.Dataset, error) {
	return uc.transition(ctx, datasetID, next, nil)
}

func (uc *UseCase) transition(ctx context.Context, datasetID int64, next domain.DatasetStatus, guard func(*domain.Dataset) error) (*domain.Dataset, error) {
	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ds, err := uc.datasets.GetByID(txCtx, datasetID, false)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(ds); err != nil {
			return nil, err
		}
	}
	if err := ds.TransitionStatus(next, uc.clock()); err != nil {
		return nil, err
	}
	if err := uc.datasets.Update(txCtx, ds); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(ds)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// AddRow appends a row at the next position.
func (uc *UseCase) AddRow(ctx context.Context, actorID, datasetID int64, input RowInput) (*domain.DatasetRow, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ds, err := uc.datasets.GetByID(txCtx, datasetID, true)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessDataset(actor, ds.OwnerID); err != nil {
		return nil, err
	}

	now := uc.clock()
	row, err := ds.AddRow(domain.DatasetRow{
		Prompt:    input.Prompt,
		Response:  input.Response,
		Category:  input.Category,
		Semantics: input.Semantics,
		CreatedAt: now,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := uc.datasets.AddRow(txCtx, &row); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateRow replaces a row's text fields, keeping its position.
func (uc *UseCase) UpdateRow(ctx context.Context, actorID, datasetID, rowID int64, input RowInput) (*domain.DatasetRow, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ds, err := uc.datasets.GetByID(txCtx, datasetID, true)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessDataset(actor, ds.OwnerID); err != nil {
		return nil, err
	}

	row := domain.DatasetRow{
		ID:        rowID,
		Prompt:    input.Prompt,
		Response:  input.Response,
		Category:  input.Category,
		Semantics: input.Semantics,
	}
	if err := ds.UpdateRow(row, uc.clock()); err != nil {
		return nil, err
	}
	for i := range ds.Rows {
		if ds.Rows[i].ID == rowID {
			row = ds.Rows[i]
			break
		}
	}
	if err := uc.datasets.UpdateRow(txCtx, &row); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return &row, nil
}

// RemoveRow deletes a row and persists the re-indexed dense positions of the
// remaining rows.
func (uc *UseCase) RemoveRow(ctx context.Context, actorID, datasetID, rowID int64) error {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	ds, err := uc.datasets.GetByID(txCtx, datasetID, true)
	if err != nil {
		return err
	}
	if err := uc.authz.EnsureCanAccessDataset(actor, ds.OwnerID); err != nil {
		return err
	}
	if err := ds.RemoveRow(rowID, uc.clock()); err != nil {
		return err
	}
	if err := uc.datasets.DeleteRow(txCtx, rowID); err != nil {
		return err
	}
	positions := make(map[int64]int, len(ds.Rows))
	for _, row := range ds.Rows {
		positions[row.ID] = row.Position
	}
	if err := uc.datasets.ReindexRows(txCtx, datasetID, positions); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

// Delete removes a dataset; owner or admin. The deletion event is recorded
// before the rows go away.
func (uc *UseCase) Delete(ctx context.Context, actorID, datasetID int64) error {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	ds, err := uc.datasets.GetByID(txCtx, datasetID, false)
	if err != nil {
		return err
	}
	if err := uc.authz.EnsureCanAccessDataset(actor, ds.OwnerID); err != nil {
		return err
	}

	ds.RecordDeletion(actorID, uc.clock())
	if err := uc.datasets.Delete(txCtx, datasetID); err != nil {
		return err
	}
	uow.CollectEventsFrom(ds)
	return uow.Commit(ctx)
}

// ListPending returns ids of datasets awaiting processing, oldest first.
// Used by the fine-tuning worker.
func (uc *UseCase) ListPending(ctx context.Context, limit int) ([]int64, error) {
	datasets, err := uc.datasets.List(ctx, repository.DatasetFilter{
		Status: string(domain.DatasetPending),
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(datasets))
	for _, ds := range datasets {
		ids = append(ids, ds.ID)
	}
	return ids, nil
}
