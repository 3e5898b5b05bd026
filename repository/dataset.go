package repository

import (
	"context"

	"github.com/deskcore/backend/domain"
)

type DatasetFilter struct {
	OwnerID     int64
	Status      string
	TargetModel string
	Limit       int
	Offset      int
}

type DatasetRepository interface {
	// GetByID loads the dataset; withRows controls whether the ordered row
	// collection is hydrated.
	GetByID(ctx context.Context, id int64, withRows bool) (*domain.Dataset, error)
	List(ctx context.Context, filter DatasetFilter) ([]domain.Dataset, error)
	Count(ctx context.Context, filter DatasetFilter) (int64, error)
	Create(ctx context.Context, dataset *domain.Dataset) error
	Update(ctx context.Context, dataset *domain.Dataset) error
	Delete(ctx context.Context, id int64) error

	AddRow(ctx context.Context, row *domain.DatasetRow) error
	UpdateRow(ctx context.Context, row *domain.DatasetRow) error
	DeleteRow(ctx context.Context, rowID int64) error
	ListRows(ctx context.Context, datasetID int64) ([]domain.DatasetRow, error)
	// ReindexRows persists the dense position sequence after a removal.
	ReindexRows(ctx context.Context, datasetID int64, positions map[int64]int) error
}
