package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskcore/backend/domain"
	pgInfra "github.com/deskcore/backend/internal/infrastructure/postgres"
	"github.com/deskcore/backend/repository"
)

type datasetRepository struct {
	pool *pgxpool.Pool
}

// NewDatasetRepository returns a Postgres-backed implementation of
// DatasetRepository. Rows live in their own table keyed by dataset and
// ordered by position.
func NewDatasetRepository(pool *pgxpool.Pool) repository.DatasetRepository {
	return &datasetRepository{pool: pool}
}

const datasetColumns = `id, owner_id, name, target_model, status, metadata, created_at, updated_at`

func (r *datasetRepository) GetByID(ctx context.Context, id int64, withRows bool) (*domain.Dataset, error) {
	const query = `SELECT ` + datasetColumns + ` FROM llm_datasets WHERE id = $1`
	dataset, err := scanDataset(pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if withRows {
		rows, err := r.ListRows(ctx, dataset.ID)
		if err != nil {
			return nil, err
		}
		dataset.Rows = rows
	}
	return dataset, nil
}

func (r *datasetRepository) List(ctx context.Context, filter repository.DatasetFilter) ([]domain.Dataset, error) {
	const query = `
	SELECT ` + datasetColumns + `
	FROM llm_datasets
	WHERE ($1 = 0 OR owner_id = $1)
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR target_model = $3)
	ORDER BY created_at DESC
	LIMIT $4 OFFSET $5
	`
	rows, err := pgInfra.QuerierFrom(ctx, r.pool).Query(ctx, query,
		filter.OwnerID, filter.Status, filter.TargetModel,
		clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []domain.Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, *dataset)
	}
	return datasets, rows.Err()
}

func (r *datasetRepository) Count(ctx context.Context, filter repository.DatasetFilter) (int64, error) {
	const query = `
	SELECT COUNT(*)
	FROM llm_datasets
	WHERE ($1 = 0 OR owner_id = $1)
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR target_model = $3)
	`
	var count int64
	err := pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		filter.OwnerID, filter.Status, filter.TargetModel).Scan(&count)
	return count, err
}

func (r *datasetRepository) Create(ctx context.Context, dataset *domain.Dataset) error {
	if dataset == nil {
		return domain.ErrInvalidPayload
	}

	metadata, err := marshalMap(dataset.Metadata)
	if err != nil {
		return err
	}

	const query = `
	INSERT INTO llm_datasets (owner_id, name, target_model, status, metadata, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), COALESCE($6, NOW()))
	RETURNING id, created_at, updated_at
	`
	q := pgInfra.QuerierFrom(ctx, r.pool)
	if err := q.QueryRow(ctx, query,
		dataset.OwnerID,
		dataset.Name,
		dataset.TargetModel,
		string(dataset.Status),
		metadata,
		nullTime(dataset.CreatedAt),
	).Scan(&dataset.ID, &dataset.CreatedAt, &dataset.UpdatedAt); err != nil {
		return err
	}

	for i := range dataset.Rows {
		dataset.Rows[i].DatasetID = dataset.ID
		if err := r.AddRow(ctx, &dataset.Rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *datasetRepository) Update(ctx context.Context, dataset *domain.Dataset) error {
	if dataset == nil {
		return domain.ErrInvalidPayload
	}

	metadata, err := marshalMap(dataset.Metadata)
	if err != nil {
		return err
	}

	const query = `
	UPDATE llm_datasets
	SET name = $2,
		target_model = $3,
		status = $4,
		metadata = $5,
		updated_at = $6
	WHERE id = $1
	RETURNING updated_at
	`
	if err := pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		dataset.ID,
		dataset.Name,
		dataset.TargetModel,
		string(dataset.Status),
		metadata,
		dataset.UpdatedAt,
	).Scan(&dataset.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrDatasetNotFound
		}
		return err
	}
	return nil
}

func (r *datasetRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pgInfra.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM llm_datasets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDatasetNotFound
	}
	return nil
}

func (r *datasetRepository) AddRow(ctx context.Context, row *domain.DatasetRow) error {
	if row == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO dataset_rows (dataset_id, prompt, response, category, semantics, position, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
	RETURNING id, created_at
	`
	return pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		row.DatasetID,
		row.Prompt,
		row.Response,
		row.Category,
		row.Semantics,
		row.Position,
		nullTime(row.CreatedAt),
	).Scan(&row.ID, &row.CreatedAt)
}

func (r *datasetRepository) UpdateRow(ctx context.Context, row *domain.DatasetRow) error {
	if row == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE dataset_rows
	SET prompt = $2,
		response = $3,
		category = $4,
		semantics = $5,
		position = $6
	WHERE id = $1
	`
	tag, err := pgInfra.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		row.ID, row.Prompt, row.Response, row.Category, row.Semantics, row.Position)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDatasetRowNotFound
	}
	return nil
}

func (r *datasetRepository) DeleteRow(ctx context.Context, rowID int64) error {
	tag, err := pgInfra.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM dataset_rows WHERE id = $1`, rowID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDatasetRowNotFound
	}
	return nil
}

func (r *datasetRepository) ListRows(ctx context.Context, datasetID int64) ([]domain.DatasetRow, error) {
	const query = `
	SELECT id, dataset_id, prompt, response, category, semantics, position, created_at
	FROM dataset_rows
	WHERE dataset_id = $1
	ORDER BY position, id
	`
	rows, err := pgInfra.QuerierFrom(ctx, r.pool).Query(ctx, query, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DatasetRow
	for rows.Next() {
		var row domain.DatasetRow
		if err := rows.Scan(&row.ID, &row.DatasetID, &row.Prompt, &row.Response, &row.Category, &row.Semantics, &row.Position, &row.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *datasetRepository) ReindexRows(ctx context.Context, datasetID int64, positions map[int64]int) error {
	const query = `UPDATE dataset_rows SET position = $3 WHERE id = $1 AND dataset_id = $2`
	q := pgInfra.QuerierFrom(ctx, r.pool)
	for rowID, position := range positions {
		if _, err := q.Exec(ctx, query, rowID, datasetID, position); err != nil {
			return err
		}
	}
	return nil
}

func scanDataset(row pgx.Row) (*domain.Dataset, error) {
	var dataset domain.Dataset
	var (
		status   string
		metadata []byte
	)

	if err := row.Scan(
		&dataset.ID,
		&dataset.OwnerID,
		&dataset.Name,
		&dataset.TargetModel,
		&status,
		&metadata,
		&dataset.CreatedAt,
		&dataset.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, err
	}
	dataset.Status = domain.DatasetStatus(status)

	meta, err := unmarshalMap(metadata)
	if err != nil {
		return nil, err
	}
	dataset.Metadata = meta
	return &dataset, nil
}
