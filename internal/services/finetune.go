package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// DatasetLifecycle is the slice of the dataset use case the worker drives.
// Transitions go through it so domain events and audit logging fire the same
// way they do for user-initiated changes.
type DatasetLifecycle interface {
	ListPending(ctx context.Context, limit int) ([]int64, error)
	SystemTransition(ctx context.Context, datasetID int64, next domain.DatasetStatus) (*domain.Dataset, error)
}

// TrainFunc submits one dataset to the tuning backend. A nil error marks the
// dataset completed, any error marks it failed.
type TrainFunc func(ctx context.Context, dataset *domain.Dataset) error

// FinetuneConfig controls how frequently pending datasets are picked up.
type FinetuneConfig struct {
	Interval  time.Duration
	BatchSize int
}

// FinetuneWorker walks pending datasets through the tuning lifecycle on a
// fixed schedule.
type FinetuneWorker struct {
	datasets DatasetLifecycle
	reader   repository.DatasetRepository
	train    TrainFunc
	monitor  ConnectionHealth
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      FinetuneConfig
}

func NewFinetuneWorker(
	datasets DatasetLifecycle,
	reader repository.DatasetRepository,
	train TrainFunc,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg FinetuneConfig,
) *FinetuneWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if train == nil {
		train = ValidateRows
	}

	w := &FinetuneWorker{
		datasets: datasets,
		reader:   reader,
		train:    train,
		monitor:  monitor,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = w.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error("finetune pass failed", zap.Error(err))
		}
	})

	return w
}

// Start launches the cron scheduler.
func (w *FinetuneWorker) Start() {
	if w == nil || w.cron == nil {
		return
	}
	w.cron.Start()
	w.logger.Info("finetune worker started")
}

// Stop gracefully stops the scheduler.
func (w *FinetuneWorker) Stop(ctx context.Context) {
	if w == nil || w.cron == nil {
		return
	}
	stopCtx := w.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	w.logger.Info("finetune worker stopped")
}

// RunOnce claims up to BatchSize pending datasets and processes each one
// synchronously.
func (w *FinetuneWorker) RunOnce(ctx context.Context) error {
	if w == nil || w.datasets == nil {
		return nil
	}
	if w.monitor != nil && !w.monitor.IsOnline() {
		w.logger.Debug("skipping finetune pass (offline)")
		return nil
	}

	ids, err := w.datasets.ListPending(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := w.process(ctx, id); err != nil {
			w.logger.Error("dataset processing failed",
				zap.Int64("dataset_id", id),
				zap.Error(err))
		}
	}
	return nil
}

func (w *FinetuneWorker) process(ctx context.Context, id int64) error {
	if _, err := w.datasets.SystemTransition(ctx, id, domain.DatasetProcessing); err != nil {
		// Another worker may have claimed it between listing and claiming.
		if domain.IsDomainError(err, domain.ErrCodeInvalidTransition) {
			w.logger.Debug("dataset already claimed", zap.Int64("dataset_id", id))
			return nil
		}
		return err
	}

	dataset, err := w.reader.GetByID(ctx, id, true)
	if err != nil {
		_, ferr := w.datasets.SystemTransition(ctx, id, domain.DatasetFailed)
		if ferr != nil {
			return ferr
		}
		return err
	}

	if err := w.train(ctx, dataset); err != nil {
		w.logger.Warn("tuning run failed",
			zap.Int64("dataset_id", id),
			zap.String("name", dataset.Name),
			zap.Error(err))
		_, ferr := w.datasets.SystemTransition(ctx, id, domain.DatasetFailed)
		return ferr
	}

	w.logger.Info("dataset tuned",
		zap.Int64("dataset_id", id),
		zap.String("target_model", dataset.TargetModel),
		zap.Int("rows", len(dataset.Rows)))
	_, err = w.datasets.SystemTransition(ctx, id, domain.DatasetCompleted)
	return err
}

// ValidateRows is the default TrainFunc. It rejects datasets that have
// nothing to train on.
func ValidateRows(_ context.Context, dataset *domain.Dataset) error {
	if dataset == nil || len(dataset.Rows) == 0 {
		return fmt.Errorf("dataset has no rows")
	}
	for _, row := range dataset.Rows {
		if err := row.Validate(); err != nil {
			return err
		}
	}
	return nil
}
