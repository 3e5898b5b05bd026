package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
)

// Tx is the transactional handle the unit of work drives.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxStarter begins a transaction and returns a derived context carrying it,
// so repositories called with that context join the same transaction.
// Implemented by the postgres infrastructure layer.
type TxStarter interface {
	BeginTx(ctx context.Context) (context.Context, Tx, error)
}

// UnitOfWork wraps one persistence transaction and a pending-events buffer.
// Commit persists first and only then dispatches the buffered events, so
// audit records are never written for changes that did not durably persist.
type UnitOfWork struct {
	tx         Tx
	dispatcher *EventDispatcher
	logger     *zap.Logger
	pending    []domain.Event
	finished   bool
}

// Begin starts a transaction and wraps it in a unit of work. The returned
// context must be used for all repository calls inside the transaction.
func Begin(ctx context.Context, starter TxStarter, dispatcher *EventDispatcher, logger *zap.Logger) (context.Context, *UnitOfWork, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	txCtx, tx, err := starter.BeginTx(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return txCtx, &UnitOfWork{
		tx:         tx,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// CollectEventsFrom drains each aggregate's accumulated events into the
// buffer, in argument order, preserving each aggregate's internal order.
func (u *UnitOfWork) CollectEventsFrom(sources ...domain.EventSource) {
	for _, src := range sources {
		u.pending = append(u.pending, src.CollectEvents()...)
	}
}

// Commit commits the transaction first; only if that succeeds are the
// buffered events dispatched (in buffer order) and the buffer cleared.
// Dispatch runs on a context detached from the request's cancellation so a
// finished request cannot cut audit writes short.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return err
	}
	u.finished = true
	if len(u.pending) > 0 && u.dispatcher != nil {
		u.dispatcher.Dispatch(context.WithoutCancel(ctx), u.pending)
	}
	u.pending = nil
	return nil
}

// Rollback discards the transaction and drops buffered events without
// dispatch. Safe to defer after a successful Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) {
	u.pending = nil
	if u.finished {
		return
	}
	u.finished = true
	if err := u.tx.Rollback(ctx); err != nil {
		u.logger.Warn("rollback failed", zap.Error(err))
	}
}

// Pending exposes the number of buffered events.
func (u *UnitOfWork) Pending() int {
	return len(u.pending)
}
