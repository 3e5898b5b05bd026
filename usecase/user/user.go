package user

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
	"github.com/deskcore/backend/usecase"
	authUC "github.com/deskcore/backend/usecase/auth"
)

type UseCase struct {
	users      repository.UserRepository
	authz      domain.AuthorizationService
	txm        usecase.TxStarter
	dispatcher *usecase.EventDispatcher
	hash       authUC.Hasher
	clock      usecase.Clock
	logger     *zap.Logger
}

func New(
	users repository.UserRepository,
	txm usecase.TxStarter,
	dispatcher *usecase.EventDispatcher,
	hash authUC.Hasher,
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
		users:      users,
		authz:      domain.NewAuthorizationService(),
		txm:        txm,
		dispatcher: dispatcher,
		hash:       hash,
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

// Get returns a user; actors may read themselves, admins anyone.
func (uc *UseCase) Get(ctx context.Context, actorID, userID int64) (*domain.User, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureOwnerOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	return uc.users.GetByID(ctx, userID)
}

// List returns users matching the filter; admins only.
func (uc *UseCase) List(ctx context.Context, actorID int64, filter repository.UserFilter) ([]domain.User, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanManageUsers(actor); err != nil {
		return nil, err
	}
	return uc.users.List(ctx, filter)
}

type UpdateInput struct {
	UserID   int64
	Username *string
	Email    *string
	Password *string
}

// Update mutates profile fields; self or admin. Field-level changes are
// recorded for the audit trail.
func (uc *UseCase) Update(ctx context.Context, actorID int64, input UpdateInput) (*domain.User, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureOwnerOrAdmin(actor, input.UserID); err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	target, err := uc.users.GetByID(txCtx, input.UserID)
	if err != nil {
		return nil, err
	}

	now := uc.clock()
	changes := domain.ChangeSet{}
	if input.Username != nil && *input.Username != target.Username {
		changes["username"] = domain.FieldChange{Old: target.Username, New: *input.Username}
		target.Username = *input.Username
	}
	if input.Email != nil && *input.Email != target.Email {
		changes["email"] = domain.FieldChange{Old: target.Email, New: *input.Email}
		target.Email = *input.Email
	}
	if input.Password != nil {
		hashed, err := uc.hash(*input.Password)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "hash password", err)
		}
		target.HashedPassword = hashed
		changes["password"] = domain.FieldChange{Old: "***", New: "***"}
	}
	if len(changes) == 0 {
		return target, nil
	}
	target.UpdatedAt = now
	target.RecordUpdate(changes, actorID, now)

	if err := uc.users.Update(txCtx, target); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(target)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return target, nil
}

// ChangeRole switches a user's role; admin only, and an admin may not demote
// themselves.
func (uc *UseCase) ChangeRole(ctx context.Context, actorID, targetID int64, newRole domain.Role) (*domain.User, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	target, err := uc.users.GetByID(txCtx, targetID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanChangeRole(actor, target, newRole); err != nil {
		return nil, err
	}

	target.ChangeRole(newRole, actorID, uc.clock())
	if err := uc.users.Update(txCtx, target); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(target)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return target, nil
}

// SetActive activates or deactivates an account; admin only.
func (uc *UseCase) SetActive(ctx context.Context, actorID, targetID int64, active bool) (*domain.User, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanManageUsers(actor); err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	target, err := uc.users.GetByID(txCtx, targetID)
	if err != nil {
		return nil, err
	}
	now := uc.clock()
	if active {
		target.Activate(actorID, now)
	} else {
		target.Deactivate(actorID, now)
	}
	if err := uc.users.Update(txCtx, target); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(target)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes a user; admin only, never themselves. The deletion event is
// recorded before the row goes away.
func (uc *UseCase) Delete(ctx context.Context, actorID, targetID int64) error {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return err
	}
	if err := uc.authz.EnsureCanDeleteUser(actor, targetID); err != nil {
		return err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	target, err := uc.users.GetByID(txCtx, targetID)
	if err != nil {
		return err
	}
	target.RecordDeletion(actorID, uc.clock())
	if err := uc.users.Delete(txCtx, targetID); err != nil {
		return err
	}
	uow.CollectEventsFrom(target)
	return uow.Commit(ctx)
}
