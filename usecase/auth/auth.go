package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
	"github.com/deskcore/backend/usecase"
)

// Hasher derives a credential hash from a raw password. The domain never sees
// cryptographic material beyond calling these.
type Hasher func(password string) (string, error)

// Verifier compares a raw password against a stored hash.
type Verifier func(hashedPassword, password string) error

// TokenIssuer mints an access token for an authenticated user.
type TokenIssuer func(user *domain.User) (string, error)

type UseCase struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	txm        usecase.TxStarter
	dispatcher *usecase.EventDispatcher
	hash       Hasher
	verify     Verifier
	issueToken TokenIssuer
	clock      usecase.Clock
	logger     *zap.Logger
}

func New(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	txm usecase.TxStarter,
	dispatcher *usecase.EventDispatcher,
	hash Hasher,
	verify Verifier,
	issueToken TokenIssuer,
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
		sessions:   sessions,
		txm:        txm,
		dispatcher: dispatcher,
		hash:       hash,
		verify:     verify,
		issueToken: issueToken,
		clock:      clock,
		logger:     logger,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a new account with the default role. Uniqueness of
// username and email is checked before the insert; the unique indexes back
// the check under concurrency.
func (uc *UseCase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Password == "" {
		return nil, domain.NewValidation("password must not be empty")
	}
	if existing, err := uc.users.GetByUsername(ctx, input.Username); err == nil && existing != nil {
		return nil, domain.ErrUsernameTaken
	} else if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}
	if existing, err := uc.users.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, domain.ErrEmailTaken
	} else if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}

	hashed, err := uc.hash(input.Password)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "hash password", err)
	}

	now := uc.clock()
	user, err := domain.NewUser(input.Username, input.Email, hashed, domain.RoleUser, now)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	if err := uc.users.Create(txCtx, user); err != nil {
		return nil, err
	}
	user.RecordCreation(now)
	uow.CollectEventsFrom(user)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

type LoginInput struct {
	Username string
	Password string
}

type LoginResult struct {
	Token   string
	Session *domain.Session
	User    *domain.User
}

// Login authenticates by username, rejects inactive accounts, and issues both
// an access token and a server-side session.
func (uc *UseCase) Login(ctx context.Context, input LoginInput, sessionTTL time.Duration) (*LoginResult, error) {
	user, err := uc.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if err := uc.verify(user.HashedPassword, input.Password); err != nil {
		uc.logger.Warn("failed login attempt", zap.String("username", input.Username))
		return nil, domain.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "account is deactivated")
	}

	token, err := uc.issueToken(user)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "issue token", err)
	}

	now := uc.clock()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, Session: session, User: user}, nil
}

// GetSession returns the session if it exists and has not expired. Expired
// sessions are deleted eagerly.
func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.clock()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RefreshSession extends the session TTL.
func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(ttl.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = uc.clock().Add(ttl)
	return session, nil
}

// RevokeSession deletes the session; missing sessions are not an error.
func (uc *UseCase) RevokeSession(ctx context.Context, sessionID string) error {
	if err := uc.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	return nil
}
