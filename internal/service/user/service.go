package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/nielpattin/quizzy-sub001/internal/domain"
	"github.com/nielpattin/quizzy-sub001/internal/repository"
	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
)

var errMissingUID = errors.New("identity has no uid")

// Service mirrors identity-provider accounts into the users table.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// New returns a user service.
func New(users repository.UserRepository, logger *slog.Logger) Service {
	return Service{users: users, logger: logger}
}

// EnsureUser upserts the caller and returns the stored row, role included.
func (s Service) EnsureUser(ctx context.Context, id identity.Identity) (*domain.User, error) {
	if strings.TrimSpace(id.UID) == "" {
		return nil, errMissingUID
	}
	user := &domain.User{
		ID:          id.UID,
		Email:       strings.TrimSpace(id.Email),
		DisplayName: strings.TrimSpace(id.Name),
		Role:        domain.RoleMember,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.users.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a single user.
func (s Service) Get(ctx context.Context, id string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, repository.ErrNotFound
	}
	return s.users.GetUserByID(ctx, id)
}

// List pages through users, newest first.
func (s Service) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if offset < 0 {
		offset = 0
	}
	return s.users.ListUsers(ctx, limit, offset)
}
