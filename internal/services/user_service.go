package services

import (
	"context"
	"errors"

	"taskhub/internal/authz"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

// UserService exposes the directory admins pick assignees from.
type UserService interface {
	Me(ctx context.Context, actor authz.Actor) (*models.User, error)
	List(ctx context.Context, actor authz.Actor) ([]models.User, error)
	UnlinkTelegram(ctx context.Context, actor authz.Actor) error
}

type userService struct {
	repo repositories.UserRepository
}

func NewUserService(repo repositories.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) Me(ctx context.Context, actor authz.Actor) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundf("user not found")
		}
		return nil, persistence("get user", err)
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, actor authz.Actor) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, forbiddenf("only admin can list users")
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, persistence("list users", err)
	}
	return users, nil
}

func (s *userService) UnlinkTelegram(ctx context.Context, actor authz.Actor) error {
	if err := s.repo.SetTelegramChat(ctx, actor.ID, nil); err != nil {
		return persistence("unlink telegram", err)
	}
	return nil
}
