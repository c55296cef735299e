package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskhub/internal/models"
	"taskhub/internal/repositories"
	"taskhub/internal/services"
)

type stubTasks struct {
	repositories.TaskRepository
	due     []models.Task
	touched map[int64][]models.Task
	from    time.Time
	to      time.Time
}

func (s *stubTasks) ListDueBetween(_ context.Context, from, to time.Time) ([]models.Task, error) {
	s.from, s.to = from, to
	return s.due, nil
}

func (s *stubTasks) ListTouchedInProject(_ context.Context, projectID int64, from, to time.Time) ([]models.Task, error) {
	s.from, s.to = from, to
	return s.touched[projectID], nil
}

type stubProjects struct {
	repositories.ProjectRepository
	projects []models.Project
	lookups  int
}

func (s *stubProjects) FindByID(_ context.Context, id int64) (*models.Project, error) {
	s.lookups++
	for i := range s.projects {
		if s.projects[i].ID == id {
			p := s.projects[i]
			return &p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *stubProjects) List(context.Context) ([]models.Project, error) {
	return s.projects, nil
}

type stubUsers struct {
	repositories.UserRepository
	users map[int64]models.User
}

func (s *stubUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

type outbox struct {
	mu     sync.Mutex
	mails  []services.Mail
	failTo string
}

func (o *outbox) Send(_ context.Context, m services.Mail) error {
	if m.To == o.failTo {
		return errors.New("smtp: mailbox unavailable")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mails = append(o.mails, m)
	return nil
}

func at(t time.Time) *time.Time { return &t }

func assignee(id int64) *int64 { return &id }
