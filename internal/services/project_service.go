package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"

	"github.com/lib/pq"

	"taskhub/internal/authz"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type ProjectInput struct {
	Name        string
	Description string
	// Members defaults to the creator alone.
	Members []int64
}

type ProjectService interface {
	Create(ctx context.Context, actor authz.Actor, in ProjectInput) (*models.Project, error)
	Get(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	// ListPage pages active projects. page < 1 means 1; limit < 1 means 10 and is capped at 100.
	ListPage(ctx context.Context, page, limit int) (*models.ProjectPage, error)
	Update(ctx context.Context, actor authz.Actor, id int64, patch models.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, actor authz.Actor, id int64) error
}

type projectService struct {
	repo repositories.ProjectRepository
}

func NewProjectService(repo repositories.ProjectRepository) ProjectService {
	return &projectService{repo: repo}
}

func (s *projectService) Create(ctx context.Context, actor authz.Actor, in ProjectInput) (*models.Project, error) {
	if !authz.Can(actor, authz.ActionProjectManage, authz.Resource{}) {
		return nil, forbiddenf("only admin can manage projects")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationf("name is required")
	}
	members := in.Members
	if len(members) == 0 {
		members = []int64{actor.ID}
	}
	set, err := memberSet(members)
	if err != nil {
		return nil, err
	}
	p := &models.Project{Name: name, Description: in.Description, CreatedBy: actor.ID, Members: set}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflictf("project %q already exists", name)
		}
		return nil, persistence("create project", err)
	}
	return p, nil
}

func (s *projectService) Get(ctx context.Context, id int64) (*models.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundf("project not found")
		}
		return nil, persistence("get project", err)
	}
	if p.IsDeleted {
		return nil, notFoundf("project not found")
	}
	return p, nil
}

func (s *projectService) List(ctx context.Context) ([]models.Project, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, persistence("list projects", err)
	}
	return out, nil
}

func (s *projectService) ListPage(ctx context.Context, page, limit int) (*models.ProjectPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	items, total, err := s.repo.ListPage(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, persistence("list projects", err)
	}
	if items == nil {
		items = []models.Project{}
	}
	return &models.ProjectPage{
		Projects: items,
		Pagination: models.Pagination{
			CurrentPage:  page,
			TotalPages:   (total + limit - 1) / limit,
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	}, nil
}

// Update is allowed to admins and to the project's creator.
func (s *projectService) Update(ctx context.Context, actor authz.Actor, id int64, patch models.ProjectPatch) (*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ActionProjectUpdate, authz.ProjectResource(p)) {
		return nil, forbiddenf("not authorized to update this project")
	}
	if patch.IsEmpty() {
		return p, nil
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, validationf("name cannot be empty")
		}
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Members != nil {
		set, err := memberSet(*patch.Members)
		if err != nil {
			return nil, err
		}
		p.Members = set
	}
	if err := s.repo.Update(ctx, p); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, notFoundf("project not found")
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, conflictf("project %q already exists", p.Name)
		}
		return nil, persistence("update project", err)
	}
	log.Printf("[project][update][ok] id=%d by userID=%d", p.ID, actor.ID)
	return p, nil
}

func (s *projectService) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if !authz.Can(actor, authz.ActionProjectManage, authz.Resource{}) {
		return forbiddenf("only admin can manage projects")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundf("project not found")
		}
		return persistence("delete project", err)
	}
	return nil
}

// memberSet sorts and deduplicates ids.
func memberSet(ids []int64) (pq.Int64Array, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := pq.Int64Array{}
	for _, id := range ids {
		if id <= 0 {
			return nil, validationf("members must be positive user ids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
