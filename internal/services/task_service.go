package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"taskhub/internal/authz"
	"taskhub/internal/metrics"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

// Realtime event names.
const (
	EventTaskAssigned      = "taskAssigned"
	EventTaskUpdated       = "taskUpdated"
	EventTaskDeleted       = "taskDeleted"
	EventNewNotification   = "newNotification"
	EventAdminNotification = "adminNotification"
)

// Fanout pushes events to live sessions. Delivery is best effort.
type Fanout interface {
	PublishToUser(userID int64, event string, payload interface{})
	PublishToTask(taskID int64, event string, payload interface{})
	BroadcastAdmin(event string, payload interface{})
}

// NotificationChannel delivers a persisted notification outside the
// realtime layer, e.g. to a chat bot.
type NotificationChannel interface {
	Name() string
	Deliver(ctx context.Context, user *models.User, n *models.Notification) error
}

// TaskService sequences a task mutation: persist, diff, notify, audit, push.
type TaskService interface {
	Create(ctx context.Context, actor authz.Actor, in CreateTaskInput) (*models.Task, error)
	Get(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error)
	List(ctx context.Context, actor authz.Actor, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, actor authz.Actor, id int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, actor authz.Actor, id int64) error
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	ProjectID   int64
	AssignedTo  int64
}

type TaskServiceDeps struct {
	Tasks             repositories.TaskRepository
	Projects          repositories.ProjectRepository
	Users             repositories.UserRepository
	Notifications     repositories.NotificationRepository
	Recorder          *ActivityRecorder
	Fanout            Fanout
	Dispatcher        Dispatcher
	// ChannelDispatcher runs NotificationChannel deliveries so a slow side
	// channel cannot hold back realtime pushes. Defaults to Dispatcher.
	ChannelDispatcher Dispatcher
	Channels          []NotificationChannel
	Now               func() time.Time
}

type taskService struct {
	TaskServiceDeps
}

func NewTaskService(deps TaskServiceDeps) TaskService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = &InlineDispatcher{}
	}
	if deps.ChannelDispatcher == nil {
		deps.ChannelDispatcher = deps.Dispatcher
	}
	return &taskService{TaskServiceDeps: deps}
}

func (s *taskService) Create(ctx context.Context, actor authz.Actor, in CreateTaskInput) (task *models.Task, err error) {
	defer observe(OpCreate, &err)

	if !authz.Can(actor, authz.ActionTaskCreate, authz.Resource{}) {
		return nil, forbiddenf("only admin can create tasks")
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.ProjectID == 0 || in.AssignedTo == 0 {
		return nil, validationf("title, project_id and assigned_to are required")
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Status.Valid() {
		return nil, validationf("invalid status %q", in.Status)
	}
	if !in.Priority.Valid() {
		return nil, validationf("invalid priority %q", in.Priority)
	}
	if err := s.checkProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, in.AssignedTo); err != nil {
		return nil, err
	}

	now := s.Now()
	assignee := in.AssignedTo
	task = &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		ProjectID:   in.ProjectID,
		AssignedTo:  &assignee,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Tasks.Store(ctx, task); err != nil {
		log.Printf("[task][create][err] title=%q: %v", task.Title, err)
		return nil, persistence("store task", err)
	}
	log.Printf("[task][create][ok] id=%d assignee=%d by=%d", task.ID, assignee, actor.ID)

	notes := s.notify(ctx, EvaluateRules(RuleInput{Task: task, Actor: actor, Operation: OpCreate}))

	snapshot := *task
	s.push(EventTaskAssigned, func(f Fanout) { f.PublishToUser(assignee, EventTaskAssigned, &snapshot) })
	s.pushNotifications(notes)
	s.push(EventAdminNotification, func(f Fanout) {
		f.BroadcastAdmin(EventAdminNotification, adminEvent{Type: "task_created", Task: &snapshot, Notifications: notes.list()})
	})
	return task, nil
}

func (s *taskService) Get(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error) {
	task, err := s.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, taskLookupErr(err)
	}
	if !authz.Can(actor, authz.ActionTaskView, authz.TaskResource(task)) {
		return nil, forbiddenf("not authorized to view this task")
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, actor authz.Actor, filter models.TaskFilter) ([]models.Task, error) {
	if !actor.IsAdmin() {
		self := actor.ID
		filter.AssignedTo = &self
	}
	tasks, err := s.Tasks.FindAll(ctx, filter)
	if err != nil {
		return nil, persistence("list tasks", err)
	}
	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, actor authz.Actor, id int64, patch models.TaskPatch) (task *models.Task, err error) {
	defer observe(OpUpdate, &err)

	task, err = s.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, taskLookupErr(err)
	}
	if task.IsDeleted {
		return nil, notFoundf("task not found")
	}
	if !authz.Can(actor, authz.ActionTaskUpdate, authz.TaskResource(task)) {
		return nil, forbiddenf("not authorized to update this task")
	}
	patch, err = s.validatePatch(ctx, patch)
	if err != nil {
		return nil, err
	}

	changes := DiffTask(task, patch)
	if len(changes) > 0 {
		task.UpdatedAt = s.Now()
	}
	if err := s.Tasks.Update(ctx, task); err != nil {
		log.Printf("[task][update][err] id=%d: %v", id, err)
		if errors.Is(err, repositories.ErrNotFound) {
			// deleted between read and write
			return nil, notFoundf("task not found")
		}
		return nil, persistence("update task", err)
	}
	log.Printf("[task][update][ok] id=%d by=%d changes=%d", id, actor.ID, len(changes))

	var notes notifications
	if len(changes) > 0 {
		notes = s.notify(ctx, EvaluateRules(RuleInput{Task: task, Actor: actor, Operation: OpUpdate, Changes: changes}))
		s.Recorder.Record(ctx, task.ID, actor.ID, changes)
	}

	snapshot := *task
	s.push(EventTaskUpdated, func(f Fanout) { f.PublishToTask(snapshot.ID, EventTaskUpdated, &snapshot) })
	if models.ChangeSet(changes).Has(FieldAssignedTo) && snapshot.AssigneeID() != 0 {
		s.push(EventTaskAssigned, func(f Fanout) { f.PublishToUser(snapshot.AssigneeID(), EventTaskAssigned, &snapshot) })
	}
	s.pushNotifications(notes)
	if len(changes) > 0 {
		by := actor
		s.push(EventAdminNotification, func(f Fanout) {
			f.BroadcastAdmin(EventAdminNotification, adminEvent{
				Type:      "task_updated",
				Task:      &snapshot,
				UpdatedBy: &actorView{ID: by.ID, Name: by.Name},
				Changes:   changes,
			})
		})
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, actor authz.Actor, id int64) (err error) {
	defer observe(OpDelete, &err)

	if !authz.Can(actor, authz.ActionTaskDelete, authz.Resource{}) {
		return forbiddenf("only admin can delete tasks")
	}
	task, err := s.Tasks.FindByID(ctx, id)
	if err != nil {
		return taskLookupErr(err)
	}
	if task.IsDeleted {
		return conflictf("task already deleted")
	}
	if err := s.Tasks.SoftDelete(ctx, id, s.Now()); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyDeleted):
			return conflictf("task already deleted")
		case errors.Is(err, repositories.ErrNotFound):
			return notFoundf("task not found")
		}
		log.Printf("[task][delete][err] id=%d: %v", id, err)
		return persistence("delete task", err)
	}
	log.Printf("[task][delete][ok] id=%d by=%d", id, actor.ID)

	notes := s.notify(ctx, EvaluateRules(RuleInput{Task: task, Actor: actor, Operation: OpDelete}))

	s.push(EventTaskDeleted, func(f Fanout) { f.PublishToTask(id, EventTaskDeleted, deletedEvent{ID: id}) })
	s.pushNotifications(notes)
	return nil
}

// validatePatch checks enums and references and returns the patch with a
// trimmed title.
func (s *taskService) validatePatch(ctx context.Context, p models.TaskPatch) (models.TaskPatch, error) {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return p, validationf("title cannot be empty")
		}
		p.Title = &t
	}
	if p.Status != nil && !p.Status.Valid() {
		return p, validationf("invalid status %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return p, validationf("invalid priority %q", *p.Priority)
	}
	if p.ProjectID != nil {
		if *p.ProjectID == 0 {
			return p, validationf("project_id cannot be empty")
		}
		if err := s.checkProject(ctx, *p.ProjectID); err != nil {
			return p, err
		}
	}
	if p.AssignedTo != nil && *p.AssignedTo != 0 {
		if err := s.checkUser(ctx, *p.AssignedTo); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (s *taskService) checkProject(ctx context.Context, id int64) error {
	p, err := s.Projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundf("project not found")
		}
		return persistence("get project", err)
	}
	if p.IsDeleted {
		return notFoundf("project not found")
	}
	return nil
}

func (s *taskService) checkUser(ctx context.Context, id int64) error {
	if _, err := s.Users.GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validationf("assigned_to references an unknown user")
		}
		return persistence("get user", err)
	}
	return nil
}

// notification pairs a stored notification with its resolved recipient.
type notification struct {
	item *models.Notification
	user *models.User
}

type notifications []notification

func (n notifications) list() []models.Notification {
	if len(n) == 0 {
		return nil
	}
	out := make([]models.Notification, 0, len(n))
	for _, x := range n {
		out = append(out, *x.item)
	}
	return out
}

// notify resolves recipients and persists one notification per intent.
// A recipient that cannot be resolved skips only its own intent; a failed
// insert is logged and yields no notifications.
func (s *taskService) notify(ctx context.Context, intents []Intent) notifications {
	if len(intents) == 0 {
		return nil
	}
	now := s.Now()
	var out notifications
	items := make([]*models.Notification, 0, len(intents))
	for _, it := range intents {
		u, err := s.Users.GetByID(ctx, it.RecipientID)
		if err != nil {
			log.Printf("[notify][skip] recipient=%d type=%s: %v", it.RecipientID, it.Type, err)
			continue
		}
		n := &models.Notification{
			UserID:    u.ID,
			Message:   it.Message,
			Type:      it.Type,
			TaskID:    optionalID(it.TaskID),
			ProjectID: optionalID(it.ProjectID),
			CreatedAt: now,
			ExpiresAt: now.Add(models.NotificationTTL),
		}
		items = append(items, n)
		out = append(out, notification{item: n, user: u})
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.Notifications.CreateMany(ctx, items); err != nil {
		log.Printf("[notify][err] count=%d: %v", len(items), err)
		return nil
	}
	for _, n := range items {
		metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	}
	return out
}

func (s *taskService) pushNotifications(notes notifications) {
	for _, n := range notes {
		item, user := *n.item, n.user
		s.push(EventNewNotification, func(f Fanout) { f.PublishToUser(item.UserID, EventNewNotification, &item) })
		for _, ch := range s.Channels {
			ch := ch
			s.ChannelDispatcher.Submit(Job{
				Name: ch.Name(),
				Run:  func(ctx context.Context) error { return ch.Deliver(ctx, user, &item) },
			})
		}
	}
}

func (s *taskService) push(event string, fn func(Fanout)) {
	if s.Fanout == nil {
		return
	}
	f := s.Fanout
	s.Dispatcher.Submit(Job{
		Name: "fanout:" + event,
		Run: func(context.Context) error {
			fn(f)
			return nil
		},
	})
}

type adminEvent struct {
	Type          string                `json:"type"`
	Task          *models.Task          `json:"task"`
	UpdatedBy     *actorView            `json:"updated_by,omitempty"`
	Changes       []models.ChangeRecord `json:"changes,omitempty"`
	Notifications []models.Notification `json:"notifications,omitempty"`
}

type actorView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type deletedEvent struct {
	ID int64 `json:"id"`
}

func taskLookupErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFoundf("task not found")
	}
	return persistence("get task", err)
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func observe(op Operation, err *error) {
	outcome := "ok"
	switch {
	case *err == nil:
	case errors.Is(*err, ErrValidation):
		outcome = "invalid"
	case errors.Is(*err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(*err, ErrForbidden):
		outcome = "forbidden"
	case errors.Is(*err, ErrConflict):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	metrics.TaskMutations.WithLabelValues(string(op), outcome).Inc()
}
