package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"taskhub/internal/authz"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

var errStoreDown = errors.New("store down")

type fakeTasks struct {
	mu        sync.Mutex
	items     map[int64]*models.Task
	nextID    int64
	storeErr  error
	updateErr error
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{items: map[int64]*models.Task{}, nextID: 100}
}

func (f *fakeTasks) put(t models.Task) *models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := t
	f.items[t.ID] = &cp
	out := cp
	return &out
}

func (f *fakeTasks) get(id int64) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakeTasks) Store(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakeTasks) FindByID(_ context.Context, id int64) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) FindAll(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Task
	for _, t := range f.items {
		if t.IsDeleted {
			continue
		}
		if filter.AssignedTo != nil && t.AssigneeID() != *filter.AssignedTo {
			continue
		}
		if filter.ProjectID != nil && t.ProjectID != *filter.ProjectID {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTasks) Update(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	cur, ok := f.items[t.ID]
	if !ok || cur.IsDeleted {
		return repositories.ErrNotFound
	}
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakeTasks) SoftDelete(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if t.IsDeleted {
		return repositories.ErrAlreadyDeleted
	}
	t.IsDeleted = true
	t.UpdatedAt = at
	return nil
}

func (f *fakeTasks) ListDueBetween(_ context.Context, from, to time.Time) ([]models.Task, error) {
	return nil, nil
}

func (f *fakeTasks) ListTouchedInProject(_ context.Context, projectID int64, from, to time.Time) ([]models.Task, error) {
	return nil, nil
}

type fakeProjects struct {
	items map[int64]*models.Project
}

func (f *fakeProjects) Create(_ context.Context, p *models.Project) error {
	p.ID = int64(len(f.items) + 1)
	f.items[p.ID] = p
	return nil
}

func (f *fakeProjects) FindByID(_ context.Context, id int64) (*models.Project, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) List(_ context.Context) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.items {
		if !p.IsDeleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjects) ListPage(ctx context.Context, limit, offset int) ([]models.Project, int, error) {
	all, _ := f.List(ctx)
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeProjects) Update(_ context.Context, p *models.Project) error {
	cur, ok := f.items[p.ID]
	if !ok || cur.IsDeleted {
		return repositories.ErrNotFound
	}
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeProjects) SoftDelete(_ context.Context, id int64) error {
	p, ok := f.items[id]
	if !ok || p.IsDeleted {
		return repositories.ErrNotFound
	}
	p.IsDeleted = true
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	items map[int64]*models.User
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{items: map[int64]*models.User{}}
	for i := range users {
		u := users[i]
		f.items[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.items {
		if x.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	u.ID = int64(len(f.items) + 1000)
	cp := *u
	f.items[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.items {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) UpdateRefresh(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.RefreshToken = &token
	u.RefreshExpiresAt = &expiresAt
	return nil
}

func (f *fakeUsers) GetByRefreshToken(_ context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) ClearRefresh(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.items[userID]; ok {
		u.RefreshToken = nil
		u.RefreshExpiresAt = nil
	}
	return nil
}

func (f *fakeUsers) SetTelegramChat(_ context.Context, userID int64, chatID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.TelegramChatID = chatID
	return nil
}

func (f *fakeUsers) GetByTelegramChat(_ context.Context, chatID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeNotifications struct {
	mu        sync.Mutex
	items     []*models.Notification
	createErr error
}

func (f *fakeNotifications) CreateMany(_ context.Context, items []*models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, n := range items {
		n.ID = int64(len(f.items) + 1)
		cp := *n
		f.items = append(f.items, &cp)
	}
	return nil
}

func (f *fakeNotifications) FindByID(_ context.Context, id int64, now time.Time) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id && !n.Expired(now) {
			cp := *n
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID int64, limit int, now time.Time) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		if f.items[i].UserID == userID && !f.items[i].Expired(now) {
			out = append(out, *f.items[i])
		}
	}
	return out, nil
}

func (f *fakeNotifications) ListAll(_ context.Context, limit int, now time.Time) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		if !f.items[i].Expired(now) {
			out = append(out, *f.items[i])
		}
	}
	return out, nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID *int64, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.items {
		if !x.IsRead && !x.Expired(now) && (userID == nil || x.UserID == *userID) {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.items {
		if x.ID == id && !x.Expired(now) {
			x.IsRead = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.items {
		if x.UserID == userID {
			x.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotifications) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, x := range f.items {
		if x.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeNotifications) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*models.Notification
	var removed int64
	for _, x := range f.items {
		if x.Expired(now) {
			removed++
			continue
		}
		kept = append(kept, x)
	}
	f.items = kept
	return removed, nil
}

func (f *fakeNotifications) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, 0, len(f.items))
	for _, n := range f.items {
		out = append(out, *n)
	}
	return out
}

type fakeActivity struct {
	mu        sync.Mutex
	entries   []models.ActivityLog
	createErr error
}

func (f *fakeActivity) Create(_ context.Context, e *models.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeActivity) List(_ context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ActivityLog
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if filter.TaskID != nil && e.TaskID != *filter.TaskID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeActivity) all() []models.ActivityLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ActivityLog(nil), f.entries...)
}

// pushed is one fanout call as seen by the hub.
type pushed struct {
	Room    string
	Event   string
	Payload interface{}
}

type recordingFanout struct {
	mu     sync.Mutex
	events []pushed
}

func (r *recordingFanout) add(room, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, pushed{Room: room, Event: event, Payload: payload})
}

func (r *recordingFanout) PublishToUser(userID int64, event string, payload interface{}) {
	r.add("user:"+formatID(userID), event, payload)
}

func (r *recordingFanout) PublishToTask(taskID int64, event string, payload interface{}) {
	r.add("task:"+formatID(taskID), event, payload)
}

func (r *recordingFanout) BroadcastAdmin(event string, payload interface{}) {
	r.add("admin", event, payload)
}

func (r *recordingFanout) named(event string) []pushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []pushed
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingFanout) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type recordingChannel struct {
	mu        sync.Mutex
	delivered []int64 // recipient ids
	err       error
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Deliver(_ context.Context, u *models.User, _ *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered = append(c.delivered, u.ID)
	return c.err
}

const (
	adminID   int64 = 1
	aliceID   int64 = 2
	bobID     int64 = 3
	projectID int64 = 7
)

var (
	admin = authz.Actor{ID: adminID, RoleID: authz.RoleAdmin, Name: "Admin"}
	alice = authz.Actor{ID: aliceID, RoleID: authz.RoleUser, Name: "Alice"}
	bob   = authz.Actor{ID: bobID, RoleID: authz.RoleUser, Name: "Bob"}
)

type harness struct {
	svc      TaskService
	tasks    *fakeTasks
	projects *fakeProjects
	users    *fakeUsers
	notes    *fakeNotifications
	activity *fakeActivity
	fanout   *recordingFanout
	channel  *recordingChannel
	jobErrs  []JobError
	now      time.Time
}

func newHarness() *harness {
	h := &harness{
		tasks: newFakeTasks(),
		projects: &fakeProjects{items: map[int64]*models.Project{
			projectID: {ID: projectID, Name: "Apollo", CreatedBy: adminID},
			8:         {ID: 8, Name: "Gemini", CreatedBy: adminID},
			9:         {ID: 9, Name: "Archived", CreatedBy: adminID, IsDeleted: true},
		}},
		users: newFakeUsers(
			models.User{ID: adminID, Name: "Admin", Email: "admin@example.com", RoleID: authz.RoleAdmin},
			models.User{ID: aliceID, Name: "Alice", Email: "alice@example.com", RoleID: authz.RoleUser},
			models.User{ID: bobID, Name: "Bob", Email: "bob@example.com", RoleID: authz.RoleUser},
		),
		notes:    &fakeNotifications{},
		activity: &fakeActivity{},
		fanout:   &recordingFanout{},
		channel:  &recordingChannel{},
		now:      time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	recorder := NewActivityRecorder(h.activity)
	recorder.now = func() time.Time { return h.now }
	h.svc = NewTaskService(TaskServiceDeps{
		Tasks:         h.tasks,
		Projects:      h.projects,
		Users:         h.users,
		Notifications: h.notes,
		Recorder:      recorder,
		Fanout:        h.fanout,
		Dispatcher:    &InlineDispatcher{OnError: func(e JobError) { h.jobErrs = append(h.jobErrs, e) }},
		Channels:      []NotificationChannel{h.channel},
		Now:           func() time.Time { return h.now },
	})
	return h
}

// seedTask stores an active task created by admin and assigned to assignee.
func (h *harness) seedTask(assignee int64) *models.Task {
	a := assignee
	return h.tasks.put(models.Task{
		ID:         50,
		Title:      "Write report",
		Status:     models.StatusTodo,
		Priority:   models.PriorityMedium,
		ProjectID:  projectID,
		AssignedTo: &a,
		CreatedBy:  adminID,
		CreatedAt:  h.now.Add(-time.Hour),
		UpdatedAt:  h.now.Add(-time.Hour),
	})
}

func ptr[T any](v T) *T { return &v }
