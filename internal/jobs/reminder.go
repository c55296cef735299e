package jobs

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"taskhub/internal/models"
	"taskhub/internal/repositories"
	"taskhub/internal/services"
)

const NameDailyReminder = "daily-reminder"

var reminderBody = template.Must(template.New("reminder").Parse(`<p>Hi {{.Name}},</p>
<p>Your task <strong>{{.Task}}</strong> in project <strong>{{.Project}}</strong> is due by <strong>{{.Due}}</strong>.</p>
<p>Please make sure to complete it on time.</p>
<p>&ndash; Task Manager</p>
`))

// DailyReminder mails every assignee whose open task is due in the next 24 hours.
type DailyReminder struct {
	Tasks    repositories.TaskRepository
	Projects repositories.ProjectRepository
	Users    repositories.UserRepository
	Mail     services.EmailService
	Now      func() time.Time
}

func (j *DailyReminder) Name() string { return NameDailyReminder }

func (j *DailyReminder) Run(ctx context.Context) error {
	now := nowOr(j.Now)
	tasks, err := j.Tasks.ListDueBetween(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("list due tasks: %w", err)
	}

	sent := 0
	projects := map[int64]string{}
	for i := range tasks {
		t := &tasks[i]
		user, err := j.Users.GetByID(ctx, t.AssigneeID())
		if err != nil {
			log.Printf("[jobs][%s] task=%d assignee lookup: %v", NameDailyReminder, t.ID, err)
			continue
		}
		if user.Email == "" {
			continue
		}
		body, err := renderReminder(user, t, j.projectName(ctx, projects, t.ProjectID))
		if err != nil {
			return err
		}
		err = j.Mail.Send(ctx, services.Mail{
			To:      user.Email,
			Subject: "Task Reminder: Upcoming Due Date",
			Title:   fmt.Sprintf("Reminder: %s is due soon", t.Title),
			Body:    body,
		})
		if err != nil {
			log.Printf("[jobs][%s] task=%d mail: %v", NameDailyReminder, t.ID, err)
			continue
		}
		sent++
	}
	log.Printf("[jobs][%s] sent %d of %d reminders", NameDailyReminder, sent, len(tasks))
	return nil
}

func (j *DailyReminder) projectName(ctx context.Context, cache map[int64]string, id int64) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := "unknown project"
	if p, err := j.Projects.FindByID(ctx, id); err == nil {
		name = p.Name
	}
	cache[id] = name
	return name
}

func renderReminder(user *models.User, t *models.Task, project string) (template.HTML, error) {
	name := user.Name
	if name == "" {
		name = "User"
	}
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.Format("Jan 2, 2006 15:04 MST")
	}
	var buf bytes.Buffer
	err := reminderBody.Execute(&buf, map[string]string{
		"Name":    name,
		"Task":    t.Title,
		"Project": project,
		"Due":     due,
	})
	if err != nil {
		return "", fmt.Errorf("render reminder: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func nowOr(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
