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

const (
	NameWeeklySummary = "weekly-summary"
	highlightCount    = 5
)

var summaryBody = template.Must(template.New("summary").Parse(`<p>Hello {{.Owner}},</p>
<p>Here is your summary for <strong>{{.Project}}</strong> ({{.From}} - {{.To}}):</p>
<ul>{{range .Counts}}<li><b>{{.Status}}</b>: {{.Count}}</li>{{end}}</ul>
<p>Total tasks this week: {{.Total}}</p>
<h4>Highlights:</h4>
<ul>{{range .Highlights}}<li><b>{{.Title}}</b> ({{.Status}}) - due: {{.Due}}</li>{{end}}</ul>
<p>&ndash; Task Manager System</p>
`))

type StatusCount struct {
	Status models.TaskStatus
	Count  int
}

type highlight struct {
	Title  string
	Status models.TaskStatus
	Due    string
}

// WeeklySummary mails each project owner the tasks created, updated or due
// in the current Monday-Sunday week. Projects without such tasks are skipped.
type WeeklySummary struct {
	Tasks    repositories.TaskRepository
	Projects repositories.ProjectRepository
	Users    repositories.UserRepository
	Mail     services.EmailService
	Now      func() time.Time
}

func (j *WeeklySummary) Name() string { return NameWeeklySummary }

func (j *WeeklySummary) Run(ctx context.Context) error {
	from, to := WeekRange(nowOr(j.Now))
	projects, err := j.Projects.List(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	sent := 0
	for i := range projects {
		p := &projects[i]
		tasks, err := j.Tasks.ListTouchedInProject(ctx, p.ID, from, to)
		if err != nil {
			log.Printf("[jobs][%s] project=%d tasks: %v", NameWeeklySummary, p.ID, err)
			continue
		}
		if len(tasks) == 0 {
			continue
		}
		owner, err := j.Users.GetByID(ctx, p.CreatedBy)
		if err != nil || owner.Email == "" {
			continue
		}
		body, err := renderSummary(owner, p, tasks, from, to)
		if err != nil {
			return err
		}
		err = j.Mail.Send(ctx, services.Mail{
			To:      owner.Email,
			Subject: "Weekly Summary: " + p.Name,
			Title:   "Your Weekly Project Summary",
			Body:    body,
		})
		if err != nil {
			log.Printf("[jobs][%s] project=%d mail: %v", NameWeeklySummary, p.ID, err)
			continue
		}
		sent++
	}
	log.Printf("[jobs][%s] sent %d summaries for %s..%s", NameWeeklySummary, sent,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	return nil
}

// CountByStatus groups tasks by status in workflow order, omitting empty buckets.
func CountByStatus(tasks []models.Task) []StatusCount {
	counts := map[models.TaskStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	var out []StatusCount
	for _, st := range []models.TaskStatus{models.StatusTodo, models.StatusInProgress, models.StatusDone} {
		if n := counts[st]; n > 0 {
			out = append(out, StatusCount{Status: st, Count: n})
		}
	}
	return out
}

func renderSummary(owner *models.User, p *models.Project, tasks []models.Task, from, to time.Time) (template.HTML, error) {
	name := owner.Name
	if name == "" {
		name = "Owner"
	}
	limit := len(tasks)
	if limit > highlightCount {
		limit = highlightCount
	}
	hl := make([]highlight, 0, limit)
	for _, t := range tasks[:limit] {
		due := "N/A"
		if t.DueDate != nil {
			due = t.DueDate.Format("Mon Jan 2 2006")
		}
		hl = append(hl, highlight{Title: t.Title, Status: t.Status, Due: due})
	}

	var buf bytes.Buffer
	err := summaryBody.Execute(&buf, struct {
		Owner, Project, From, To string
		Counts                   []StatusCount
		Total                    int
		Highlights               []highlight
	}{
		Owner:      name,
		Project:    p.Name,
		From:       from.Format("Mon Jan 2 2006"),
		To:         to.Format("Mon Jan 2 2006"),
		Counts:     CountByStatus(tasks),
		Total:      len(tasks),
		Highlights: hl,
	})
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return template.HTML(buf.String()), nil
}
