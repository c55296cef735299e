package services

import (
	"context"
	"log"
	"time"

	"taskhub/internal/metrics"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

// ActivityRecorder writes the audit trail. Writes are best effort: a failed
// insert is logged and never rolls back the task mutation.
type ActivityRecorder struct {
	repo repositories.ActivityLogRepository
	now  func() time.Time
}

func NewActivityRecorder(repo repositories.ActivityLogRepository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo, now: time.Now}
}

// Record stores one entry for a non-empty change list and returns it, or nil
// when nothing was written.
func (r *ActivityRecorder) Record(ctx context.Context, taskID, actorID int64, changes []models.ChangeRecord) *models.ActivityLog {
	if len(changes) == 0 {
		return nil
	}
	entry := &models.ActivityLog{
		TaskID:    taskID,
		UpdatedBy: actorID,
		Changes:   append(models.ChangeSet(nil), changes...),
		UpdatedAt: r.now(),
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		metrics.ActivityLogFailures.Inc()
		log.Printf("[activity][record][err] task=%d actor=%d fields=%d: %v", taskID, actorID, len(changes), err)
		return nil
	}
	log.Printf("[activity][record][ok] task=%d actor=%d id=%d", taskID, actorID, entry.ID)
	return entry
}

func (r *ActivityRecorder) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	out, err := r.repo.List(ctx, filter)
	if err != nil {
		return nil, persistence("list activity", err)
	}
	return out, nil
}
