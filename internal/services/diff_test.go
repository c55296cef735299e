package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
)

func baseTask() *models.Task {
	due := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	return &models.Task{
		ID:          1,
		Title:       "Draft",
		Description: "first pass",
		Status:      models.StatusTodo,
		Priority:    models.PriorityLow,
		DueDate:     &due,
		ProjectID:   7,
		AssignedTo:  ptr(int64(2)),
	}
}

func TestDiffTask_AllFieldsInOrder(t *testing.T) {
	task := baseTask()
	newDue := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	changes := DiffTask(task, models.TaskPatch{
		ProjectID:   ptr(int64(8)),
		AssignedTo:  ptr(int64(3)),
		DueDate:     &newDue,
		Priority:    ptr(models.PriorityHigh),
		Status:      ptr(models.StatusDone),
		Description: ptr("second pass"),
		Title:       ptr("Final"),
	})

	require.Len(t, changes, 7)
	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	assert.Equal(t, []string{
		FieldTitle, FieldDescription, FieldStatus, FieldPriority,
		FieldDueDate, FieldAssignedTo, FieldProjectID,
	}, fields)

	assert.Equal(t, models.ChangeRecord{Field: FieldDueDate, OldValue: "2025-04-01T09:00:00Z", NewValue: "2025-04-02T09:00:00Z"}, changes[4])
	assert.Equal(t, models.ChangeRecord{Field: FieldAssignedTo, OldValue: "2", NewValue: "3"}, changes[5])
	assert.Equal(t, models.ChangeRecord{Field: FieldProjectID, OldValue: "7", NewValue: "8"}, changes[6])

	assert.Equal(t, "Final", task.Title)
	assert.Equal(t, models.StatusDone, task.Status)
	assert.Equal(t, int64(3), task.AssigneeID())
	assert.Equal(t, int64(8), task.ProjectID)
	assert.True(t, task.DueDate.Equal(newDue))
}

func TestDiffTask_IdenticalPayloadIsEmpty(t *testing.T) {
	task := baseTask()
	same := *task.DueDate
	before := *task

	changes := DiffTask(task, models.TaskPatch{
		Title:      ptr("Draft"),
		Status:     ptr(models.StatusTodo),
		DueDate:    &same,
		AssignedTo: ptr(int64(2)),
		ProjectID:  ptr(int64(7)),
	})

	assert.NotNil(t, changes)
	assert.Empty(t, changes)
	assert.Equal(t, before.Title, task.Title)
	assert.Equal(t, before.AssignedTo, task.AssignedTo)
}

func TestDiffTask_EmptyPatch(t *testing.T) {
	changes := DiffTask(baseTask(), models.TaskPatch{})
	assert.Empty(t, changes)
}

func TestDiffTask_DueDateComparedInUTC(t *testing.T) {
	task := baseTask()
	// same instant, different zone
	loc := time.FixedZone("UTC+5", 5*3600)
	sameInstant := task.DueDate.In(loc)

	assert.Empty(t, DiffTask(task, models.TaskPatch{DueDate: &sameInstant}))
}

func TestDiffTask_ClearsDueDateAndAssignee(t *testing.T) {
	task := baseTask()

	changes := DiffTask(task, models.TaskPatch{
		DueDate:    &time.Time{},
		AssignedTo: ptr(int64(0)),
	})

	require.Len(t, changes, 2)
	assert.Equal(t, "", changes[0].NewValue)
	assert.Equal(t, "", changes[1].NewValue)
	assert.Nil(t, task.DueDate)
	assert.Nil(t, task.AssignedTo)
}

func TestDiffTask_WhitespaceDifferenceCounts(t *testing.T) {
	task := baseTask()
	changes := DiffTask(task, models.TaskPatch{Description: ptr("first pass ")})
	require.Len(t, changes, 1)
	assert.Equal(t, FieldDescription, changes[0].Field)
}

func TestDiffTask_NilTask(t *testing.T) {
	assert.Empty(t, DiffTask(nil, models.TaskPatch{Title: ptr("x")}))
}
