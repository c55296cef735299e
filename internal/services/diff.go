package services

import (
	"strconv"
	"time"

	"taskhub/internal/models"
)

// Field names of the mutable task attributes, in diff order.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldDueDate     = "dueDate"
	FieldAssignedTo  = "assignedTo"
	FieldProjectID   = "projectId"
)

// DiffTask compares patch against task field by field and applies every
// differing value to task. Values are compared by their string form, so
// references compare by identifier. Fields absent from patch are skipped.
func DiffTask(task *models.Task, patch models.TaskPatch) []models.ChangeRecord {
	changes := []models.ChangeRecord{}
	if task == nil {
		return changes
	}

	record := func(field, oldV, newV string) bool {
		if oldV == newV {
			return false
		}
		changes = append(changes, models.ChangeRecord{Field: field, OldValue: oldV, NewValue: newV})
		return true
	}

	if patch.Title != nil && record(FieldTitle, task.Title, *patch.Title) {
		task.Title = *patch.Title
	}
	if patch.Description != nil && record(FieldDescription, task.Description, *patch.Description) {
		task.Description = *patch.Description
	}
	if patch.Status != nil && record(FieldStatus, string(task.Status), string(*patch.Status)) {
		task.Status = *patch.Status
	}
	if patch.Priority != nil && record(FieldPriority, string(task.Priority), string(*patch.Priority)) {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil && record(FieldDueDate, formatTime(task.DueDate), formatTime(patch.DueDate)) {
		if patch.DueDate.IsZero() {
			task.DueDate = nil
		} else {
			d := *patch.DueDate
			task.DueDate = &d
		}
	}
	if patch.AssignedTo != nil && record(FieldAssignedTo, formatRef(task.AssignedTo), formatRef(patch.AssignedTo)) {
		if *patch.AssignedTo == 0 {
			task.AssignedTo = nil
		} else {
			a := *patch.AssignedTo
			task.AssignedTo = &a
		}
	}
	if patch.ProjectID != nil && record(FieldProjectID, formatID(task.ProjectID), formatID(*patch.ProjectID)) {
		task.ProjectID = *patch.ProjectID
	}
	return changes
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatRef(id *int64) string {
	if id == nil || *id == 0 {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
