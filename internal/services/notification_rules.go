package services

import (
	"fmt"

	"taskhub/internal/authz"
	"taskhub/internal/models"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Intent is a notification that has not been persisted yet.
type Intent struct {
	RecipientID int64
	Message     string
	Type        models.NotificationType
	TaskID      int64
	ProjectID   int64
}

// RuleInput describes one mutation. Task is the state after the mutation
// for create and update, and the state before it for delete.
type RuleInput struct {
	Task      *models.Task
	Actor     authz.Actor
	Operation Operation
	Changes   []models.ChangeRecord
}

type rule func(in RuleInput) []Intent

// rules fire in this order; every applicable rule fires.
var rules = []rule{
	assignedOnCreate,
	assignedOnReassign,
	updatedForAssignee,
	updatedForCreator,
	deletedForAssignee,
}

// EvaluateRules returns the intents for a mutation, without intents that
// have no recipient and with at most one intent per (recipient, type).
// The first intent for a pair wins.
func EvaluateRules(in RuleInput) []Intent {
	if in.Task == nil {
		return nil
	}
	type key struct {
		recipient int64
		typ       models.NotificationType
	}
	seen := make(map[key]struct{})
	var out []Intent
	for _, r := range rules {
		for _, it := range r(in) {
			if it.RecipientID == 0 {
				continue
			}
			k := key{it.RecipientID, it.Type}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, it)
		}
	}
	return out
}

func intentFor(t *models.Task, recipient int64, typ models.NotificationType, msg string) Intent {
	return Intent{
		RecipientID: recipient,
		Message:     msg,
		Type:        typ,
		TaskID:      t.ID,
		ProjectID:   t.ProjectID,
	}
}

func assignedOnCreate(in RuleInput) []Intent {
	if in.Operation != OpCreate {
		return nil
	}
	return []Intent{intentFor(in.Task, in.Task.AssigneeID(), models.NotificationTaskAssigned,
		fmt.Sprintf("You have been assigned a new task: %q", in.Task.Title))}
}

func assignedOnReassign(in RuleInput) []Intent {
	if in.Operation != OpUpdate || !models.ChangeSet(in.Changes).Has(FieldAssignedTo) {
		return nil
	}
	return []Intent{intentFor(in.Task, in.Task.AssigneeID(), models.NotificationTaskAssigned,
		fmt.Sprintf("You have been assigned to task %q", in.Task.Title))}
}

func updatedForAssignee(in RuleInput) []Intent {
	if in.Operation != OpUpdate || len(in.Changes) == 0 {
		return nil
	}
	if in.Task.AssigneeID() == in.Actor.ID {
		return nil
	}
	return []Intent{intentFor(in.Task, in.Task.AssigneeID(), models.NotificationTaskUpdated,
		fmt.Sprintf("Task %q has been updated", in.Task.Title))}
}

func updatedForCreator(in RuleInput) []Intent {
	if in.Operation != OpUpdate || len(in.Changes) == 0 {
		return nil
	}
	if in.Actor.IsAdmin() || in.Task.CreatedBy == in.Actor.ID {
		return nil
	}
	name := in.Actor.Name
	if name == "" {
		name = fmt.Sprintf("user #%d", in.Actor.ID)
	}
	return []Intent{intentFor(in.Task, in.Task.CreatedBy, models.NotificationTaskUpdated,
		fmt.Sprintf("Task %q was updated by %s", in.Task.Title, name))}
}

func deletedForAssignee(in RuleInput) []Intent {
	if in.Operation != OpDelete {
		return nil
	}
	return []Intent{intentFor(in.Task, in.Task.AssigneeID(), models.NotificationTaskDeleted,
		fmt.Sprintf("Task %q has been deleted", in.Task.Title))}
}
