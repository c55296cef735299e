package authz

import "taskhub/internal/models"

type Action string

const (
	ActionTaskCreate Action = "task:create"
	ActionTaskUpdate Action = "task:update"
	ActionTaskDelete Action = "task:delete"
	ActionTaskView   Action = "task:view"

	ActionProjectManage Action = "project:manage"
	ActionProjectUpdate Action = "project:update"
	ActionActivityRead  Action = "activity:read"

	ActionNotificationReadAll Action = "notification:read-all"
	ActionNotificationModify  Action = "notification:modify"

	ActionJoinUserRoom Action = "realtime:join-user"
)

// Actor is the authenticated caller of a mutation.
type Actor struct {
	ID     int64
	RoleID int
	Name   string
}

func (a Actor) IsAdmin() bool {
	return IsAdmin(a.RoleID)
}

// Resource carries the one attribute the policy looks at: the user that
// owns it (task assignee, project creator, notification recipient, room owner).
type Resource struct {
	OwnerID int64
}

func TaskResource(t *models.Task) Resource {
	return Resource{OwnerID: t.AssigneeID()}
}

func ProjectResource(p *models.Project) Resource {
	return Resource{OwnerID: p.CreatedBy}
}

func NotificationResource(n *models.Notification) Resource {
	return Resource{OwnerID: n.UserID}
}

func UserResource(userID int64) Resource {
	return Resource{OwnerID: userID}
}

// Can is the single place where role branching lives.
func Can(actor Actor, action Action, res Resource) bool {
	if actor.ID == 0 || !IsKnownRole(actor.RoleID) {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	switch action {
	case ActionTaskUpdate, ActionTaskView, ActionProjectUpdate, ActionNotificationModify, ActionJoinUserRoom:
		return res.OwnerID != 0 && res.OwnerID == actor.ID
	}
	return false
}
