package engine

import (
	"context"

	"github.com/google/uuid"

	"taskhub/internal/activity"
	"taskhub/internal/authz"
	"taskhub/internal/domain"
	"taskhub/internal/repo"
)

func taskResource(t domain.Task) authz.ResourceContext {
	rc := authz.ResourceContext{OwnerID: t.CreatedBy, ProjectID: t.ProjectID}
	if t.TeamID != nil {
		rc.TeamID = *t.TeamID
	}
	return rc
}

// TaskInput carries the caller-editable fields of a task.
type TaskInput struct {
	ProjectID   string
	TeamID      *string
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *string
	AssigneeID  *string
}

// CreateTask creates a task in a project the caller can access.
func (e Engine) CreateTask(ctx context.Context, userID string, in TaskInput) (domain.Task, error) {
	if in.Title == "" || in.ProjectID == "" {
		return domain.Task{}, ErrFieldsRequired
	}
	if in.Status == "" {
		in.Status = "TODO"
	}
	if in.Priority == "" {
		in.Priority = "MEDIUM"
	}
	project, err := e.Repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	user, membership, err := e.UserContext(ctx, userID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := authz.Require(user, authz.ActionCreate, authz.ResourceTask, authz.ResourceContext{}); err != nil {
		return domain.Task{}, err
	}
	if !authz.CanAccessResource(user, authz.ResourceProject, projectResource(project), membership) {
		return domain.Task{}, authz.ForbiddenError{Action: authz.ActionCreate, ResourceType: authz.ResourceTask}
	}
	now := e.nowRFC3339()
	t := domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		TeamID:      in.TeamID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		AssigneeID:  in.AssigneeID,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	e.appendActivity(ctx, "task.created", userID, "task", t.ID, activity.Payload{"title": t.Title, "project_id": t.ProjectID})
	return t, nil
}

// GetTask returns one task if the caller can see it.
func (e Engine) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	user, membership, err := e.UserContext(ctx, userID)
	if err != nil {
		return domain.Task{}, err
	}
	if !authz.CanAccessResource(user, authz.ResourceTask, taskResource(t), membership) {
		return domain.Task{}, authz.ForbiddenError{Action: authz.ActionRead, ResourceType: authz.ResourceTask}
	}
	return t, nil
}

// ListTasks returns the tasks matching the filters that the caller can see.
func (e Engine) ListTasks(ctx context.Context, userID string, f repo.TaskFilters) ([]domain.Task, error) {
	all, err := e.Repo.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	user, membership, err := e.UserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	return authz.FilterResources(user, all, authz.ResourceTask, membership, taskResource), nil
}

// UpdateTask replaces the editable fields of a task. Empty input fields
// keep their current value.
func (e Engine) UpdateTask(ctx context.Context, userID, id string, in TaskInput) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	user, _, err := e.UserContext(ctx, userID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := authz.Require(user, authz.ActionUpdate, authz.ResourceTask, taskResource(t)); err != nil {
		return domain.Task{}, err
	}
	if in.Title != "" {
		t.Title = in.Title
	}
	if in.Description != "" {
		t.Description = in.Description
	}
	if in.Status != "" {
		t.Status = in.Status
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	if in.TeamID != nil {
		t.TeamID = in.TeamID
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.AssigneeID != nil {
		t.AssigneeID = in.AssigneeID
	}
	t.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	e.appendActivity(ctx, "task.updated", userID, "task", t.ID, activity.Payload{"title": t.Title, "status": t.Status})
	return t, nil
}

// DeleteTask removes a task.
func (e Engine) DeleteTask(ctx context.Context, userID, id string) error {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	user, _, err := e.UserContext(ctx, userID)
	if err != nil {
		return err
	}
	if err := authz.Require(user, authz.ActionDelete, authz.ResourceTask, taskResource(t)); err != nil {
		return err
	}
	if err := e.Repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	e.appendActivity(ctx, "task.deleted", userID, "task", id, activity.Payload{"title": t.Title})
	return nil
}
