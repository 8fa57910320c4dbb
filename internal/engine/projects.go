package engine

import (
	"context"

	"github.com/google/uuid"

	"taskhub/internal/activity"
	"taskhub/internal/authz"
	"taskhub/internal/domain"
)

func projectResource(p domain.Project) authz.ResourceContext {
	return authz.ResourceContext{OwnerID: p.OwnerID, ProjectID: p.ID}
}

// CreateProject creates a project owned by the caller. Any authenticated
// user may create one; the owner then carries UPDATE, DELETE and MANAGE on
// it through the ownership override.
func (e Engine) CreateProject(ctx context.Context, userID, name, description string) (domain.Project, error) {
	if name == "" {
		return domain.Project{}, ErrFieldsRequired
	}
	now := e.nowRFC3339()
	p := domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      "ACTIVE",
		OwnerID:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	e.appendActivity(ctx, "project.created", userID, "project", p.ID, activity.Payload{"name": p.Name})
	return p, nil
}

// GetProject returns one project if the caller can see it.
func (e Engine) GetProject(ctx context.Context, userID, id string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	user, membership, err := e.UserContext(ctx, userID)
	if err != nil {
		return domain.Project{}, err
	}
	if !authz.CanAccessResource(user, authz.ResourceProject, projectResource(p), membership) {
		return domain.Project{}, authz.ForbiddenError{Action: authz.ActionRead, ResourceType: authz.ResourceProject}
	}
	return p, nil
}

// ListProjects returns the projects visible to the caller.
func (e Engine) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	all, err := e.Repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	user, membership, err := e.UserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	return authz.FilterResources(user, all, authz.ResourceProject, membership, projectResource), nil
}

// UpdateProject applies partial changes. Empty fields keep their current
// value; a nil description is left untouched.
func (e Engine) UpdateProject(ctx context.Context, userID, id, name, status string, description *string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	user, _, err := e.UserContext(ctx, userID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := authz.Require(user, authz.ActionUpdate, authz.ResourceProject, projectResource(p)); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.UpdateProject(ctx, id, name, status, description, e.nowRFC3339()); err != nil {
		return domain.Project{}, err
	}
	updated, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	e.appendActivity(ctx, "project.updated", userID, "project", id, activity.Payload{"name": updated.Name})
	return updated, nil
}

// DeleteProject removes a project and, through foreign keys, its teams and
// tasks.
func (e Engine) DeleteProject(ctx context.Context, userID, id string) error {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	user, _, err := e.UserContext(ctx, userID)
	if err != nil {
		return err
	}
	if err := authz.Require(user, authz.ActionDelete, authz.ResourceProject, projectResource(p)); err != nil {
		return err
	}
	if err := e.Repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	e.appendActivity(ctx, "project.deleted", userID, "project", id, activity.Payload{"name": p.Name})
	return nil
}

// ProjectStats returns the task counts per status for one project.
func (e Engine) ProjectStats(ctx context.Context, userID, id string) (map[string]int, error) {
	if _, err := e.GetProject(ctx, userID, id); err != nil {
		return nil, err
	}
	return e.Repo.CountTasksByStatus(ctx, id)
}

// appendActivity records a feed entry, logging instead of failing: the feed
// is an observer of mutations, not a participant.
func (e Engine) appendActivity(ctx context.Context, evtType, actorID, entityKind, entityID string, payload activity.Payload) {
	if err := e.Activity.Append(ctx, evtType, actorID, entityKind, entityID, payload); err != nil {
		e.Logger.Printf("activity append %s failed: %v", evtType, err)
	}
}
