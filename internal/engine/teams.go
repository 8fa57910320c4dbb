package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/activity"
	"taskhub/internal/authz"
	"taskhub/internal/cqrs"
	"taskhub/internal/domain"
	"taskhub/internal/repo"
)

func teamResource(t domain.Team) authz.ResourceContext {
	return authz.ResourceContext{OwnerID: t.OwnerID, TeamID: t.ID, ProjectID: t.ProjectID}
}

// CreateTeam creates a team inside a project. Allowed when the caller's
// role grants CREATE on teams, or when the caller owns the project.
func (e Engine) CreateTeam(ctx context.Context, userID, projectID, name, description string) (domain.Team, error) {
	if name == "" || projectID == "" {
		return domain.Team{}, ErrFieldsRequired
	}
	project, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Team{}, err
	}
	user, _, err := e.UserContext(ctx, userID)
	if err != nil {
		return domain.Team{}, err
	}
	if !authz.HasPermission(user, authz.ActionCreate, authz.ResourceTeam, authz.ResourceContext{}) && project.OwnerID != userID {
		return domain.Team{}, authz.ForbiddenError{Action: authz.ActionCreate, ResourceType: authz.ResourceTeam}
	}
	now := e.nowRFC3339()
	t := domain.Team{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		OwnerID:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertTeam(ctx, t); err != nil {
		return domain.Team{}, err
	}
	// The creator administers the team they created.
	if err := e.Repo.AddTeamMember(ctx, domain.TeamMember{
		TeamID:   t.ID,
		UserID:   userID,
		Role:     string(authz.RoleAdmin),
		JoinedAt: now,
	}); err != nil {
		return domain.Team{}, err
	}
	e.appendActivity(ctx, "team.created", userID, "team", t.ID, activity.Payload{"name": t.Name, "project_id": projectID})
	return t, nil
}

// GetTeam returns one team if the caller can see it.
func (e Engine) GetTeam(ctx context.Context, userID, id string) (domain.Team, error) {
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return domain.Team{}, err
	}
	user, membership, err := e.UserContext(ctx, userID)
	if err != nil {
		return domain.Team{}, err
	}
	if !authz.CanAccessResource(user, authz.ResourceTeam, teamResource(t), membership) {
		return domain.Team{}, authz.ForbiddenError{Action: authz.ActionRead, ResourceType: authz.ResourceTeam}
	}
	return t, nil
}

// ListTeams returns the teams visible to the caller, optionally scoped to
// one project.
func (e Engine) ListTeams(ctx context.Context, userID, projectID string) ([]domain.Team, error) {
	var all []domain.Team
	var err error
	if projectID != "" {
		all, err = e.Repo.ListTeamsByProject(ctx, projectID)
	} else {
		all, err = e.Repo.ListTeams(ctx)
	}
	if err != nil {
		return nil, err
	}
	user, membership, err := e.UserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	return authz.FilterResources(user, all, authz.ResourceTeam, membership, teamResource), nil
}

// UpdateTeam renames a team or changes its description.
func (e Engine) UpdateTeam(ctx context.Context, userID, id, name string, description *string) (domain.Team, error) {
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return domain.Team{}, err
	}
	if err := e.requireTeamManage(ctx, userID, t, authz.ActionUpdate); err != nil {
		return domain.Team{}, err
	}
	if err := e.Repo.UpdateTeam(ctx, id, name, description, e.nowRFC3339()); err != nil {
		return domain.Team{}, err
	}
	updated, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return domain.Team{}, err
	}
	e.appendActivity(ctx, "team.updated", userID, "team", id, activity.Payload{"name": updated.Name})
	return updated, nil
}

// DeleteTeam removes a team and its memberships.
func (e Engine) DeleteTeam(ctx context.Context, userID, id string) error {
	t, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return err
	}
	if err := e.requireTeamManage(ctx, userID, t, authz.ActionDelete); err != nil {
		return err
	}
	if err := e.Repo.DeleteTeam(ctx, id); err != nil {
		return err
	}
	e.appendActivity(ctx, "team.deleted", userID, "team", id, activity.Payload{"name": t.Name})
	return nil
}

// ListTeamMembers returns the member rows of a team the caller can see.
func (e Engine) ListTeamMembers(ctx context.Context, userID, teamID string) ([]domain.TeamMember, error) {
	if _, err := e.GetTeam(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return e.Repo.ListTeamMembers(ctx, teamID)
}

// RemoveTeamMember drops a user from a team. Members may remove themselves;
// anything else needs MANAGE on the team.
func (e Engine) RemoveTeamMember(ctx context.Context, userID, teamID, memberID string) error {
	t, err := e.Repo.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if memberID != userID {
		if err := e.requireTeamManage(ctx, userID, t, authz.ActionManage); err != nil {
			return err
		}
	}
	if err := e.Repo.RemoveTeamMember(ctx, teamID, memberID); err != nil {
		return err
	}
	e.appendActivity(ctx, "team.member_removed", userID, "team", teamID, activity.Payload{"member_id": memberID})
	return nil
}

// InviteToTeam issues a pending invitation and publishes the invite event,
// which delivers the email. Re-inviting an address with a pending invite
// returns the existing one instead of minting a duplicate.
func (e Engine) InviteToTeam(ctx context.Context, userID, teamID, email, role string) (domain.TeamInvite, error) {
	if email == "" || !emailPattern.MatchString(email) {
		return domain.TeamInvite{}, ErrInvalidEmail
	}
	if role == "" {
		role = string(authz.RoleMember)
	}
	t, err := e.Repo.GetTeam(ctx, teamID)
	if err != nil {
		return domain.TeamInvite{}, err
	}
	if err := e.requireTeamManage(ctx, userID, t, authz.ActionManage); err != nil {
		return domain.TeamInvite{}, err
	}
	if existing, err := e.Repo.PendingInvite(ctx, teamID, email); err == nil {
		return existing, nil
	} else if err != repo.ErrNotFound {
		return domain.TeamInvite{}, err
	}
	raw, err := e.Tokens.GenerateInvite(email, teamID, role)
	if err != nil {
		return domain.TeamInvite{}, err
	}
	now := e.now()
	inv := domain.TeamInvite{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Email:     email,
		Role:      role,
		Status:    "PENDING",
		Token:     raw,
		InvitedBy: userID,
		ExpiresAt: now.UTC().Add(time.Duration(e.Config.Auth.InviteTTLMinutes) * time.Minute).Format(time.RFC3339),
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertInvite(ctx, inv); err != nil {
		return domain.TeamInvite{}, err
	}
	project, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return domain.TeamInvite{}, err
	}
	inviter, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.TeamInvite{}, err
	}
	_ = e.Events.Publish(ctx, cqrs.NewEvent(EventTeamInviteSent, TeamInviteSentPayload{
		InviteID:      inv.ID,
		Email:         inv.Email,
		Role:          inv.Role,
		Token:         inv.Token,
		TeamName:      t.Name,
		ProjectName:   project.Name,
		InvitedByName: inviter.FirstName + " " + inviter.LastName,
		ExpiresAt:     inv.ExpiresAt,
	}, cqrs.Metadata{UserID: userID}))
	return inv, nil
}

// ListTeamInvites returns a team's invites for callers who manage it.
func (e Engine) ListTeamInvites(ctx context.Context, userID, teamID string) ([]domain.TeamInvite, error) {
	t, err := e.Repo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := e.requireTeamManage(ctx, userID, t, authz.ActionManage); err != nil {
		return nil, err
	}
	return e.Repo.ListInvitesByTeam(ctx, teamID)
}

// MyInvites returns the invites addressed to the caller's email.
func (e Engine) MyInvites(ctx context.Context, userID string) ([]domain.TeamInvite, error) {
	user, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.Repo.ListInvitesByEmail(ctx, user.Email)
}

// AcceptInvite joins the caller to the invited team. The invite must be
// addressed to the caller's email, pending, and unexpired.
func (e Engine) AcceptInvite(ctx context.Context, userID, inviteID string) (domain.TeamMember, error) {
	user, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.TeamMember{}, err
	}
	inv, err := e.Repo.GetInvite(ctx, inviteID)
	if err != nil {
		return domain.TeamMember{}, err
	}
	if inv.Email != user.Email || inv.Status != "PENDING" {
		return domain.TeamMember{}, ErrInviteInvalid
	}
	if expires, perr := time.Parse(time.RFC3339, inv.ExpiresAt); perr == nil && e.now().After(expires) {
		return domain.TeamMember{}, ErrInviteInvalid
	}
	member := domain.TeamMember{
		TeamID:   inv.TeamID,
		UserID:   userID,
		Role:     inv.Role,
		JoinedAt: e.nowRFC3339(),
	}
	if err := e.Repo.AddTeamMember(ctx, member); err != nil {
		return domain.TeamMember{}, err
	}
	if err := e.Repo.SetInviteStatus(ctx, inv.ID, "ACCEPTED"); err != nil {
		return domain.TeamMember{}, err
	}
	e.appendActivity(ctx, "team.member_joined", userID, "team", inv.TeamID, activity.Payload{"role": inv.Role})
	return member, nil
}

// DeclineInvite marks a pending invite addressed to the caller as declined.
func (e Engine) DeclineInvite(ctx context.Context, userID, inviteID string) error {
	user, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	inv, err := e.Repo.GetInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if inv.Email != user.Email || inv.Status != "PENDING" {
		return ErrInviteInvalid
	}
	return e.Repo.SetInviteStatus(ctx, inv.ID, "DECLINED")
}

// requireTeamManage checks action on the team, letting the project owner
// through as well: owning the project implies managing its teams.
func (e Engine) requireTeamManage(ctx context.Context, userID string, t domain.Team, action authz.Action) error {
	user, _, err := e.UserContext(ctx, userID)
	if err != nil {
		return err
	}
	if authz.HasPermission(user, action, authz.ResourceTeam, teamResource(t)) {
		return nil
	}
	if t.OwnerID == userID {
		return nil
	}
	if project, err := e.Repo.GetProject(ctx, t.ProjectID); err == nil && project.OwnerID == userID {
		return nil
	}
	return authz.ForbiddenError{Action: action, ResourceType: authz.ResourceTeam}
}
