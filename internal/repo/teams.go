package repo

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
)

const teamColumns = `id,project_id,name,COALESCE(description,'') AS description,owner_id,created_at,updated_at`

func scanTeam(row *sql.Row) (domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertTeam(ctx context.Context, t domain.Team) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO teams(id,project_id,name,description,owner_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.Name, nullable(t.Description), t.OwnerID, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	return scanTeam(r.DB.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id=?`, id))
}

func (r Repo) ListTeamsByProject(ctx context.Context, projectID string) ([]domain.Team, error) {
	return r.listTeams(ctx, `SELECT `+teamColumns+` FROM teams WHERE project_id=? ORDER BY created_at DESC`, projectID)
}

func (r Repo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	return r.listTeams(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY created_at DESC`)
}

func (r Repo) listTeams(ctx context.Context, query string, args ...any) ([]domain.Team, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateTeam(ctx context.Context, id, name string, description *string, now string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE teams SET
  name = COALESCE(NULLIF(?, ''), name),
  description = COALESCE(?, description),
  updated_at = ?
WHERE id=?`, name, nullableStringPtr(description), now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r Repo) DeleteTeam(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM teams WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// AddTeamMember inserts or updates a membership row.
func (r Repo) AddTeamMember(ctx context.Context, m domain.TeamMember) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO team_members(team_id,user_id,role,joined_at) VALUES (?,?,?,?)
ON CONFLICT(team_id,user_id) DO UPDATE SET role=excluded.role`,
		m.TeamID, m.UserID, m.Role, m.JoinedAt)
	return err
}

func (r Repo) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM team_members WHERE team_id=? AND user_id=?`, teamID, userID)
	return err
}

func (r Repo) ListTeamMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT team_id,user_id,role,joined_at FROM team_members WHERE team_id=? ORDER BY joined_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TeamMember
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// GetTeamMember returns the membership row for one user in one team.
func (r Repo) GetTeamMember(ctx context.Context, teamID, userID string) (domain.TeamMember, error) {
	var m domain.TeamMember
	err := r.DB.QueryRowContext(ctx, `SELECT team_id,user_id,role,joined_at FROM team_members WHERE team_id=? AND user_id=?`,
		teamID, userID).Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

// UserMembership loads the team-id and project-id sets a user is linked to,
// for visibility checks.
func (r Repo) UserMembership(ctx context.Context, userID string) (map[string]struct{}, map[string]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT tm.team_id, t.project_id
FROM team_members tm
JOIN teams t ON t.id = tm.team_id
WHERE tm.user_id=?`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	teams := make(map[string]struct{})
	projects := make(map[string]struct{})
	for rows.Next() {
		var teamID, projectID string
		if err := rows.Scan(&teamID, &projectID); err != nil {
			return nil, nil, err
		}
		teams[teamID] = struct{}{}
		projects[projectID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	// Owned projects count as membership even without a team link.
	prows, err := r.DB.QueryContext(ctx, `SELECT id FROM projects WHERE owner_id=?`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var id string
		if err := prows.Scan(&id); err != nil {
			return nil, nil, err
		}
		projects[id] = struct{}{}
	}
	return teams, projects, prows.Err()
}

// HighestRole returns the strongest team role the user holds anywhere,
// defaulting to MEMBER.
func (r Repo) HighestRole(ctx context.Context, userID string) (string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT role FROM team_members WHERE user_id=?`, userID)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	best := "MEMBER"
	rank := map[string]int{"MEMBER": 0, "MANAGER": 1, "ADMIN": 2}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return "", err
		}
		if rank[role] > rank[best] {
			best = role
		}
	}
	return best, rows.Err()
}
