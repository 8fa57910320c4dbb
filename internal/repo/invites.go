package repo

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
)

const inviteColumns = `id,team_id,email,role,status,token,invited_by,expires_at,created_at`

func scanInvite(row *sql.Row) (domain.TeamInvite, error) {
	var inv domain.TeamInvite
	err := row.Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Status, &inv.Token, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return inv, ErrNotFound
	}
	return inv, err
}

func (r Repo) InsertInvite(ctx context.Context, inv domain.TeamInvite) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO team_invites(`+inviteColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		inv.ID, inv.TeamID, inv.Email, inv.Role, inv.Status, inv.Token, inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt)
	return err
}

func (r Repo) GetInvite(ctx context.Context, id string) (domain.TeamInvite, error) {
	return scanInvite(r.DB.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM team_invites WHERE id=?`, id))
}

func (r Repo) GetInviteByToken(ctx context.Context, token string) (domain.TeamInvite, error) {
	return scanInvite(r.DB.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM team_invites WHERE token=?`, token))
}

// PendingInvite finds an open invite for an email on a team.
func (r Repo) PendingInvite(ctx context.Context, teamID, email string) (domain.TeamInvite, error) {
	return scanInvite(r.DB.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM team_invites WHERE team_id=? AND email=? AND status='PENDING'`, teamID, email))
}

func (r Repo) ListInvitesByEmail(ctx context.Context, email string) ([]domain.TeamInvite, error) {
	return r.listInvites(ctx, `SELECT `+inviteColumns+` FROM team_invites WHERE email=? ORDER BY created_at DESC`, email)
}

func (r Repo) ListInvitesByTeam(ctx context.Context, teamID string) ([]domain.TeamInvite, error) {
	return r.listInvites(ctx, `SELECT `+inviteColumns+` FROM team_invites WHERE team_id=? ORDER BY created_at DESC`, teamID)
}

func (r Repo) listInvites(ctx context.Context, query string, args ...any) ([]domain.TeamInvite, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TeamInvite
	for rows.Next() {
		var inv domain.TeamInvite
		if err := rows.Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Status, &inv.Token, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

func (r Repo) SetInviteStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE team_invites SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
