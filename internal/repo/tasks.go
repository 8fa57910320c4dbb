package repo

import (
	"context"
	"database/sql"
	"strings"

	"taskhub/internal/domain"
)

const taskColumns = `id,project_id,team_id,title,COALESCE(description,'') AS description,status,priority,due_date,assignee_id,created_by,created_at,updated_at`

// TaskFilters narrows ListTasks.
type TaskFilters struct {
	ProjectID  string
	TeamID     string
	Status     string
	AssigneeID string
}

func scanTask(row *sql.Row) (domain.Task, error) {
	var t domain.Task
	var teamID, dueDate, assignee sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &teamID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&dueDate, &assignee, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.TeamID = strPtr(teamID)
	t.DueDate = strPtr(dueDate)
	t.AssigneeID = strPtr(assignee)
	return t, err
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tasks(id,project_id,team_id,title,description,status,priority,due_date,assignee_id,created_by,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, nullableStringPtr(t.TeamID), t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.DueDate), nullableStringPtr(t.AssigneeID), t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE tasks SET
  team_id=?, title=?, description=?, status=?, priority=?, due_date=?, assignee_id=?, updated_at=?
WHERE id=?`,
		nullableStringPtr(t.TeamID), t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.DueDate), nullableStringPtr(t.AssigneeID), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var conds []string
	var args []any
	if f.ProjectID != "" {
		conds = append(conds, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.TeamID != "" {
		conds = append(conds, "team_id=?")
		args = append(args, f.TeamID)
	}
	if f.Status != "" {
		conds = append(conds, "status=?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		conds = append(conds, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		var t domain.Task
		var teamID, dueDate, assignee sql.NullString
		if err := rows.Scan(&t.ID, &t.ProjectID, &teamID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&dueDate, &assignee, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.TeamID = strPtr(teamID)
		t.DueDate = strPtr(dueDate)
		t.AssigneeID = strPtr(assignee)
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) CountTasksByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks WHERE project_id=? GROUP BY status`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
