package repo

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
)

// LatestActivity returns the newest feed entries, optionally filtered, in
// descending id order.
func (r Repo) LatestActivity(ctx context.Context, limit int, evtType, entityKind string) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id,ts,type,actor_id,entity_kind,COALESCE(entity_id,''),payload_json FROM activity`
	var args []any
	switch {
	case evtType != "" && entityKind != "":
		query += ` WHERE type=? AND entity_kind=?`
		args = append(args, evtType, entityKind)
	case evtType != "":
		query += ` WHERE type=?`
		args = append(args, evtType)
	case entityKind != "":
		query += ` WHERE entity_kind=?`
		args = append(args, entityKind)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	return r.listActivity(ctx, query, args...)
}

// ActivityAfter returns feed entries with id greater than cursor, ascending.
// The webhook dispatcher uses this for at-least-once delivery.
func (r Repo) ActivityAfter(ctx context.Context, limit int, cursor int64) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.listActivity(ctx,
		`SELECT id,ts,type,actor_id,entity_kind,COALESCE(entity_id,''),payload_json FROM activity WHERE id > ? ORDER BY id ASC LIMIT ?`,
		cursor, limit)
}

func (r Repo) LatestActivityID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM activity`).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (r Repo) listActivity(ctx context.Context, query string, args ...any) ([]domain.Activity, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.TS, &a.Type, &a.ActorID, &a.EntityKind, &a.EntityID, &a.Payload); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
