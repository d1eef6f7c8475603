package database

import (
	"context"

	"github.com/google/uuid"
)

type InsertAlertParams struct {
	ID      string
	UserID  uuid.UUID
	Kind    string
	Message string
}

// InsertAlertIfAbsent creates the alert only when its deterministic id does
// not exist yet, so repeated dashboard loads never duplicate a notice.
// Returns true when a new row was inserted.
func (q *Queries) InsertAlertIfAbsent(ctx context.Context, arg InsertAlertParams) (bool, error) {
	const sql = `INSERT INTO alerts (id, user_id, kind, message)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING`
	tag, err := q.db.Exec(ctx, sql, arg.ID, arg.UserID, arg.Kind, arg.Message)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) ListAlertsByUser(ctx context.Context, userID uuid.UUID) ([]Alert, error) {
	const sql = `SELECT id, user_id, kind, message, created_at
	FROM alerts WHERE user_id = $1
	ORDER BY created_at DESC`
	rows, err := q.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (q *Queries) DeleteAlert(ctx context.Context, id string) error {
	const sql = `DELETE FROM alerts WHERE id = $1`
	_, err := q.db.Exec(ctx, sql, id)
	return err
}
