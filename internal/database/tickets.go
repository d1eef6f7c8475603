package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ticketColumns = `id, restaurant_id, user_id, subject, message, reply, status, created_at, updated_at`

func scanTicket(row interface{ Scan(dest ...any) error }) (SupportTicket, error) {
	var t SupportTicket
	err := row.Scan(
		&t.ID, &t.RestaurantID, &t.UserID, &t.Subject, &t.Message,
		&t.Reply, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

type CreateTicketParams struct {
	RestaurantID uuid.UUID
	UserID       uuid.UUID
	Subject      string
	Message      string
}

func (q *Queries) CreateTicket(ctx context.Context, arg CreateTicketParams) (SupportTicket, error) {
	const sql = `INSERT INTO support_tickets (id, restaurant_id, user_id, subject, message, status)
	VALUES ($1, $2, $3, $4, $5, 'OPEN')
	RETURNING ` + ticketColumns
	return scanTicket(q.db.QueryRow(ctx, sql,
		uuid.New(), arg.RestaurantID, arg.UserID, arg.Subject, arg.Message,
	))
}

func (q *Queries) ListTicketsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]SupportTicket, error) {
	const sql = `SELECT ` + ticketColumns + ` FROM support_tickets
	WHERE restaurant_id = $1 ORDER BY created_at DESC`
	rows, err := q.db.Query(ctx, sql, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []SupportTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (q *Queries) ListAllTickets(ctx context.Context) ([]SupportTicket, error) {
	const sql = `SELECT ` + ticketColumns + ` FROM support_tickets ORDER BY created_at DESC`
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []SupportTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

type AnswerTicketParams struct {
	ID    uuid.UUID
	Reply pgtype.Text
}

func (q *Queries) AnswerTicket(ctx context.Context, arg AnswerTicketParams) (SupportTicket, error) {
	const sql = `UPDATE support_tickets
	SET reply = $2, status = 'ANSWERED', updated_at = now()
	WHERE id = $1 AND status = 'OPEN'
	RETURNING ` + ticketColumns
	return scanTicket(q.db.QueryRow(ctx, sql, arg.ID, arg.Reply))
}

func (q *Queries) CloseTicket(ctx context.Context, id uuid.UUID) (SupportTicket, error) {
	const sql = `UPDATE support_tickets
	SET status = 'CLOSED', updated_at = now()
	WHERE id = $1 AND status <> 'CLOSED'
	RETURNING ` + ticketColumns
	return scanTicket(q.db.QueryRow(ctx, sql, id))
}
