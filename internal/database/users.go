package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, restaurant_id, email, password_hash, full_name, role, status, subscription_end_date, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.RestaurantID, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.Status, &u.SubscriptionEndDate, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	RestaurantID        pgtype.UUID
	Email               string
	PasswordHash        string
	FullName            string
	Role                string
	Status              string
	SubscriptionEndDate pgtype.Date
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	const sql = `INSERT INTO users (id, restaurant_id, email, password_hash, full_name, role, status, subscription_end_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + userColumns
	return scanUser(q.db.QueryRow(ctx, sql,
		uuid.New(), arg.RestaurantID, arg.Email, arg.PasswordHash, arg.FullName,
		arg.Role, arg.Status, arg.SubscriptionEndDate,
	))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const sql = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.db.QueryRow(ctx, sql, email))
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	const sql = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) ListUsersByStatus(ctx context.Context, status string) ([]User, error) {
	const sql = `SELECT ` + userColumns + ` FROM users WHERE status = $1 ORDER BY created_at`
	rows, err := q.db.Query(ctx, sql, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateUserStatus(ctx context.Context, arg UpdateUserStatusParams) (User, error) {
	const sql = `UPDATE users SET status = $2, updated_at = now()
	WHERE id = $1 AND status = 'PENDING'
	RETURNING ` + userColumns
	return scanUser(q.db.QueryRow(ctx, sql, arg.ID, arg.Status))
}

type UpdateSubscriptionParams struct {
	ID                  uuid.UUID
	SubscriptionEndDate pgtype.Date
}

func (q *Queries) UpdateSubscription(ctx context.Context, arg UpdateSubscriptionParams) (User, error) {
	const sql = `UPDATE users SET subscription_end_date = $2, updated_at = now()
	WHERE id = $1
	RETURNING ` + userColumns
	return scanUser(q.db.QueryRow(ctx, sql, arg.ID, arg.SubscriptionEndDate))
}

type ListExpiringSubscriptionsParams struct {
	From time.Time
	To   time.Time
}

// ListExpiringSubscriptions returns approved tenant users whose subscription
// ends inside the [From, To] window (inclusive).
func (q *Queries) ListExpiringSubscriptions(ctx context.Context, arg ListExpiringSubscriptionsParams) ([]User, error) {
	const sql = `SELECT ` + userColumns + ` FROM users
	WHERE status = 'APPROVED'
	  AND subscription_end_date IS NOT NULL
	  AND subscription_end_date >= $1::date
	  AND subscription_end_date <= $2::date
	ORDER BY subscription_end_date`
	rows, err := q.db.Query(ctx, sql, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
