// Copyright (c) 2026 Maktaba. All rights reserved.

package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maktaba/maktaba/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	query := `
		SELECT id, type, data, read_at, created_at
		FROM notifications
		WHERE user_id = $1
	`
	countQuery := `SELECT count(*) FROM notifications WHERE user_id = $1`

	if unreadOnly {
		query += ` AND read_at IS NULL`
		countQuery += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var total int
	if err := repository.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_notifications")
	}

	rows, err := repository.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_notifications")
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{UserID: userID}
		if err := rows.Scan(&n.ID, &n.Type, &n.Data, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_notification")
		}
		notifications = append(notifications, n)
	}

	return notifications, total, rows.Err()
}

func (repository *PostgresRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := repository.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).
		Scan(&count)
	return count, dberr.Wrap(err, "count_unread_notifications")
}

func (repository *PostgresRepository) Insert(ctx context.Context, userID int64, notificationType string, data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("notification_encode_failed: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("notification_id_failed: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, data, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err = repository.db.Exec(ctx, query, id.String(), userID, notificationType, encoded)
	return dberr.Wrap(err, "insert_notification")
}

func (repository *PostgresRepository) MarkRead(ctx context.Context, userID int64, id string) error {
	cmd, err := repository.db.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		id, userID)
	if err != nil {
		return dberr.Wrap(err, "mark_notification_read")
	}
	if cmd.RowsAffected() == 0 {
		// Already read is fine; missing or foreign is not.
		var exists bool
		if err := repository.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`,
			id, userID).Scan(&exists); err != nil {
			return dberr.Wrap(err, "check_notification")
		}
		if !exists {
			return dberr.ErrNotFound
		}
	}
	return nil
}

func (repository *PostgresRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := repository.db.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	return dberr.Wrap(err, "mark_all_notifications_read")
}

func (repository *PostgresRepository) Delete(ctx context.Context, userID int64, id string) error {
	cmd, err := repository.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return dberr.Wrap(err, "delete_notification")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) DeleteAll(ctx context.Context, userID int64) error {
	_, err := repository.db.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1`, userID)
	return dberr.Wrap(err, "delete_all_notifications")
}
