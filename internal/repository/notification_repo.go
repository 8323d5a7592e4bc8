package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pushdispatch/internal/model"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	query := `
        SELECT id, title, body, COALESCE(image_url, ''), COALESCE(deep_link, ''),
               target_platform, status, created_at, sent_at
        FROM notifications
        WHERE id = $1
    `
	var n model.Notification
	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.Title,
		&n.Body,
		&n.ImageURL,
		&n.DeepLink,
		&n.TargetPlatform,
		&n.Status,
		&n.CreatedAt,
		&n.SentAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotificationNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load notification", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &n, nil
}

// SetStatus finalizes the notification after a dispatch run. Re-dispatch
// overwrites the previous outcome.
func (r *NotificationRepository) SetStatus(ctx context.Context, id string, status model.NotificationStatus, sentAt time.Time) error {
	query := `UPDATE notifications SET status = $2, sent_at = $3 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, status, sentAt)
	if err != nil {
		r.logger.Error("Failed to update notification status",
			zap.String("id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	return err
}
