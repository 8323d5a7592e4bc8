package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pushdispatch/internal/model"
)

// DeliveryRepository appends audit rows to notification_deliveries. Rows are
// insert-only; nothing in this service reads them back.
type DeliveryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDeliveryRepository(db *pgxpool.Pool, logger *zap.Logger) *DeliveryRepository {
	return &DeliveryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DeliveryRepository) Insert(ctx context.Context, rec *model.DeliveryRecord) error {
	query := `
        INSERT INTO notification_deliveries
            (notification_id, token_id, platform, status, provider_message_id,
             error_code, error_message, endpoint, endpoint_host, browser, stage, created_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
                NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, NOW())
    `
	_, err := r.db.Exec(ctx, query,
		rec.NotificationID,
		rec.TokenID,
		rec.Platform,
		rec.Status,
		rec.ProviderMsgID,
		rec.ErrorCode,
		rec.ErrorMessage,
		rec.Endpoint,
		rec.EndpointHost,
		rec.Browser,
		rec.Stage,
	)
	if err != nil {
		r.logger.Error("Failed to insert delivery record",
			zap.String("notification_id", rec.NotificationID),
			zap.String("token_id", rec.TokenID),
			zap.Error(err),
		)
	}
	return err
}
