package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pushdispatch/internal/model"
)

type TokenRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTokenRepository(db *pgxpool.Pool, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{
		db:     db,
		logger: logger,
	}
}

// ListEnabled returns the enabled tokens for the given platform set,
// optionally narrowed to one device or one token row. Disabled tokens are
// never selected. Ordered by creation time so dispatch iteration and the
// delivery log stay deterministic.
func (r *TokenRepository) ListEnabled(ctx context.Context, platforms []model.Platform, deviceID, tokenID string) ([]model.DeviceToken, error) {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}

	query := `
        SELECT id, token, platform, device_id, enabled, created_at
        FROM device_push_tokens
        WHERE enabled = TRUE AND platform = ANY($1)
    `
	args := []any{names}
	if deviceID != "" {
		args = append(args, deviceID)
		query += fmt.Sprintf(" AND device_id = $%d", len(args))
	}
	if tokenID != "" {
		args = append(args, tokenID)
		query += fmt.Sprintf(" AND id = $%d", len(args))
	}
	query += " ORDER BY created_at"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query device tokens", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var tokens []model.DeviceToken
	for rows.Next() {
		var t model.DeviceToken
		if err := rows.Scan(&t.ID, &t.Token, &t.Platform, &t.DeviceID, &t.Enabled, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Disable flips enabled off for a token a provider reported permanently
// gone. Idempotent; nothing else ever re-enables a token here.
func (r *TokenRepository) Disable(ctx context.Context, id string) error {
	query := `UPDATE device_push_tokens SET enabled = FALSE WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to disable device token", zap.String("token_id", id), zap.Error(err))
		return err
	}
	r.logger.Info("Device token disabled", zap.String("token_id", id))
	return nil
}
