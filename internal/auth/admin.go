package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AdminChecker asks the datastore's is_admin function whether a subject may
// dispatch notifications. Results are cached briefly in Redis so a burst of
// resends does not hammer the function.
type AdminChecker struct {
	db     *pgxpool.Pool
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewAdminChecker(db *pgxpool.Pool, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *AdminChecker {
	return &AdminChecker{
		db:     db,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func adminCacheKey(userID string) string {
	return "push:is_admin:" + userID
}

func (a *AdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if a.rdb != nil {
		if v, err := a.rdb.Get(ctx, adminCacheKey(userID)).Result(); err == nil {
			return v == "1", nil
		}
	}

	var isAdmin bool
	if err := a.db.QueryRow(ctx, `SELECT is_admin($1)`, userID).Scan(&isAdmin); err != nil {
		return false, fmt.Errorf("is_admin check failed: %w", err)
	}

	if a.rdb != nil {
		v := "0"
		if isAdmin {
			v = "1"
		}
		if err := a.rdb.Set(ctx, adminCacheKey(userID), v, a.ttl).Err(); err != nil {
			a.logger.Warn("Failed to cache admin check", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return isAdmin, nil
}
