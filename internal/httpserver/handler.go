package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pushdispatch/internal/auth"
	"pushdispatch/internal/dispatch"
	"pushdispatch/internal/model"
	"pushdispatch/pkg/logger"
)

// Dispatcher runs one dispatch; implemented by dispatch.Orchestrator.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// AdminCheck decides whether a subject may dispatch; implemented by
// auth.AdminChecker.
type AdminCheck interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type DispatchHandler struct {
	dispatcher Dispatcher
	verifier   *auth.Verifier
	admins     AdminCheck
	logger     *zap.Logger
}

func NewDispatchHandler(dispatcher Dispatcher, verifier *auth.Verifier, admins AdminCheck, log *zap.Logger) *DispatchHandler {
	return &DispatchHandler{
		dispatcher: dispatcher,
		verifier:   verifier,
		admins:     admins,
		logger:     log,
	}
}

type sendRequest struct {
	Action         string `json:"action"`
	NotificationID string `json:"notificationId"`
	Platform       string `json:"platform"`
	DeviceID       string `json:"deviceId"`
	TokenID        string `json:"tokenId"`
	DryRun         bool   `json:"dryRun"`
}

// Send handles POST /v1/notifications/send. The auth check runs inside the
// handler rather than as route middleware because the health action shares
// the endpoint and must stay reachable without a token.
func (h *DispatchHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	if req.Action == "health" {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	tokenStr := auth.ExtractToken(c.Request)
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
		return
	}
	sub, err := h.verifier.Subject(tokenStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
		return
	}
	isAdmin, err := h.admins.IsAdmin(ctx, sub)
	if err != nil {
		log.Error("Authorization check failed", zap.String("user_id", sub), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
		return
	}
	if !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": auth.ErrNotAdmin.Error()})
		return
	}

	res, err := h.dispatcher.Dispatch(ctx, dispatch.Request{
		NotificationID: req.NotificationID,
		Platform:       req.Platform,
		DeviceID:       req.DeviceID,
		TokenID:        req.TokenID,
		DryRun:         req.DryRun,
	})
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, model.ErrNotificationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		default:
			log.Error("Dispatch failed",
				zap.String("notification_id", req.NotificationID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if res.DryRun {
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"dryRun":  true,
			"targets": res.Totals.Targets,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"notificationId": res.NotificationID,
		"status":         res.Status,
		"totals":         res.Totals,
		"perPlatform":    res.PerPlatform,
	})
}
