// internal/handler/handler.go
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"offer-tracker/internal/auth"
	"offer-tracker/internal/backup"
	"offer-tracker/internal/service"
	"offer-tracker/internal/storage"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc    *service.Service
	backup *backup.Backup
	tokens *auth.TokenService
}

func New(svc *service.Service, b *backup.Backup, tokens *auth.TokenService) *Handler {
	return &Handler{svc: svc, backup: b, tokens: tokens}
}

// Register mounts every route under /api/v1. Login and health stay public,
// everything else goes through requireAuth.
func (h *Handler) Register(r gin.IRouter, requireAuth gin.HandlerFunc) {
	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health)
	v1.POST("/login", h.Login)

	api := v1.Group("")
	api.Use(requireAuth)
	{
		api.GET("/cards", h.ListCards)
		api.POST("/cards", h.CreateCard)
		api.PUT("/cards/:id", h.UpdateCard)
		api.DELETE("/cards/:id", h.DeleteCard)

		api.GET("/offers", h.ListOffers)
		api.POST("/offers", h.CreateOffer)
		api.POST("/offers/normalize", h.NormalizeOffers)
		api.GET("/offers/:id", h.GetOffer)
		api.PUT("/offers/:id", h.UpdateOffer)
		api.DELETE("/offers/:id", h.DeleteOffer)
		api.POST("/offers/:id/archive", h.ArchiveOffer)
		api.GET("/offers/:id/spend", h.ListSpendLogs)
		api.POST("/offers/:id/spend", h.LogSpend)

		api.GET("/stats", h.Stats)
		api.GET("/backup", h.ExportBackup)
		api.POST("/backup", h.ImportBackup)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Passphrase string `json:"passphrase" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passphrase required"})
		return
	}
	token, err := h.tokens.Login(req.Passphrase)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassphrase) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid passphrase"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// writeError maps service and storage errors onto HTTP replies.
func writeError(c *gin.Context, op string, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, backup.ErrUnsupportedVersion), errors.Is(err, backup.ErrInvalidDocument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOfferNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
	case errors.Is(err, service.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
	case errors.Is(err, service.ErrOfferArchived):
		c.JSON(http.StatusConflict, gin.H{"error": "Offer is archived"})
	case errors.Is(err, storage.ErrBusy):
		slog.Warn(op+" hit a busy store", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store is busy, please retry"})
	default:
		slog.Error(op+" failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error, please retry"})
	}
}
