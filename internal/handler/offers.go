package handler

import (
	"net/http"
	"strings"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/service"
	"offer-tracker/internal/storage"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCards(c *gin.Context) {
	cards, err := h.svc.ListCards(c.Request.Context())
	if err != nil {
		writeError(c, "ListCards", err)
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) CreateCard(c *gin.Context) {
	var req service.CardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	card, err := h.svc.CreateCard(c.Request.Context(), req)
	if err != nil {
		writeError(c, "CreateCard", err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *Handler) UpdateCard(c *gin.Context) {
	var req service.CardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	card, err := h.svc.UpdateCard(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, "UpdateCard", err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) DeleteCard(c *gin.Context) {
	if err := h.svc.DeleteCard(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "DeleteCard", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListOffers accepts status (comma separated), cardId, category and merchant
// query params.
func (h *Handler) ListOffers(c *gin.Context) {
	f := storage.OfferFilter{
		CardID:   c.Query("cardId"),
		Category: domain.Category(c.Query("category")),
		Merchant: c.Query("merchant"),
	}
	if f.Category != "" && !domain.ValidCategory(string(f.Category)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	if raw := c.Query("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			switch s := domain.OfferStatus(strings.TrimSpace(st)); s {
			case domain.StatusActive, domain.StatusMaxed, domain.StatusExpired, domain.StatusArchived:
				f.Statuses = append(f.Statuses, s)
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(s)})
				return
			}
		}
	}

	offers, err := h.svc.ListOffers(c.Request.Context(), f)
	if err != nil {
		writeError(c, "ListOffers", err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (h *Handler) CreateOffer(c *gin.Context) {
	var req service.OfferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	v, err := h.svc.CreateOffer(c.Request.Context(), req)
	if err != nil {
		writeError(c, "CreateOffer", err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetOffer(c *gin.Context) {
	v, err := h.svc.GetOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "GetOffer", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateOffer(c *gin.Context) {
	var req service.OfferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	v, err := h.svc.UpdateOffer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, "UpdateOffer", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteOffer(c *gin.Context) {
	if err := h.svc.DeleteOfferPermanently(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "DeleteOffer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ArchiveOffer(c *gin.Context) {
	if err := h.svc.ArchiveOffer(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "ArchiveOffer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) NormalizeOffers(c *gin.Context) {
	n, err := h.svc.NormalizeAll(c.Request.Context())
	if err != nil {
		writeError(c, "NormalizeOffers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrected": n})
}

func (h *Handler) ListSpendLogs(c *gin.Context) {
	logs, err := h.svc.ListSpendLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "ListSpendLogs", err)
		return
	}
	if logs == nil {
		logs = []domain.SpendLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) LogSpend(c *gin.Context) {
	var req service.SpendInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	log, o, err := h.svc.LogSpend(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, "LogSpend", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"spendLog": log, "offer": o})
}

func (h *Handler) Stats(c *gin.Context) {
	sum, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, "Stats", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
