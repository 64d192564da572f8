package handler

import (
	"net/http"

	"offer-tracker/internal/backup"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ExportBackup(c *gin.Context) {
	doc, err := h.backup.Export(c.Request.Context())
	if err != nil {
		writeError(c, "ExportBackup", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="offer-tracker-backup.json"`)
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) ImportBackup(c *gin.Context) {
	doc, err := backup.Decode(c.Request.Body)
	if err != nil {
		writeError(c, "ImportBackup", err)
		return
	}
	res, err := h.backup.Import(c.Request.Context(), doc)
	if err != nil {
		writeError(c, "ImportBackup", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
