// internal/handlers/import.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

const maxImportSize = 10 << 20

type ImportHandler struct {
	importService *services.ImportService
}

func NewImportHandler(importService *services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// POST /admin/import/gemstones?dry_run=true (multipart field "file")
func (h *ImportHandler) ImportGemstones(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), nil)
		return
	}
	defer file.Close()

	if header.Size > maxImportSize {
		respondError(c, fmt.Errorf("%w: %d bytes", services.ErrFileTooLarge, header.Size))
		return
	}

	opts := services.ImportOptions{}
	if v := queryBool(c, "dry_run"); v != nil {
		opts.DryRun = *v
	}

	result, err := h.importService.Import(file, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyImportCompleted),
		"result":  result,
	})
}

// GET /admin/export/gemstones?include_hidden=true
func (h *ImportHandler) ExportGemstones(c *gin.Context) {
	includeHidden := true
	if v := queryBool(c, "include_hidden"); v != nil {
		includeHidden = *v
	}

	var buf bytes.Buffer
	if _, err := h.importService.Export(&buf, includeHidden); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="gemstones.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
