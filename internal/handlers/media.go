// internal/handlers/media.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

const maxImagesPerUpload = 10

type MediaHandler struct {
	storageService  *services.StorageService
	mediaService    *services.MediaService
	gemstoneService *services.GemstoneService
}

func NewMediaHandler(
	storageService *services.StorageService,
	mediaService *services.MediaService,
	gemstoneService *services.GemstoneService,
) *MediaHandler {
	return &MediaHandler{
		storageService:  storageService,
		mediaService:    mediaService,
		gemstoneService: gemstoneService,
	}
}

// POST /admin/gemstones/:id/images (multipart field "images", repeated)
func (h *MediaHandler) UploadGemstoneImages(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "images"), nil)
		return
	}
	headers := form.File["images"]
	if len(headers) > maxImagesPerUpload {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "images"), gin.H{"max": maxImagesPerUpload})
		return
	}

	var (
		urls    []string
		uploads []*services.UploadResult
	)
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
			return
		}
		result, err := h.storageService.UploadImage(file, header, "gemstones")
		file.Close()
		if err != nil {
			respondError(c, err)
			return
		}
		urls = append(urls, result.URL)
		uploads = append(uploads, result)
	}

	gemstone, err := h.gemstoneService.AddImages(id, urls)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyFileUploadSuccess),
		"uploads":  uploads,
		"gemstone": gemstone,
	})
}

// POST /admin/media/upload?category= (multipart field "file")
func (h *MediaHandler) UploadFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	category := c.DefaultQuery("category", "gemstones")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), nil)
		return
	}
	defer file.Close()

	var result *services.UploadResult
	if category == "gemstones" || category == "avatars" {
		result, err = h.storageService.UploadImage(file, header, category)
	} else {
		result, err = h.storageService.UploadFile(file, header, h.storageService.GetDefaultUploadOptions(category))
	}
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFileUploadSuccess),
		"upload":  result,
	})
}

// POST /admin/gemstones/:id/video/optimize
func (h *MediaHandler) OptimizeVideo(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.OptimizeVideoRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.mediaService.OptimizeVideo(c.Request.Context(), id, req.SourceKey)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyMediaVideoQueued),
		"result":  result,
	})
}
