// internal/handlers/helpers.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

// bindJSON decodes and validates the body, writing the 400 itself on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return userID, true
}

func queryBool(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

func queryInt(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return value
}

// notFoundKeys picks the translated message for each not-found sentinel.
var notFoundKeys = []struct {
	err error
	key string
}{
	{services.ErrUserNotFound, i18n.KeyUserNotFound},
	{services.ErrGemstoneNotFound, i18n.KeyGemstoneNotFound},
	{services.ErrOrderNotFound, i18n.KeyOrderNotFound},
	{services.ErrAlertNotFound, i18n.KeyInventoryAlertNotFound},
	{services.ErrCartItemNotFound, i18n.KeyCartItemMissing},
}

var badRequestErrors = []error{
	services.ErrInvalidInput,
	services.ErrInvalidPrice,
	services.ErrInsufficientStock,
	services.ErrGemstoneUnavailable,
	services.ErrCartEmpty,
	services.ErrUnsupportedCurrency,
	services.ErrOrderNotCancellable,
	services.ErrPaymentMismatch,
	services.ErrPaymentIncomplete,
	services.ErrPaymentNotStarted,
	services.ErrPaymentAmount,
	services.ErrWrongPassword,
	services.ErrHasOpenOrders,
	services.ErrInvalidToken,
	services.ErrAlreadyVerified,
	services.ErrFileTooLarge,
	services.ErrFileType,
	services.ErrInvalidImage,
	services.ErrMissingColumns,
	services.ErrEmptyCSV,
	services.ErrInvalidDateRange,
	services.ErrSelfModification,
}

var conflictErrors = []error{
	services.ErrDuplicate,
	services.ErrEmailTaken,
	services.ErrUsernameTaken,
	services.ErrInvalidStatusTransition,
	services.ErrOrderAlreadyCancelled,
	services.ErrPaymentNotNeeded,
}

var unavailableErrors = []error{
	services.ErrRateUnavailable,
	services.ErrRatesAPI,
	services.ErrPaymentsDisabled,
	services.ErrMediaUnavailable,
	services.ErrS3Unconfigured,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps service errors onto the response envelope. Anything not
// recognised is logged and reported as a 500 without its detail.
func respondError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(validationErrs))
		return
	}

	for _, nf := range notFoundKeys {
		if errors.Is(err, nf.err) {
			utils.NotFoundResponse(c, nf.key)
			return
		}
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAccountSuspended):
		utils.UnauthorizedResponse(c, err.Error())
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrAccountInactive):
		utils.ForbiddenResponse(c, err.Error())
	case isAny(err, badRequestErrors):
		utils.BadRequestResponse(c, err.Error(), nil)
	case isAny(err, conflictErrors):
		utils.ConflictResponse(c, err.Error())
	case isAny(err, unavailableErrors):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error(), nil)
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}
