// internal/handlers/auth.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func authPayload(message string, resp *services.AuthResponse) gin.H {
	payload := gin.H{
		"user":          resp.User,
		"token":         resp.AccessToken,
		"refresh_token": resp.RefreshToken,
		"token_type":    resp.TokenType,
		"expires_in":    resp.ExpiresIn,
	}
	if message != "" {
		payload["message"] = message
	}
	return payload
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Register(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, authPayload(i18n.T(lang, i18n.KeyAuthRegisterSuccess), authResponse))
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, authPayload(i18n.T(lang, i18n.KeyAuthLoginSuccess), authResponse))
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	// TODO: keep a revocation list keyed by token id so logout invalidates the access token
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthLogoutSuccess),
	})
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req services.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthTokenExpired))
		return
	}

	utils.SuccessResponse(c, authPayload("", authResponse))
}

// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(&req); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthPasswordReset),
	})
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(&req); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthPasswordResetDone),
	})
}

// GET /auth/verify-email/:token
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	token := c.Param("token")

	if token == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "token"), nil)
		return
	}

	if err := h.authService.VerifyEmail(token); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySuccess),
	})
}

// GET /auth/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user": user,
	})
}
