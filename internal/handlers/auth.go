package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/middleware"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a panel user
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	response.Success(c, resp)
}

// Profile returns the current user
// GET /api/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, user)
}

// ChangePassword changes the current user's password
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.authService.ChangePassword(userID, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"status": "ok"})
}

// Logout records the logout; tokens are stateless and simply discarded
// by the client.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	services.LogInfo("auth", "logout", middleware.GetUsername(c)+" logged out", "", nil)
	response.Success(c, gin.H{"status": "ok"})
}

// AuthInfo reports which auth backends are available
// GET /api/auth/info
func (h *AuthHandler) AuthInfo(c *gin.Context) {
	response.Success(c, gin.H{
		"ldap_enabled": h.authService.IsLDAPEnabled(),
	})
}
