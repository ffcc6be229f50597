package handlers

import (
	"net/http"

	"doemais/middleware"
	"doemais/services/auth"
	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	AuthService auth.AuthService
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignUpHandler handles POST /api/auth/signup.
func (h *AuthHandler) SignUpHandler(c *gin.Context) {
	var req auth.SignUpInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.AuthService.SignUp(c.Request.Context(), req)
	if err != nil {
		getLogger(c).Warn("Sign up failed", zap.String("email", req.Email), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// SignInHandler handles POST /api/auth/signin.
func (h *AuthHandler) SignInHandler(c *gin.Context) {
	var req signInRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.AuthService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		getLogger(c).Info("Sign in rejected", zap.String("email", req.Email), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SignOutHandler handles POST /api/auth/signout.
func (h *AuthHandler) SignOutHandler(c *gin.Context) {
	if err := h.AuthService.SignOut(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		getLogger(c).Error("Sign out failed", zap.String("userId", currentUserID(c)), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// MeHandler handles GET /api/auth/me.
func (h *AuthHandler) MeHandler(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
		return
	}
	c.JSON(http.StatusOK, user)
}
