package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
	"taskhub/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// @Summary      Log in
// @Description  Returns an access token and a refresh token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  services.AuthResult
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][login] bad request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "[auth][login]", err)
		return
	}
	log.Printf("[auth][login] success userID=%d role=%d took=%s", res.User.ID, res.User.RoleID, time.Since(start).Truncate(time.Millisecond))
	c.JSON(http.StatusOK, res)
}

// @Summary      Sign up
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        signup  body      models.SignupRequest  true  "New account"
// @Success      201     {object}  services.AuthResult
// @Failure      400     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Router       /api/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, "[auth][signup]", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// @Summary      Refresh tokens
// @Description  Rotates the refresh token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  services.AuthResult
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, "[auth][refresh]", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Log out
// @Description  Revokes the current refresh token.
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), actorFrom(c)); err != nil {
		respondError(c, "[auth][logout]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
