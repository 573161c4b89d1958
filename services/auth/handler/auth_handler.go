package handler

import (
	"net/http"

	model "auction-house/internal/models"
	"auction-house/services/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

type AuthServiceInterface interface {
	Register(name, email, password string, role model.Role) (model.User, error)
	Login(email, password string) (string, model.User, error)
	GetUser(userID string) (model.User, error)
}

type AuthHandler struct {
	service AuthServiceInterface
}

func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterHandler handles POST /auth/register
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	user, err := h.service.Register(req.Name, req.Email, req.Password, model.Role(req.Role))
	if err != nil {
		helpers.RespondError(c, "RegisterHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewUserResponse(user), "user registered successfully")
	helpers.LogSuccess("RegisterHandler", "user registered successfully", map[string]any{
		"user_id": user.UserID,
		"role":    string(user.Role),
	})
}

// LoginHandler handles POST /auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	token, user, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		helpers.RespondError(c, "LoginHandler", err)
		return
	}

	resp := helpers.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        helpers.NewUserResponse(user),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "login successful")
	helpers.LogSuccess("LoginHandler", "login successful", map[string]any{"user_id": user.UserID})
}

// MeHandler handles GET /auth/me
func (h *AuthHandler) MeHandler(c *gin.Context) {
	userID := c.GetString(helpers.ContextUserIDKey)
	user, err := h.service.GetUser(userID)
	if err != nil {
		helpers.RespondError(c, "MeHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewUserResponse(user), "user retrieved successfully")
}
