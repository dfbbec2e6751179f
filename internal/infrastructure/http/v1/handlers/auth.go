package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ventari/internal/core/apperror"
	appctx "ventari/internal/core/context"
	"ventari/internal/core/id"
	"ventari/internal/domain/auth"
	"ventari/internal/infrastructure/http/v1/dto"
	"ventari/internal/infrastructure/http/v1/middleware"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, user, err := h.service.Login(ctx, auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		User:   dto.FromUser(user),
		Tokens: tokens,
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefreshRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, err := h.service.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := h.currentUserID(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Logout(ctx, userID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := h.currentUserID(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	user, err := h.service.GetUserByID(ctx, userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUser(user))
}

// Register handles POST /auth/register (admin only).
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterUserRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.Register(ctx, req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromUser(user))
}

// ListUsers handles GET /auth/users (admin only).
func (h *AuthHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.service.ListUsers(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromUsers(users),
		TotalCount: int64(len(users)),
	})
}

// currentUserID resolves the authenticated user's ID from context.
func (h *AuthHandler) currentUserID(ctx context.Context) (id.ID, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return id.Nil(), apperror.NewUnauthorized("not authenticated")
	}
	userID, err := id.Parse(user.UserID)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid user id")
	}
	return userID, nil
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)

	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)
	// Privileged: user management is restricted to admins.
	protected.POST("/register", middleware.RequireRole(string(auth.RoleAdmin)), h.Register)
	protected.GET("/users", middleware.RequireRole(string(auth.RoleAdmin)), h.ListUsers)
}
