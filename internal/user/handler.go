package user

import (
	"distributor-portal/auth"
	"distributor-portal/internal/config"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/middleware"
	"distributor-portal/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for users
type Handler struct {
	service Service
}

// NewHandler creates a new user handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetCookie(
		"refresh_token",
		token,
		maxAge,
		"/",
		"",
		config.AppConfig.Environment == "production", // Secure
		true, // HttpOnly
	)
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		c.Error(err)
		return
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, user.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}
	refreshToken, err := auth.GenerateRefreshToken(user.ID, user.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	setRefreshCookie(c, refreshToken, int(config.AppConfig.RefreshTokenTTL.Seconds()))

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"user":         user.ToSafeUser(),
	})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		c.Error(errors.Unauthorized("Refresh token missing", err))
		return
	}

	token, err := auth.VerifyJWT(refreshToken)
	if err != nil || !auth.IsRefreshToken(token) {
		c.Error(errors.Unauthorized("Invalid token or expired!", err))
		return
	}

	userID, tokenVersion, err := auth.GetDataFromToken(token)
	if err != nil {
		c.Error(errors.Unauthorized("Invalid token", err))
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.Error(errors.Unauthorized("User not found", err))
		return
	}

	if user.TokenVersion != tokenVersion || user.Status == domain.StatusInactive {
		c.Error(errors.Unauthorized("Invalid token!", nil))
		return
	}

	newAccessToken, err := auth.GenerateAccessToken(user.ID, user.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": newAccessToken,
	})
}

// Logout invalidates every token of the caller
func (h *Handler) Logout(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)

	if err := h.service.IncreaseTokenVersion(c.Request.Context(), principal.UserID); err != nil {
		logger.FromGin(c).Warn("token version bump failed", zap.Error(err))
	}
	setRefreshCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// GetProfile handles getting the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)

	user, err := h.service.GetUserByID(c.Request.Context(), principal.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      user.ToSafeUser(),
		"tenant_id": principal.Tenant,
	})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var form FormProfile
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.PrincipalFrom(c).UserID, form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToSafeUser())
}

func (h *Handler) ListCompanyUsers(c *gin.Context) {
	distributorID, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid distributor id", nil))
		return
	}

	page, err := h.service.ListCompanyUsers(
		c.Request.Context(),
		middleware.PrincipalFrom(c),
		distributorID,
		utils.GetPaginationParams(c),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) Invite(c *gin.Context) {
	distributorID, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid distributor id", nil))
		return
	}

	var form FormInvite
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.Invite(c.Request.Context(), middleware.PrincipalFrom(c), InviteInput{
		DistributorID: distributorID,
		Name:          form.Name,
		Email:         form.Email,
		Role:          domain.UserRole(form.Role),
		Password:      form.Password,
		SendEmail:     form.SendEmail,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) UpdateMember(c *gin.Context) {
	userID, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid user id", nil))
		return
	}

	var form FormMember
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	var upd MemberUpdate
	if form.Role != nil {
		role, err := domain.ParseUserRole(*form.Role)
		if err != nil {
			c.Error(errors.UnprocessableEntity("Invalid role", err))
			return
		}
		upd.Role = &role
	}
	if form.Status != nil {
		status, err := domain.ParseAccountStatus(*form.Status)
		if err != nil {
			c.Error(errors.UnprocessableEntity("Invalid status", err))
			return
		}
		upd.Status = &status
	}

	user, err := h.service.UpdateMember(c.Request.Context(), middleware.PrincipalFrom(c), userID, upd)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToSafeUser())
}

func (h *Handler) DeleteMember(c *gin.Context) {
	userID, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid user id", nil))
		return
	}

	if err := h.service.DeleteMember(c.Request.Context(), middleware.PrincipalFrom(c), userID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
