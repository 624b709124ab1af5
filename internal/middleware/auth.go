package middleware

import (
	"context"
	"distributor-portal/auth"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

type UserProvider interface {
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
}

type TenantResolver interface {
	Resolve(ctx context.Context, userID uint64) (domain.TenantID, error)
}

type Auth struct {
	UserService    UserProvider
	Tenants        TenantResolver
	InternalSecret string
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		parsedToken, err := auth.VerifyJWT(token)
		if err != nil || auth.IsRefreshToken(parsedToken) {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		userID, tokenVersion, err := auth.GetDataFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		user, err := m.UserService.GetUserByID(ctx.Request.Context(), userID)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid User ID!", err))
			ctx.Abort()
			return
		}

		if user.TokenVersion != tokenVersion {
			ctx.Error(errors.Unauthorized("Invalid token version!", nil))
			ctx.Abort()
			return
		}

		if user.Status == domain.StatusInactive {
			ctx.Error(errors.Unauthorized("User is not active", nil))
			ctx.Abort()
			return
		}

		tenant, err := m.Tenants.Resolve(ctx.Request.Context(), userID)
		if err != nil {
			ctx.Error(errors.Internal(err))
			ctx.Abort()
			return
		}

		principal := user.Principal()
		principal.Tenant = tenant

		ctx.Set("user_id", userID)
		ctx.Set(principalKey, principal)
		ctx.Next()
	}
}

// RequirePlatformAdmin must run after AuthMiddleWare
func (m *Auth) RequirePlatformAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !PrincipalFrom(ctx).PlatformAdmin {
			ctx.Error(errors.Forbidden("Platform admin only", nil))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (m *Auth) InternalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(
			ctx.GetHeader("Authorization"),
			"Bearer ",
		)

		if m.InternalSecret == "" || token != m.InternalSecret {
			ctx.Error(errors.Unauthorized("Unauthorized internal call!", nil))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// PrincipalFrom returns the authenticated principal. A missing principal
// yields the zero value, which has no tenant and no privileges.
func PrincipalFrom(c *gin.Context) domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}
	}
	p, _ := v.(domain.Principal)
	return p
}

// SetPrincipal is used by tests and internal routes to attach a principal
func SetPrincipal(c *gin.Context, p domain.Principal) {
	c.Set("user_id", p.UserID)
	c.Set(principalKey, p)
}
