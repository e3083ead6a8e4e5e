package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"factory/internal/auth"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// PermissionSource resolves the permission codes of a role.
type PermissionSource interface {
	PermissionsForRole(ctx context.Context, roleName string) ([]string, error)
}

// permCacheEntry stores cached permission codes for a role with TTL
type permCacheEntry struct {
	codes     map[string]bool
	expiresAt time.Time
}

// Authenticator validates access tokens and checks role permissions.
type Authenticator struct {
	tokens       *auth.TokenManager
	perms        PermissionSource
	secureCookie bool
	permCache    sync.Map // roleName -> permCacheEntry
	permCacheTTL time.Duration
}

func NewAuthenticator(tokens *auth.TokenManager, perms PermissionSource, secureCookie bool) *Authenticator {
	return &Authenticator{
		tokens:       tokens,
		perms:        perms,
		secureCookie: secureCookie,
		permCacheTTL: 5 * time.Minute,
	}
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Authenticator) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookie {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, int(a.tokens.AccessTTL().Seconds()), "/", "", a.secureCookie, true)
	c.SetCookie("refresh_token", refreshToken, int(a.tokens.RefreshTTL().Seconds()), "/", "", a.secureCookie, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Authenticator) ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookie {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", a.secureCookie, true)
	c.SetCookie("refresh_token", "", -1, "/", "", a.secureCookie, true)
}

// bearerToken reads the access_token cookie first, then the Authorization header.
func bearerToken(c *gin.Context) (string, string) {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, ""
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "Authorization is missing"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// authenticate stores the caller in the gin context or aborts with 401.
func (a *Authenticator) authenticate(c *gin.Context) bool {
	tokenString, problem := bearerToken(c)
	if problem != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
		return false
	}
	claims, err := a.tokens.Parse(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
		return false
	}
	userID, err := claims.UserID()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return false
	}
	c.Set(ctxUserID, userID)
	c.Set(ctxUserRole, claims.Role)
	return true
}

// RequireAuth accepts any valid token.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireRole accepts tokens whose role is one of allowedRoles.
func (a *Authenticator) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}
		role := CurrentRole(c)
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission accepts tokens whose role holds every required permission code.
func (a *Authenticator) RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}

		granted, err := a.permissionsFor(c.Request.Context(), CurrentRole(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}
		for _, required := range requiredPerms {
			if !granted[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}
		c.Next()
	}
}

func (a *Authenticator) permissionsFor(ctx context.Context, role string) (map[string]bool, error) {
	if entry, ok := a.permCache.Load(role); ok {
		cached := entry.(permCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	codes, err := a.perms.PermissionsForRole(ctx, role)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	a.permCache.Store(role, permCacheEntry{codes: set, expiresAt: time.Now().Add(a.permCacheTTL)})
	return set, nil
}

// ClearPermissionCache drops one role's cached permissions, or all when roleName is empty.
func (a *Authenticator) ClearPermissionCache(roleName string) {
	if roleName != "" {
		a.permCache.Delete(roleName)
		return
	}
	a.permCache.Range(func(key, _ any) bool {
		a.permCache.Delete(key)
		return true
	})
}

// CurrentUserID returns the authenticated user id, or 0.
func CurrentUserID(c *gin.Context) uint {
	id, _ := c.Get(ctxUserID)
	v, _ := id.(uint)
	return v
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxUserRole)
}
