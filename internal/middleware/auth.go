// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, security headers, request IDs, and metrics.
//
// Middleware ordering matters and is enforced in router.go. Security headers
// run first so they appear on all responses including errors. On the public
// auth endpoints rate limiting runs before the handlers so brute-force
// attempts are rejected before any database work. On authenticated routes auth
// runs before the general rate limit, resolving the tenant context that every
// handler and service operation downstream depends on.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/auth"
	"github.com/contactvault/contactvault/internal/db/models"
	"github.com/contactvault/contactvault/internal/db/repositories"
	"github.com/contactvault/contactvault/internal/tenant"
)

// abortWith writes the standard response envelope for an auth failure and
// stops the chain. The envelope shape matches internal/api so clients see one
// format regardless of where the request was rejected.
func abortWith(c *gin.Context, status int, kind apperror.Kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   gin.H{"code": kind.String()},
	})
}

// AuthMiddleware resolves the tenant context for a request.
//
// The token's organization claim is cross-checked against the user's stored
// organization on every request: a stale token issued before any organization
// move is rejected rather than trusted. User and organization status are also
// re-read per request, so deactivating either takes effect immediately
// instead of waiting for token expiry.
func AuthMiddleware(userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, http.StatusUnauthorized, apperror.Unauthenticated, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortWith(c, http.StatusUnauthorized, apperror.Unauthenticated, "Authorization header must start with 'Bearer '")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			abortWith(c, http.StatusUnauthorized, apperror.Unauthenticated, "Authorization token is empty")
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			abortWith(c, http.StatusUnauthorized, apperror.Unauthenticated, "Invalid or expired token")
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, apperror.Internal, "Failed to load user")
			return
		}
		if user == nil {
			abortWith(c, http.StatusUnauthorized, apperror.Unauthenticated, "User not found")
			return
		}
		if !user.IsActive {
			abortWith(c, http.StatusForbidden, apperror.AccountInactive, "Account is deactivated")
			return
		}
		if user.OrganizationID != claims.OrganizationID {
			abortWith(c, http.StatusForbidden, apperror.TenantMismatch, "Token organization does not match account")
			return
		}

		org, err := orgRepo.GetByID(c.Request.Context(), user.OrganizationID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, apperror.Internal, "Failed to load organization")
			return
		}
		if org == nil || org.Status != models.OrgStatusActive {
			abortWith(c, http.StatusForbidden, apperror.OrganizationInactive, "Organization is not active")
			return
		}

		tenant.Set(c, tenant.Context{
			UserID:         user.ID,
			UserName:       user.Name,
			OrganizationID: user.OrganizationID,
		})

		c.Next()
	}
}
