// Package tenant defines the resolved tenant context: the trusted
// {user, organization} pair attached to a request after authentication.
//
// The context is produced exactly once per request, by the auth middleware,
// after verifying the token and cross-checking the user's stored organization
// against the token claim. Every service operation takes it as an explicit
// parameter — no downstream component re-derives organization scope from
// request data.
package tenant

import "github.com/gin-gonic/gin"

// ContextKey is the gin.Context key under which the resolved tenant context is stored.
const ContextKey = "tenant_context"

// Context is the immutable identity threaded through every scoped operation.
type Context struct {
	UserID         string
	UserName       string
	OrganizationID string
}

// Set stores the tenant context on the request.
func Set(c *gin.Context, tc Context) {
	c.Set(ContextKey, tc)
}

// FromGin retrieves the tenant context set by the auth middleware.
// ok is false when the request did not pass authentication.
func FromGin(c *gin.Context) (Context, bool) {
	v, exists := c.Get(ContextKey)
	if !exists {
		return Context{}, false
	}
	tc, ok := v.(Context)
	return tc, ok
}
