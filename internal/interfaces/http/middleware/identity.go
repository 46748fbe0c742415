package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/objections/backend/internal/infrastructure/logger"
	"github.com/objections/backend/internal/interfaces/http/dto"
)

// Gateway identity headers
const (
	HeaderIdentity        = "ERIC-Identity"
	HeaderIdentityType    = "ERIC-Identity-Type"
	HeaderAuthorisedUser  = "ERIC-Authorised-User"
	HeaderAuthorisedRoles = "ERIC-Authorised-Roles"
)

// IdentityKey is the gin context key holding the caller's Identity
const IdentityKey = "identity"

// Identity is the authenticated caller as asserted by the gateway.
// Type is the gateway identity type, such as oauth2 or key.
type Identity struct {
	UserID string
	Email  string
	Type   string
	Roles  []string
}

// HasRole reports whether the caller holds role
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseAuthorisedUser extracts the email from "email; forename=..; surname=.."
func ParseAuthorisedUser(header string) string {
	email, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(email)
}

// Identify reads the gateway identity headers. A request without a user id
// or email is rejected with 401.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity{
			UserID: strings.TrimSpace(c.GetHeader(HeaderIdentity)),
			Email:  ParseAuthorisedUser(c.GetHeader(HeaderAuthorisedUser)),
			Type:   c.GetHeader(HeaderIdentityType),
			Roles:  strings.Fields(c.GetHeader(HeaderAuthorisedRoles)),
		}
		if identity.UserID == "" || identity.Email == "" {
			abort(c, dto.ErrCodeUnauthorized, "Caller identity is missing")
			return
		}

		c.Set(IdentityKey, identity)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), identity.UserID))
		c.Next()
	}
}

// GetIdentity returns the identity set by Identify
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
