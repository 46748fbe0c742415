package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/infrastructure/logger"
	"github.com/objections/backend/internal/interfaces/http/dto"
)

// ObjectionKey is the gin context key holding the loaded objection
const ObjectionKey = "objection"

// DefaultDownloadRole lets internal staff download any attachment
const DefaultDownloadRole = "/admin/strike-off-objections-download"

// ObjectionGetter loads an objection by id
type ObjectionGetter interface {
	GetObjection(ctx context.Context, id uuid.UUID) (*objection.Objection, error)
}

// LoadObjection loads the objection named by :objectionId into the gin context.
// A malformed or unknown id answers 404.
func LoadObjection(getter ObjectionGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param("objectionId")
		id, err := uuid.Parse(raw)
		if err != nil {
			abort(c, objection.CodeNotFound, "objection "+raw+" not found")
			return
		}

		o, err := getter.GetObjection(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ObjectionKey, o)
		ctx := logger.WithObjectionID(c.Request.Context(), id.String())
		c.Request = c.Request.WithContext(logger.WithCompanyNumber(ctx, o.CompanyNumber))
		c.Next()
	}
}

// GetObjection returns the objection set by LoadObjection
func GetObjection(c *gin.Context) (*objection.Objection, bool) {
	v, ok := c.Get(ObjectionKey)
	if !ok {
		return nil, false
	}
	o, ok := v.(*objection.Objection)
	return o, ok && o != nil
}

// CheckCompanyNumber answers 404 when the loaded objection belongs to a
// different company than :companyNumber.
func CheckCompanyNumber() gin.HandlerFunc {
	return func(c *gin.Context) {
		o, ok := GetObjection(c)
		if !ok {
			abort(c, dto.ErrCodeInternal, "objection not loaded")
			return
		}
		if o.CompanyNumber != c.Param("companyNumber") {
			abort(c, objection.CodeNotFound, "objection "+o.ID.String()+" not found")
			return
		}
		c.Next()
	}
}

// AuthorizeUser allows only the objection's creator through
func AuthorizeUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, o, ok := identityAndObjection(c)
		if !ok {
			return
		}
		if !o.IsCreatedBy(identity.Email) {
			abort(c, dto.ErrCodeUnauthorized, "Caller is not the objection's creator")
			return
		}
		c.Next()
	}
}

// AuthorizeDownload allows the creator, or any caller holding adminRole
func AuthorizeDownload(adminRole string) gin.HandlerFunc {
	if adminRole == "" {
		adminRole = DefaultDownloadRole
	}
	return func(c *gin.Context) {
		identity, o, ok := identityAndObjection(c)
		if !ok {
			return
		}
		if !o.IsCreatedBy(identity.Email) && !identity.HasRole(adminRole) {
			abort(c, dto.ErrCodeUnauthorized, "Caller may not download this attachment")
			return
		}
		c.Next()
	}
}

func identityAndObjection(c *gin.Context) (Identity, *objection.Objection, bool) {
	identity, ok := GetIdentity(c)
	if !ok {
		abort(c, dto.ErrCodeUnauthorized, "Caller identity is missing")
		return Identity{}, nil, false
	}
	o, ok := GetObjection(c)
	if !ok {
		abort(c, dto.ErrCodeInternal, "objection not loaded")
		return Identity{}, nil, false
	}
	return identity, o, true
}
