// File: internal/middleware/actor.go
package middleware

import (
	"catalog_hierarchy_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActorMiddleware reads the opaque actor identifier set by the upstream
// gateway and stores it in the request context. Authentication happens
// upstream; this service only needs the identity for audit fields
// (deleted_by), so a request without one is rejected before any mutation.
func ActorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(common.ActorIDHeader)
		if raw == "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Missing actor identity header."))
			return
		}
		actorID, err := uuid.Parse(raw)
		if err != nil {
			logger.Warn("Rejected request with malformed actor ID", zap.String("raw", raw))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Malformed actor identity header."))
			return
		}
		c.Set(common.ActorIDKey, actorID)
		c.Next()
	}
}

// AdminRoleMiddleware gates mutating routes. Role evaluation is delegated to
// the upstream gateway, which only forwards admin traffic with the actor
// header set, so presence of a parsed actor ID is the contract here.
func AdminRoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if common.GetActorIDFromContext(c) == uuid.Nil {
			common.RespondWithError(c, common.ErrForbidden)
			return
		}
		c.Next()
	}
}
