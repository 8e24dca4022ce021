// File: internal/common/context_helpers.go
package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetActorIDFromContext retrieves the acting user's ID from the Gin context.
// Returns uuid.Nil if not found or not a UUID.
func GetActorIDFromContext(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ActorIDKey)
	if !exists {
		return uuid.Nil
	}
	actorID, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return actorID
}
