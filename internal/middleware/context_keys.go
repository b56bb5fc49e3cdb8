package middleware

import "github.com/gin-gonic/gin"

const actorIDKey = contextKey("actorID")

// actorHeader names the header the local UI uses to identify the acting user.
// Authentication is handled outside this core; the device is single-user.
const actorHeader = "X-Actor-ID"

// defaultActorID is used when the local UI does not identify the actor.
const defaultActorID = "local-user"

// ActorMiddleware resolves the acting user for audit fields and change history.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(actorHeader)
		if actor == "" {
			actor = defaultActorID
		}
		c.Set(string(actorIDKey), actor)
		c.Next()
	}
}

// GetActorFromContext retrieves the acting user ID set by ActorMiddleware.
func GetActorFromContext(c *gin.Context) string {
	if v, ok := c.Get(string(actorIDKey)); ok {
		if actor, ok := v.(string); ok {
			return actor
		}
	}
	return defaultActorID
}
