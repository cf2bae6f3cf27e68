package middleware

import (
	"net/http"
	"strings"

	"vocabquiz/services"

	"github.com/gin-gonic/gin"
)

const (
	ContextPlayerID = "playerID"
	ContextRoomCode = "roomCode"
)

// TicketAuth requires a bearer ticket issued for the room named by the :code
// path parameter.
func TicketAuth(tickets *services.TicketIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer ticket"})
			return
		}

		claims, err := tickets.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid ticket"})
			return
		}
		if code := c.Param("code"); code != "" && services.NormalizeRoomCode(code) != claims.Room {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "ticket is for another room"})
			return
		}

		c.Set(ContextPlayerID, claims.Subject)
		c.Set(ContextRoomCode, claims.Room)
		c.Next()
	}
}
