package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"family-chat/internal/service"
)

// FamilyGateMiddleware aplica el allow-list familiar sobre la identidad ya
// validada por JWTAuthMiddleware. Se usa idéntico en lectura y escritura.
func FamilyGateMiddleware(gate *service.FamilyGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		email := ""
		if ok {
			email = claims.Email
		}

		switch gate.Decide(email) {
		case service.DecisionAllowed:
			c.Next()
		case service.DecisionForbidden:
			c.JSON(http.StatusForbidden, gin.H{"error": "This room is restricted to family members."})
			c.Abort()
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
		}
	}
}
