package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// RoleCheck lets the request through when the authenticated role is one of
// roles. Admins pass every check.
func RoleCheck(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles)+1)
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	allowed[models.RoleAdmin] = struct{}{}

	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		if _, ok := allowed[fmt.Sprint(role)]; !ok {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("role %v may not access this resource", role))
			c.Abort()
			return
		}
		c.Next()
	}
}
