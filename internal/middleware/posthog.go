package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/fulfillment_coordinator/internal/utils"
	"github.com/gin-gonic/gin"
)

// untracked route prefixes
var untrackedPrefixes = []string{"/health", "/swagger"}

// PosthogMiddleware reports every successful authenticated call as a product
// analytics event named after its route, e.g. "orders_:orderID_cancel".
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if posthogClient == nil || !posthogClient.IsInitialized() || isUntracked(c.Request.URL.Path) {
			c.Next()
			return
		}
		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		actor, ok := GetActorFromContext(c)
		if !ok {
			return
		}
		event := routeEventName(c.FullPath())
		if event == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"status_code": c.Writer.Status(),
			"role":        string(actor.Role),
		}
		// Order and dispute ids are the useful funnel dimensions.
		for _, key := range []string{"orderID", "offerID", "disputeID"} {
			if v := c.Param(key); v != "" {
				props[key] = v
			}
		}
		posthogClient.Enqueue(actor.UserID, event, props)
	}
}

func isUntracked(path string) bool {
	for _, p := range untrackedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func routeEventName(fullPath string) string {
	name := strings.TrimPrefix(fullPath, "/api/v1")
	name = strings.Trim(name, "/")
	return strings.ReplaceAll(name, "/", "_")
}
