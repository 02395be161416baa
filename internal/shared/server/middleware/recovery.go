package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/shared/server/respond"
	"onboarding-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. When the handler had
// already started writing, the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.Error("panic", map[string]any{
				"request_id":  RequestIDFromContext(c),
				"error":       fmt.Sprint(rec),
				"stack":       string(debug.Stack()),
				"method":      c.Request.Method,
				"route":       c.FullPath(),
				"employee_id": c.GetString(employeeIDKey),
				"document_id": c.GetString(DocumentIDKey),
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
		}()
		c.Next()
	}
}
