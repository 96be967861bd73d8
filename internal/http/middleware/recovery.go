package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mycelium-backend/internal/http/response"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

// Recovery turns a handler panic into a 500 carrying the panic message in the standard error envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		msg := strings.TrimSpace(fmt.Sprint(recovered))
		if err, ok := recovered.(error); ok {
			msg = err.Error()
		}
		if msg == "" {
			msg = "internal server error"
		}
		if log != nil {
			log.Error("Handler panic", "path", c.Request.URL.Path, "panic", msg)
		}
		response.AbortError(c, http.StatusInternalServerError, "internal", errors.New(msg))
	})
}
