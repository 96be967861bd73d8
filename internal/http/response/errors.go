package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/services"
)

// Status maps a service error onto an HTTP status and a client-facing code.
// Aggregate errors prefer their reason over the generic code.
func Status(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	if errors.Is(err, services.ErrUnauthenticated) {
		return http.StatusUnauthorized, "unauthorized"
	}
	code := domainagg.CodeOf(err)
	label := domainagg.ReasonOf(err)
	if label == "" {
		label = string(code)
	}
	switch code {
	case domainagg.CodeNotFound:
		return http.StatusNotFound, label
	case domainagg.CodeValidation,
		domainagg.CodeInvariantViolation,
		domainagg.CodeConflict,
		domainagg.CodePreconditionFailed:
		return http.StatusBadRequest, label
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func FromError(c *gin.Context, err error) {
	status, code := Status(err)
	msg := domainagg.MessageOf(err)
	if msg == "" && err != nil {
		msg = err.Error()
	}
	RespondError(c, status, code, errors.New(msg))
}

// BadRequest reports a binding failure. Validator errors are flattened into one message
// naming each offending field.
func BadRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fieldMessage(fe))
		}
		err = errors.New(strings.Join(parts, "; "))
	}
	RespondError(c, http.StatusBadRequest, "invalid_request", err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "uuid":
		return fmt.Sprintf("%s must be a uuid", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
