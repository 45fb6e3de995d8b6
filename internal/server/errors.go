package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ShayCichocki/agentsmith/internal/orchestrator"
	"github.com/ShayCichocki/agentsmith/internal/state"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}

// abortBind reports a request that failed binding or validation.
func abortBind(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		abort(c, http.StatusUnprocessableEntity, strings.Join(msgs, "; "))
		return
	}
	abort(c, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request: %v", err))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "archetype":
		return fmt.Sprintf("%s %q is not a known agent type", field, fe.Value())
	case "uuid":
		return field + " must be a UUID"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// abortErr maps store and pipeline errors onto HTTP statuses.
func (s *Server) abortErr(c *gin.Context, what string, err error) {
	switch {
	case errors.Is(err, state.ErrNotFound):
		abort(c, http.StatusNotFound, what+" not found")
	case errors.Is(err, orchestrator.ErrAgentNotFound):
		abort(c, http.StatusNotFound, "Agent not found")
	default:
		s.log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		abort(c, http.StatusInternalServerError, err.Error())
	}
}
