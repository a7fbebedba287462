package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"motoroute/auth"
	dbt "motoroute/db/db"
	"motoroute/route"
	"motoroute/share"
	"motoroute/verify"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Code  string `json:"code,omitempty"`
}

const notFoundMessage = "not found"

// writeError maps err to a status and a message safe to show; op names the
// failed operation in generic messages, e.g. "save trip".
func writeError(c *gin.Context, op string, err error) {
	var (
		ve *verify.Error
		ae *auth.Error
		rf *route.RoutingFailedError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.As(err, &ae):
		c.JSON(authStatus(ae.Code), errorResponse{Error: auth.UserMessage(err), Code: string(ae.Code)})
	case errors.Is(err, route.ErrInsufficientWaypoints):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.As(err, &rf):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: rf.Error()})
	case errors.Is(err, route.ErrCollaboratorUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, dbt.ErrNotFound), errors.Is(err, share.ErrSharedTripNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: notFoundMessage})
	default:
		log.Printf("Failed to %s: %v", op, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to " + op})
	}
}

func authStatus(code auth.Code) int {
	switch code {
	case auth.CodeEmailInUse:
		return http.StatusConflict
	case auth.CodeWeakPassword, auth.CodeInvalidEmail:
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{Error: notFoundMessage})
}
