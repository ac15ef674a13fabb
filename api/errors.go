package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"boardsync/domain"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// writeError maps domain failures onto HTTP statuses. Anything unrecognized
// is a server fault and keeps its detail out of the response body.
func writeError(c echo.Context, err error) error {
	var inv *domain.InvalidInputError
	switch {
	case errors.As(err, &inv):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: inv.Fields})
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
