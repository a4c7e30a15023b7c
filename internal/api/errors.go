package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/config"
	"github.com/kraklabs/devsentry/internal/logging"
)

// errorHandler centralizes apperr.Kind → HTTP status translation
// (spec.md §7, §9 "boundary translation is centralized").
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Get(logging.CategoryAPI).Warn("request failed: %v", err)
	}
	if jsonErr := c.JSON(status, map[string]string{"error": message}); jsonErr != nil {
		logging.Get(logging.CategoryAPI).Warn("failed to write error response: %v", jsonErr)
	}
}

func statusFor(err error) (int, string) {
	var ve config.ValidationError
	if ok := isValidationError(err, &ve); ok {
		return http.StatusBadRequest, ve.Error()
	}

	var he *echo.HTTPError
	if isEchoHTTPError(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, err.Error()
	case apperr.KindNotFound:
		return http.StatusNotFound, err.Error()
	case apperr.KindConflict:
		return http.StatusConflict, err.Error()
	case apperr.KindCancelled:
		return http.StatusRequestTimeout, err.Error()
	case apperr.KindTransientIO, apperr.KindProvider:
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func isValidationError(err error, target *config.ValidationError) bool {
	ve, ok := err.(config.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

func isEchoHTTPError(err error, target **echo.HTTPError) bool {
	he, ok := err.(*echo.HTTPError)
	if ok {
		*target = he
	}
	return ok
}
