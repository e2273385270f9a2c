package util

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kashguard/go-htss-wallet/internal/api/httperrors"
)

// BindAndValidateBody binds the request body into v, rejecting malformed
// payloads with a 400 before the handler sees them.
func BindAndValidateBody(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, "generic", "Invalid request body", err.Error())
	}
	return nil
}

// ValidateAndReturn writes v as the JSON response.
func ValidateAndReturn(c echo.Context, code int, v interface{}) error {
	return c.JSON(code, v)
}
