package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportshub-ticketing/internal/middleware"
	"github.com/iliyamo/sportshub-ticketing/internal/validation"
)

// getUserID returns the caller set by middleware.JWTAuth.  A missing or
// zero id is reported as Unauthorized.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.ContextUserID).(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, unauthorized("Unauthorized")
}

// bindAndValidate decodes the body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	return validation.Struct(req)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}
