package middleware // reusable HTTP middleware for the echo router

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
	"github.com/iliyamo/sportshub-ticketing/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// AccessTokenHeader is the header the web client sends the JWT in.
// Authorization: Bearer is accepted as well.
const AccessTokenHeader = "x-access-token"

// UserLookup resolves the subject of a token.  repository.UserRepo
// satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// JWTAuth verifies the caller's access token, loads the account it names
// and stores the user id (uint64) and role under ContextUserID and
// ContextRole.  The role comes from the account, not the token, so a
// demotion takes effect before the token expires.  A missing token, a bad
// signature, or a deleted or deactivated account is answered with 401 and
// never reaches the handler.
func JWTAuth(secret string, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c.Request())
			if raw == "" {
				return unauthorized(c)
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return unauthorized(c)
			}
			ctx := c.Request().Context()
			u, err := users.GetByID(ctx, claims.UserID)
			switch {
			case errors.Is(err, repository.ErrUserNotFound):
				return unauthorized(c)
			case err != nil:
				logging.Ctx(ctx).Error().Err(err).Uint64("user_id", claims.UserID).Msg("user lookup failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Internal server error"})
			case !u.IsActive:
				return unauthorized(c)
			}
			c.Set(ContextUserID, u.ID)
			c.Set(ContextRole, u.Role)
			return next(c)
		}
	}
}

func tokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(AccessTokenHeader)); t != "" {
		return t
	}
	auth := r.Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Unauthorized"})
}
