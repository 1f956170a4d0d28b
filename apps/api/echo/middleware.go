package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/eliseea/mobility/core/user"
)

// roleMiddleware lets through the users holding one of roles.
func roleMiddleware(svc *user.Service, roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func studentMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleStudent)
}

func adminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleAdmin)
}
