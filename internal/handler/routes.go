package handler

import "github.com/labstack/echo/v4"

// Guards bundles the middleware chains handlers attach to their routes.
type Guards struct {
	Auth   echo.MiddlewareFunc // valid access token
	Active echo.MiddlewareFunc // token subject exists and is active
	Admin  echo.MiddlewareFunc // admin role
}

func (g Guards) authenticated() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.Auth, g.Active}
}
