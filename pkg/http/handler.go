package http

import "github.com/labstack/echo/v4"

// Handler is anything that can mount routes on the shared echo
// instance. The server accepts one; compose multiple with a router.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
