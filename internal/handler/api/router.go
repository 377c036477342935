package api

import "github.com/labstack/echo/v4"

// Router registers every HTTP surface of the service on one echo instance.
type Router struct {
	intel *IntelligenceEchoHandler
	live  *LiveHandler
}

func NewRouter(intel *IntelligenceEchoHandler, live *LiveHandler) *Router {
	return &Router{intel: intel, live: live}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.intel.RegisterRoutes(e)
	r.live.RegisterRoutes(e)
}
