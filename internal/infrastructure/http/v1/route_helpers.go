package v1

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by handlers that own a route group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount registers handler's routes under rg/path.
//
// Usage:
//
//	Mount(v1, "/sales", handlers.NewSalesHandler(base, cfg.Analytics))
func Mount(rg *gin.RouterGroup, path string, handler RouteRegistrar) {
	handler.RegisterRoutes(rg.Group(path))
}
