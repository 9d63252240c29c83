package http

import (
	"consulta_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is the /api/v1 route group, without authentication.
	V1 *gin.RouterGroup
	// Protected is V1 behind bearer-token authentication.
	Protected *gin.RouterGroup
	// Automation is /api/v1/automation behind the shared automation secret.
	Automation *gin.RouterGroup
	Config     config.JWTConfig
}
