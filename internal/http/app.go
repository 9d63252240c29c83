// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"consulta_backend/internal/events"
	"consulta_backend/platform/config"
	"consulta_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.RateLimitConfig
	config.AutomationConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is pinged by GET /api/health.
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
