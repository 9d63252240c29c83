// Package consultations provides the consultations domain module: field
// edits, AI edit requests and stage advancement.
package consultations

import (
	"consulta_backend/internal/audit"
	"consulta_backend/internal/consultations/domain"
	"consulta_backend/internal/consultations/handler"
	"consulta_backend/internal/consultations/repository"
	"consulta_backend/internal/consultations/service"
	"consulta_backend/internal/events"
	apphttp "consulta_backend/internal/http"
	"consulta_backend/internal/refresh"
	"consulta_backend/platform/logger"
	"consulta_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the consultations domain module
type Module struct {
	handler *handler.Handler
	hub     *refresh.Hub
	Service *service.Service
}

// NewModule creates a new consultations module with all dependencies wired.
// The refresh hub is subscribed to the bus here.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, doctors handler.DoctorResolver, notifier service.Notifier, bus events.Bus, log *logger.Logger) *Module {
	registry := domain.DefaultRegistry()
	svc := service.New(repository.New(pool), repository.NewDocuments(pool), registry, notifier, audit.New(pool), bus, log)

	hub := refresh.New(log)
	hub.RegisterHandlers(bus, registry)

	return &Module{
		handler: handler.New(svc, doctors, val),
		hub:     hub,
		Service: svc,
	}
}

// SetCalendar enables calendar sync on creation.
func (m *Module) SetCalendar(c service.CalendarSyncer) {
	m.Service.SetCalendar(c)
}

// Hub returns the SSE hub so main can close it on shutdown.
func (m *Module) Hub() *refresh.Hub {
	return m.hub
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "consultations"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	consultations := ctx.Protected.Group("/consultations")
	consultations.GET("/events", m.hub.Handler(m.handler.DoctorID))
	m.handler.RegisterRoutes(consultations)

	ctx.Protected.GET("/field-registry", m.handler.FieldRegistry)
	m.handler.RegisterAutomationRoutes(ctx.Automation)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
