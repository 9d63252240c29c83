// Package refresh pushes "data changed" signals to connected editors over
// Server-Sent Events so open views re-fetch what another writer touched.
package refresh

import (
	"context"
	"net/http"
	"sync"
	"time"

	"consulta_backend/internal/consultations/domain"
	"consulta_backend/internal/events"
	"consulta_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	clientBuffer      = 32
	heartbeatInterval = 25 * time.Second
)

// Event is one SSE frame. Type is the SSE event name: "<prefix>-refreshed"
// for sub-document writes, or the consultation event name.
type Event struct {
	Type           string    `json:"type"`
	ConsultationID uuid.UUID `json:"consultaId"`
	Data           any       `json:"data,omitempty"`
}

type client struct {
	doctorID       uuid.UUID
	consultationID uuid.UUID // uuid.Nil streams every consultation of the doctor
	events         chan Event
}

func (c *client) wants(e Event) bool {
	return c.consultationID == uuid.Nil || c.consultationID == e.ConsultationID
}

// Hub fans bus events out to the owning doctor's open streams.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

func New(log *logger.Logger) *Hub {
	return &Hub{clients: make(map[uuid.UUID][]*client), log: log}
}

// RegisterHandlers subscribes to every domain's refresh event plus the
// consultation lifecycle events.
func (h *Hub) RegisterHandlers(bus events.Bus, registry *domain.Registry) {
	for _, entry := range registry.Entries() {
		bus.Subscribe(events.RefreshedEventName(entry.Prefix), h)
	}
	bus.Subscribe(events.ConsultationCreated{}.EventName(), h)
	bus.Subscribe(events.ConsultationStageChanged{}.EventName(), h)
}

// Handle routes bus events to streams.
func (h *Hub) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.DomainRefreshed:
		h.Publish(e.DoctorID, Event{
			Type:           e.EventName(),
			ConsultationID: e.ConsultationID,
			Data: gin.H{
				"domain":    e.Prefix,
				"fieldPath": e.FieldPath,
				"origem":    e.Origin,
				"data":      e.Document,
			},
		})
	case events.ConsultationStageChanged:
		h.Publish(e.DoctorID, Event{Type: e.EventName(), ConsultationID: e.ConsultationID, Data: e})
	case events.ConsultationCreated:
		h.Publish(e.DoctorID, Event{Type: e.EventName(), ConsultationID: e.ConsultationID, Data: e})
	}
	return nil
}

// Publish delivers to every matching stream of the doctor. A full buffer
// drops the frame; the client re-fetches on the next one.
func (h *Hub) Publish(doctorID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[doctorID] {
		if !c.wants(event) {
			continue
		}
		select {
		case c.events <- event:
		default:
			h.log.Warn("sse buffer full", "doctorId", doctorID, "event", event.Type)
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.doctorID] = append(h.clients[c.doctorID], c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[c.doctorID]
	for i, cl := range clients {
		if cl == c {
			h.clients[c.doctorID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.clients[c.doctorID]) == 0 {
		delete(h.clients, c.doctorID)
	}
}

// Clients reports how many streams the doctor has open.
func (h *Hub) Clients(doctorID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[doctorID])
}

// Handler streams events. resolve writes its own error response when it
// returns false. ?consultationId narrows the stream to one consultation.
func (h *Hub) Handler(resolve func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		doctorID, ok := resolve(c)
		if !ok {
			return
		}

		var consultationID uuid.UUID
		if raw := c.Query("consultationId"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "consultationId inválido"})
				return
			}
			consultationID = parsed
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{doctorID: doctorID, consultationID: consultationID, events: make(chan Event, clientBuffer)}
		h.add(cl)
		defer h.remove(cl)

		c.SSEvent("connected", gin.H{"doctorId": doctorID})
		c.Writer.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case <-heartbeat.C:
				c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
				c.Writer.Flush()
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				c.SSEvent(event.Type, event)
				c.Writer.Flush()
			}
		}
	}
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	h.clients = make(map[uuid.UUID][]*client)
}
