package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"consulta_backend/internal/consultations/domain"
	"consulta_backend/internal/consultations/repository"
	"consulta_backend/internal/consultations/service"
	"consulta_backend/internal/events"
	"consulta_backend/internal/notify"
	"consulta_backend/platform/apperr"
	"consulta_backend/platform/httpkit"
	"consulta_backend/platform/logger"
	"consulta_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]repository.Consultation
}

func (s *memStore) Create(_ context.Context, c *repository.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.ID] = *c
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("consulta não encontrada")
	}
	return &c, nil
}

func (s *memStore) List(_ context.Context, p repository.ListParams) (*repository.ListResult, error) {
	return &repository.ListResult{Page: p.Page, PageSize: p.PageSize}, nil
}

func (s *memStore) PatientBelongsToDoctor(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (s *memStore) TransitionState(_ context.Context, ch repository.StateChange) (*repository.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.rows[ch.ConsultationID]
	c.Status = string(ch.To.Status)
	s.rows[c.ID] = c
	return &c, nil
}

func (s *memStore) SetCalendarLink(context.Context, uuid.UUID, string, string) error { return nil }

type memDocs struct{ data map[string]map[string]any }

func (d *memDocs) Get(_ context.Context, table string, id uuid.UUID) (map[string]any, error) {
	return d.data[table+id.String()], nil
}

func (d *memDocs) SetField(_ context.Context, table string, id uuid.UUID, field string, value any) (map[string]any, error) {
	doc := d.data[table+id.String()]
	if doc == nil {
		doc = map[string]any{}
		d.data[table+id.String()] = doc
	}
	doc[field] = value
	return doc, nil
}

type nopNotifier struct{}

func (nopNotifier) NotifyFieldPatch(context.Context, notify.FieldPatch) {}
func (nopNotifier) NotifyStageEntry(context.Context, notify.StageEntry) {}
func (nopNotifier) SendInstruction(context.Context, notify.Instruction) (notify.Reply, error) {
	return notify.DecodeReply([]byte(`"ok"`)), nil
}

type stubResolver struct {
	doctorID uuid.UUID
	err      error
}

func (r stubResolver) Resolve(context.Context, uuid.UUID) (uuid.UUID, error) {
	return r.doctorID, r.err
}

type fixture struct {
	engine   *gin.Engine
	store    *memStore
	doctorID uuid.UUID
}

func newFixture(t *testing.T, resolver stubResolver, authenticated bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memStore{rows: map[uuid.UUID]repository.Consultation{}}
	docs := &memDocs{data: map[string]map[string]any{}}
	bus := events.NewInMemoryBus(logger.Discard())
	svc := service.New(store, docs, domain.DefaultRegistry(), nopNotifier{}, nil, bus, logger.Discard())
	h := New(svc, resolver, validator.New())

	engine := gin.New()
	protected := engine.Group("/api/v1")
	if authenticated {
		protected.Use(func(c *gin.Context) {
			httpkit.SetIdentity(c, uuid.New())
			c.Next()
		})
	}
	h.RegisterRoutes(protected.Group("/consultations"))
	h.RegisterAutomationRoutes(engine.Group("/api/v1/automation"))

	return &fixture{engine: engine, store: store, doctorID: resolver.doctorID}
}

func (f *fixture) seed(doctorID uuid.UUID, status domain.Status, stage domain.Stage) uuid.UUID {
	id := uuid.New()
	var etapa *string
	if stage != domain.StageNone {
		s := string(stage)
		etapa = &s
	}
	f.store.rows[id] = repository.Consultation{
		ID: id, DoctorID: doctorID, PatientID: uuid.New(), PatientName: "Paciente",
		ConsultationType: "PRESENCIAL", Status: string(status), Etapa: etapa,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	return id
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httpkit.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, false)

	w := f.do(http.MethodGet, "/api/v1/consultations", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSchedulingWithoutStartIs400(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)

	w := f.do(http.MethodPost, "/api/v1/consultations", map[string]any{
		"patient_id":        uuid.New(),
		"patient_name":      "Carla",
		"consultation_type": "TELEMEDICINA",
		"status":            "AGENDAMENTO",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "consulta_inicio é obrigatório quando status é AGENDAMENTO", errorMessage(t, w))
}

func TestCreateReturns201(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)

	w := f.do(http.MethodPost, "/api/v1/consultations", map[string]any{
		"patient_id":        uuid.New(),
		"patient_name":      "Carla",
		"consultation_type": "PRESENCIAL",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CREATED", resp["status"])
}

func TestGetOtherDoctorsConsultationIs404(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)
	id := f.seed(uuid.New(), domain.StatusCreated, domain.StageNone)

	w := f.do(http.MethodGet, "/api/v1/consultations/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedIDIs400(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)

	w := f.do(http.MethodGet, "/api/v1/consultations/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDoctorLookupOutageIs503(t *testing.T) {
	outage := apperr.Unavailable("serviço temporariamente indisponível, tente novamente", nil)
	f := newFixture(t, stubResolver{err: outage}, true)

	w := f.do(http.MethodGet, "/api/v1/consultations", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "serviço temporariamente indisponível, tente novamente", errorMessage(t, w))
}

func TestPatchFieldResponses(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)
	id := f.seed(f.doctorID, domain.StatusValidAnamnese, domain.StageAnamnese)
	path := "/api/v1/consultations/" + id.String() + "/fields"

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"stored", map[string]any{"fieldPath": "a_historia_vida.infancia", "value": "feliz"}, http.StatusOK},
		{"malformed path", map[string]any{"fieldPath": "sem_ponto", "value": "x"}, http.StatusBadRequest},
		{"unknown domain", map[string]any{"fieldPath": "zz_desconhecido.campo", "value": "x"}, http.StatusBadRequest},
		{"missing path", map[string]any{"value": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPatch, path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestValidationDetailsArePortuguese(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)
	id := f.seed(f.doctorID, domain.StatusValidAnamnese, domain.StageAnamnese)

	w := f.do(http.MethodPatch, "/api/v1/consultations/"+id.String()+"/fields", map[string]any{
		"fieldPath": "sem_ponto",
		"value":     "x",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"falha na validação","details":{"fieldPath":"use o formato prefixo.campo"}}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/v1/consultations?dateFilter=year", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"falha na validação","details":{"dateFilter":"deve ser um de: day, week, month"}}`, w.Body.String())
}

func TestMalformedBodyHasNoDetails(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/consultations", bytes.NewBufferString(`{"patient_id":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"requisição inválida"}`, w.Body.String())
}

func TestPatchFieldReturnsDocument(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)
	id := f.seed(f.doctorID, domain.StatusValidAnamnese, domain.StageAnamnese)

	w := f.do(http.MethodPatch, "/api/v1/consultations/"+id.String()+"/fields", map[string]any{
		"fieldPath": "a_historia_vida.infancia",
		"value":     "no interior",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"infancia":"no interior"}}`, w.Body.String())
}

func TestAIEditIs202(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)
	id := f.seed(f.doctorID, domain.StatusValidAnamnese, domain.StageAnamnese)

	w := f.do(http.MethodPost, "/api/v1/consultations/"+id.String()+"/ai-edit", map[string]any{
		"fieldPath":   "a_historia_vida.infancia",
		"instruction": "resuma",
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["delivered"])
	assert.Equal(t, "ok", resp["message"])
}

func TestAdvanceWithEmptyBodyTakesDefault(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, true)
	id := f.seed(f.doctorID, domain.StatusCreated, domain.StageNone)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/consultations/"+id.String()+"/advance", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RECORDING", resp["status"])
}

func TestAutomationPatchSkipsDoctorScope(t *testing.T) {
	f := newFixture(t, stubResolver{doctorID: uuid.New()}, false)
	id := f.seed(uuid.New(), domain.StatusProcessing, domain.StageDiagnostico)

	w := f.do(http.MethodPost, "/api/v1/automation/consultations/"+id.String()+"/fields", map[string]any{
		"fieldPath": "d_estado_geral.resumo",
		"value":     "estável",
	})

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
