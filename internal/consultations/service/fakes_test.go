package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"consulta_backend/internal/audit"
	"consulta_backend/internal/calendar"
	"consulta_backend/internal/consultations/domain"
	"consulta_backend/internal/consultations/repository"
	"consulta_backend/internal/events"
	"consulta_backend/internal/notify"
	"consulta_backend/platform/apperr"
	"consulta_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu               sync.Mutex
	rows             map[uuid.UUID]repository.Consultation
	patients         map[uuid.UUID]uuid.UUID
	creates          int
	transitions      int
	links            map[uuid.UUID]string
	lastList         repository.ListParams
	beforeTransition func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:     map[uuid.UUID]repository.Consultation{},
		patients: map[uuid.UUID]uuid.UUID{},
		links:    map[uuid.UUID]string{},
	}
}

func (f *fakeStore) add(c repository.Consultation) repository.Consultation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[c.ID] = c
	return c
}

func (f *fakeStore) Create(_ context.Context, c *repository.Consultation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("consulta não encontrada")
	}
	return &c, nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = params
	var items []repository.Consultation
	for _, c := range f.rows {
		if c.DoctorID == params.DoctorID {
			items = append(items, c)
		}
	}
	return &repository.ListResult{
		Items:      items,
		Total:      len(items),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: repository.TotalPages(len(items), params.PageSize),
	}, nil
}

func (f *fakeStore) PatientBelongsToDoctor(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patients[patientID] == doctorID, nil
}

func (f *fakeStore) TransitionState(_ context.Context, change repository.StateChange) (*repository.Consultation, error) {
	if f.beforeTransition != nil {
		f.beforeTransition()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[change.ConsultationID]
	if !ok || c.DoctorID != change.DoctorID || c.State() != change.From {
		return nil, apperr.Conflict("a consulta foi alterada por outra operação")
	}
	f.transitions++
	c.Status = string(change.To.Status)
	c.Etapa = optional(string(change.To.Stage))
	c.SolucaoEtapa = optional(string(change.To.SolutionStage))
	if change.ConsultaInicio != nil {
		c.ConsultaInicio = change.ConsultaInicio
	}
	f.rows[c.ID] = c
	return &c, nil
}

func (f *fakeStore) SetCalendarLink(_ context.Context, id uuid.UUID, _ string, meetLink string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[id] = meetLink
	return nil
}

func (f *fakeStore) setState(id uuid.UUID, s domain.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.rows[id]
	c.Status = string(s.Status)
	c.Etapa = optional(string(s.Stage))
	c.SolucaoEtapa = optional(string(s.SolutionStage))
	f.rows[id] = c
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

type fakeDocs struct {
	mu     sync.Mutex
	data   map[string]map[string]any
	writes int
	tables []string
	getErr error
	setErr error
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{data: map[string]map[string]any{}}
}

func docKey(table string, id uuid.UUID) string { return table + "/" + id.String() }

func (f *fakeDocs) Get(_ context.Context, table string, id uuid.UUID) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.data[docKey(table, id)]
	if !ok {
		return nil, nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (f *fakeDocs) SetField(_ context.Context, table string, id uuid.UUID, field string, value any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return nil, f.setErr
	}
	f.writes++
	f.tables = append(f.tables, table)
	doc, ok := f.data[docKey(table, id)]
	if !ok {
		doc = map[string]any{}
		f.data[docKey(table, id)] = doc
	}
	doc[field] = value
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

type fakeNotifier struct {
	mu           sync.Mutex
	patches      []notify.FieldPatch
	entries      []notify.StageEntry
	instructions []notify.Instruction
	reply        notify.Reply
	sendErr      error
}

func (f *fakeNotifier) NotifyFieldPatch(_ context.Context, p notify.FieldPatch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, p)
}

func (f *fakeNotifier) NotifyStageEntry(_ context.Context, e notify.StageEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}

func (f *fakeNotifier) SendInstruction(_ context.Context, in notify.Instruction) (notify.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instructions = append(f.instructions, in)
	if f.sendErr != nil {
		return notify.Reply{}, f.sendErr
	}
	return f.reply, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (f *fakeAudit) Record(_ context.Context, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.published))
	for i, e := range b.published {
		out[i] = e.EventName()
	}
	return out
}

type fakeCalendar struct {
	calls  int
	result calendar.Result
	err    error
}

func (f *fakeCalendar) Sync(context.Context, calendar.Request) (calendar.Result, error) {
	f.calls++
	return f.result, f.err
}

type harness struct {
	svc      *Service
	store    *fakeStore
	docs     *fakeDocs
	notifier *fakeNotifier
	audit    *fakeAudit
	bus      *recordingBus
	doctorID uuid.UUID
}

func newHarness() *harness {
	h := &harness{
		store:    newFakeStore(),
		docs:     newFakeDocs(),
		notifier: &fakeNotifier{},
		audit:    &fakeAudit{},
		bus:      &recordingBus{},
		doctorID: uuid.New(),
	}
	h.svc = New(h.store, h.docs, domain.DefaultRegistry(), h.notifier, h.audit, h.bus, logger.Discard())
	h.svc.now = func() time.Time { return time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) seed(s domain.State) repository.Consultation {
	return h.store.add(repository.Consultation{
		ID:               uuid.New(),
		DoctorID:         h.doctorID,
		PatientID:        uuid.New(),
		PatientName:      "Maria Souza",
		ConsultationType: string(domain.TypeTelemedicina),
		Status:           string(s.Status),
		Etapa:            optional(string(s.Stage)),
		SolucaoEtapa:     optional(string(s.SolutionStage)),
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	})
}

var errStore = errors.New("connection closed")
