package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"consulta_backend/platform/apperr"
	"consulta_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookConfig struct {
	edit    map[string]string
	stage   map[string]string
	token   string
	secret  string
	timeout time.Duration
}

func (c webhookConfig) GetWebhookEditURL(category string) string { return c.edit[category] }
func (c webhookConfig) GetWebhookStageURL(event string) string   { return c.stage[event] }
func (c webhookConfig) GetWebhookAuthToken() string              { return c.token }
func (c webhookConfig) GetWebhookSigningSecret() string          { return c.secret }
func (c webhookConfig) GetWebhookTimeout() time.Duration         { return c.timeout }

type captured struct {
	mu      sync.Mutex
	bodies  []map[string]any
	raws    [][]byte
	headers []http.Header
}

func (c *captured) server(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.raws = append(c.raws, raw)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDispatcher(cfg webhookConfig) *Dispatcher {
	return NewDispatcher(NewClient(cfg), cfg, logger.Discard())
}

func TestNotifyFieldPatchPostsToCategoryEndpoint(t *testing.T) {
	rec := &captured{}
	srv := rec.server(t, http.StatusOK, `{}`)
	cfg := webhookConfig{
		edit:    map[string]string{"solucao": srv.URL},
		token:   "Bearer tok",
		secret:  "segredo",
		timeout: time.Second,
	}
	d := newDispatcher(cfg)

	d.NotifyFieldPatch(context.Background(), FieldPatch{
		Category:       "solucao",
		ConsultationID: "c-1",
		FieldPath:      "mentalidade_data.emdr_total_sessoes",
		Value:          0,
		Origin:         OriginManual,
		SolutionStage:  "MENTALIDADE",
	})
	d.Wait()

	require.Len(t, rec.bodies, 1)
	body := rec.bodies[0]
	assert.Equal(t, "mentalidade_data.emdr_total_sessoes", body["fieldPath"])
	assert.Equal(t, float64(0), body["value"])
	assert.Equal(t, "c-1", body["consultaId"])
	assert.Equal(t, "manual", body["origem"])
	assert.Equal(t, "MENTALIDADE", body["solucao_etapa"])
	assert.Equal(t, "Bearer tok", rec.headers[0].Get("Authorization"))

	assert.True(t, VerifySignature(rec.raws[0], "segredo", rec.headers[0].Get(HeaderSignature)))
}

func TestNotifyFieldPatchSwallowsFailures(t *testing.T) {
	rec := &captured{}
	srv := rec.server(t, http.StatusBadGateway, `upstream down`)
	d := newDispatcher(webhookConfig{edit: map[string]string{"anamnese": srv.URL}, timeout: time.Second})

	assert.NotPanics(t, func() {
		d.NotifyFieldPatch(context.Background(), FieldPatch{Category: "anamnese", ConsultationID: "c", FieldPath: "a_historico_risco.alergias", Value: "x"})
		d.NotifyFieldPatch(context.Background(), FieldPatch{Category: "diagnostico", ConsultationID: "c", FieldPath: "d_estado_geral.resumo"})
	})
	d.Wait()
	assert.Len(t, rec.bodies, 1)
}

func TestNotifyOutlivesRequestContext(t *testing.T) {
	rec := &captured{}
	srv := rec.server(t, http.StatusOK, `ok`)
	d := newDispatcher(webhookConfig{stage: map[string]string{"diagnostico": srv.URL}, timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	d.NotifyStageEntry(ctx, StageEntry{Event: "diagnostico", ConsultationID: "c", DoctorID: "d", PatientID: "p"})
	cancel()
	d.Wait()

	require.Len(t, rec.bodies, 1)
	assert.Equal(t, "diagnostico", rec.bodies[0]["event"])
	assert.NotContains(t, rec.bodies[0], "solucao_etapa")
}

type fakeQueue struct {
	got []Delivery
	err error
}

func (q *fakeQueue) EnqueueWebhookDelivery(_ context.Context, d Delivery) error {
	q.got = append(q.got, d)
	return q.err
}

func TestDispatchPrefersQueueAndFallsBack(t *testing.T) {
	rec := &captured{}
	srv := rec.server(t, http.StatusOK, `ok`)
	cfg := webhookConfig{edit: map[string]string{"anamnese": srv.URL}, timeout: time.Second}

	q := &fakeQueue{}
	d := newDispatcher(cfg)
	d.SetQueue(q)
	d.NotifyFieldPatch(context.Background(), FieldPatch{Category: "anamnese", ConsultationID: "c", FieldPath: "a_reino_miasma.justificativa", Value: "v"})
	d.Wait()

	require.Len(t, q.got, 1)
	assert.Equal(t, srv.URL, q.got[0].URL)
	assert.Equal(t, "notify_field_patch", q.got[0].Operation)
	assert.Empty(t, rec.bodies)

	q.err = errors.New("redis down")
	d.NotifyFieldPatch(context.Background(), FieldPatch{Category: "anamnese", ConsultationID: "c", FieldPath: "a_reino_miasma.justificativa", Value: "v"})
	d.Wait()
	assert.Len(t, rec.bodies, 1)
}

func TestSendInstructionDecodesReply(t *testing.T) {
	rec := &captured{}
	srv := rec.server(t, http.StatusOK, `[{"output":"Sugestão gerada"}]`)
	d := newDispatcher(webhookConfig{edit: map[string]string{"diagnostico": srv.URL}, timeout: time.Second})

	reply, err := d.SendInstruction(context.Background(), Instruction{
		Category: "diagnostico", ConsultationID: "c", FieldPath: "d_estado_mental.humor", Text: "resuma melhor",
	})

	require.NoError(t, err)
	assert.Equal(t, ReplyArray, reply.Kind)
	assert.Equal(t, "Sugestão gerada", reply.Message())
	assert.Equal(t, "resuma melhor", rec.bodies[0]["texto"])
	assert.Equal(t, "IA", rec.bodies[0]["origem"])
	assert.NotContains(t, rec.bodies[0], "value")
}

func TestSendInstructionErrorsAreNotificationKind(t *testing.T) {
	rec := &captured{}
	srv := rec.server(t, http.StatusInternalServerError, `boom`)
	d := newDispatcher(webhookConfig{edit: map[string]string{"anamnese": srv.URL}, timeout: time.Second})

	_, err := d.SendInstruction(context.Background(), Instruction{Category: "anamnese", ConsultationID: "c"})
	assert.Equal(t, apperr.KindNotification, apperr.GetKind(err))

	_, err = d.SendInstruction(context.Background(), Instruction{Category: "solucao", ConsultationID: "c"})
	assert.Equal(t, apperr.KindNotification, apperr.GetKind(err))
}

func TestSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"fieldPath":"ltb_data.objetivo"}`)
	header := signaturePrefix + SignPayload(payload, "k")
	assert.True(t, VerifySignature(payload, "k", header))
	assert.False(t, VerifySignature(payload, "other", header))
	assert.Equal(t, SignPayload(payload, "k"), SignPayload(payload, "k"))
}
