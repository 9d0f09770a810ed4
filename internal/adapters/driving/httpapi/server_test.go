package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/askme/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askme/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/services"
	"github.com/custodia-labs/askme/internal/normalisers/english"
)

const adminToken = "s3cret"

type testAPI struct {
	srv     *httptest.Server
	tenants *services.TenantService
	faqs    *services.FAQService
}

func newTestAPI(t *testing.T, settings domain.ServerSettings) *testAPI {
	t.Helper()
	return newTestAPIWithDelivery(t, settings, services.NewDeliveryService(4, nil), 0)
}

func newTestAPIWithDelivery(
	t *testing.T, settings domain.ServerSettings, delivery *services.DeliveryService, delay time.Duration,
) *testAPI {
	t.Helper()
	store := memory.NewStore()
	normaliser, err := english.Shared()
	require.NoError(t, err)
	embedder := hashing.NewEmbeddingService(hashing.Config{})

	indexes, err := services.NewIndexCache(store.FAQStore(), flat.Builder{}, 8)
	require.NoError(t, err)
	retrieval := services.NewRetrievalService(normaliser, embedder, indexes, services.NewQueryCache(16, time.Minute))
	tenants := services.NewTenantService(store.TenantStore(), retrieval)
	faqs := services.NewFAQService(store.FAQStore(), normaliser, embedder, retrieval)

	defaults := domain.DefaultAppSettings()
	defaults.Delivery.Delay = delay
	ask := services.NewAskService(retrieval, delivery, store.TenantStore(), defaults)

	if settings.AdminToken == "" {
		settings.AdminToken = adminToken
	}
	s := NewServer(Config{
		Tenants:     tenants,
		FAQs:        faqs,
		Ask:         ask,
		Retrieval:   retrieval,
		Settings:    settings,
		DefaultMode: domain.DeliveryModeDirect,
		Version:     "test",
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, tenants: tenants, faqs: faqs}
}

func (a *testAPI) do(t *testing.T, method, path, apiKey, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set(HeaderAPIKey, apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) tenantWithFAQs(t *testing.T) *domain.Tenant {
	t.Helper()
	tenant, err := a.tenants.Create(context.Background(), "acme", nil)
	require.NoError(t, err)
	resp := a.do(t, http.MethodPost, "/api/faqs", tenant.APIKey, "application/json", strings.NewReader(
		`{"faqs":[{"question":"What is X?","answer":"X is Y."},{"question":"Where are your offices?","answer":"In Lisbon."}]}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return tenant
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLandingAndStatus(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})
	api.tenantWithFAQs(t)

	resp := api.do(t, http.MethodGet, "/", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"name": "askme", "version": "test"}, decode[map[string]string](t, resp))
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	status := decode[statusResponse](t, api.do(t, http.MethodGet, "/chatbot/status", "", "", nil))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, domain.DeliveryModeDirect, status.Mode)
	assert.Equal(t, 1, status.Tenants)
}

func TestCreateTenant(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})

	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/api/tenants", strings.NewReader(`{"name":"acme"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[createTenantResponse](t, resp)
	assert.Equal(t, "acme", created.Name)
	assert.Len(t, created.APIKey, 32)

	resp = api.do(t, http.MethodPost, "/api/tenants", "", "application/json", strings.NewReader(`{"name":"x"}`))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuth_MissingOrInvalidKey(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})

	for _, key := range []string{"", "deadbeef"} {
		resp := api.do(t, http.MethodPost, "/api/ask", key, "application/json", strings.NewReader(`{"query":"x"}`))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.NotEmpty(t, decode[ErrorResponse](t, resp).Error)
	}
}

func TestUploadFormats(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})
	tenant, err := api.tenants.Create(context.Background(), "acme", nil)
	require.NoError(t, err)

	resp := api.do(t, http.MethodPost, "/api/faqs?format=csv", tenant.APIKey, "text/csv",
		strings.NewReader("question,answer\nq1,a1\n"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, decode[map[string]int](t, resp)["stored"])

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "faqs.yaml")
	require.NoError(t, err)
	_, err = part.Write([]byte("- question: q2\n  answer: a2\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp = api.do(t, http.MethodPost, "/api/faqs", tenant.APIKey, mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/faqs", tenant.APIKey, "", nil)
	listed := decode[[]faqResponse](t, resp)
	require.Len(t, listed, 2)
	assert.Equal(t, "q1", listed[0].Question)
	assert.Equal(t, "q2", listed[1].Question)

	resp = api.do(t, http.MethodPost, "/api/faqs", tenant.APIKey, "application/json",
		strings.NewReader(`[{"question":"q","answer":""}]`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/faqs?format=xlsx", tenant.APIKey, "", strings.NewReader("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAsk_JSON(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})
	tenant := api.tenantWithFAQs(t)

	resp := api.do(t, http.MethodPost, "/api/ask", tenant.APIKey, "application/json",
		strings.NewReader(`{"query":"what is x","top_k":1}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[askResponse](t, resp)
	assert.Equal(t, "X is Y.", strings.TrimSpace(got.Answer))
	assert.Equal(t, domain.DeliveryModeDirect, got.Mode)
	require.Len(t, got.Results, 1)
	assert.Zero(t, got.Results[0].Distance)
}

func TestAsk_ErrorMapping(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})
	tenant, err := api.tenants.Create(context.Background(), "empty", nil)
	require.NoError(t, err)

	resp := api.do(t, http.MethodPost, "/api/ask", tenant.APIKey, "application/json", strings.NewReader(`{"query":"x"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/ask", tenant.APIKey, "application/json", strings.NewReader(`{"query":"x","mode":"shout"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/ask", tenant.APIKey, "application/json", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAsk_LLMWithoutGeneratorIsUnavailable(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})
	tenant := api.tenantWithFAQs(t)

	resp := api.do(t, http.MethodPost, "/api/ask", tenant.APIKey, "application/json",
		strings.NewReader(`{"query":"what is x","mode":"llm"}`))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAsk_ServerSentEvents(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})
	tenant := api.tenantWithFAQs(t)

	resp := api.do(t, http.MethodPost, "/api/ask", tenant.APIKey, "application/json",
		strings.NewReader(`{"query":"what is x","stream":true}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var text strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			text.WriteString(data)
		}
	}
	assert.Equal(t, "X is Y.", strings.TrimSpace(text.String()))
}

func TestAsk_RateLimited(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{RateLimit: 0.001, RateBurst: 1})
	tenant := api.tenantWithFAQs(t)

	resp := api.do(t, http.MethodGet, "/api/faqs", tenant.APIKey, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestAsk_WebSocket(t *testing.T) {
	api := newTestAPI(t, domain.ServerSettings{})
	tenant := api.tenantWithFAQs(t)

	url := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/api/ask/ws?api_key=" + tenant.APIKey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(askRequest{Query: "where are the offices", TopK: 1}))

	var text strings.Builder
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		if string(msg) == wsDoneMessage {
			break
		}
		text.Write(msg)
	}
	assert.Equal(t, "In Lisbon.", strings.TrimSpace(text.String()))

	require.NoError(t, conn.WriteJSON(askRequest{Query: "x", Mode: "shout"}))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "error")
}

func TestAsk_WebSocketDisconnectReleasesSlot(t *testing.T) {
	delivery := services.NewDeliveryService(1, nil)
	api := newTestAPIWithDelivery(t, domain.ServerSettings{}, delivery, 50*time.Millisecond)
	ctx := context.Background()
	tenant, err := api.tenants.Create(ctx, "verbose", nil)
	require.NoError(t, err)
	_, err = api.faqs.StoreFAQs(ctx, tenant.ID, []domain.FAQInput{
		{Question: "Tell me everything", Answer: strings.Repeat("word ", 120)},
	})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/api/ask/ws?api_key=" + tenant.APIKey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(askRequest{Query: "tell me everything"}))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// The full answer takes seconds; the slot must come back well before that.
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	text, err := services.Collect(delivery.StreamAnswer(waitCtx, "freed", 0))
	require.NoError(t, err)
	assert.Equal(t, "freed", strings.TrimSpace(text))
}

func TestStatusFor(t *testing.T) {
	tests := map[error]int{
		domain.ErrInvalidInput:       http.StatusBadRequest,
		domain.ErrTenantNotFound:     http.StatusForbidden,
		domain.ErrNoResults:          http.StatusNotFound,
		domain.ErrRateLimited:        http.StatusTooManyRequests,
		domain.ErrStorageUnavailable: http.StatusServiceUnavailable,
		domain.ErrGenerationFailed:   http.StatusBadGateway,
		io.EOF:                       http.StatusInternalServerError,
	}
	for err, want := range tests {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
