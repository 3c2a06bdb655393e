package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/service-portal/internal/adapter/api/handler"
	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/adapter/pii"
	"github.com/V4T54L/service-portal/internal/adapter/repository/memory"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/domain/mocks"
	"github.com/V4T54L/service-portal/internal/usecase"
)

var referencePattern = regexp.MustCompile(`^UW-\d{6}-[0-9A-F]{6}$`)

type testPortal struct {
	server   *httptest.Server
	admin    *httptest.Server
	client   *http.Client
	notifier *mocks.MockNotifier
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewPortalMetrics(reg)

	customers := memory.NewCustomerRepository(
		domain.Customer{FullName: "Ali Hassan", MeterNumber: "MTR-100", AccountNumber: "ACC-100", NationalID: "1122334455", Phone: "0512345678"},
		domain.Customer{FullName: "Sara Omar", MeterNumber: "MTR-200", AccountNumber: "ACC-200"},
	)
	sessions := memory.NewSessionRepository()
	history := memory.NewHistoryRepository()
	notifier := &mocks.MockNotifier{}
	catalog := usecase.DefaultCatalog()

	audit := usecase.NewAuditLogger(history, nil, m, logger)
	issuer := usecase.NewRequestIssuer(catalog, usecase.NewReferenceGenerator("UW"), memory.NewServiceRequestRepository(), notifier, audit, m, logger)
	access := usecase.NewAccessUseCase(memory.NewUserRepository(), memory.NewOTPRepository(), &mocks.MockSMSSender{}, usecase.AccessConfig{
		JWTSecret:      "test-secret",
		JWTExpiry:      time.Hour,
		OTPTTL:         5 * time.Minute,
		ResendCooldown: time.Minute,
		Bypass:         true,
		DevCode:        "111111",
	}, logger)
	lookup := usecase.NewLookupUseCase(customers, sessions, audit, 30*time.Minute, m, logger)
	workflow := usecase.NewWorkflowUseCase(sessions, customers, catalog, issuer, 30*time.Minute, logger)
	historyUC := usecase.NewHistoryUseCase(history, pii.NewDefaultMasker())

	router := NewRouter(RouterConfig{
		SessionCookie: "portal_session",
		SessionTTL:    30 * time.Minute,
		TokenTTL:      time.Hour,
		RateLimit:     100,
		RateBurst:     100,
	}, logger, access, lookup, workflow, historyUC)
	adminRouter := NewAdminRouter(historyUC, reg, map[string]handler.HealthCheck{}, logger)

	server := httptest.NewServer(router)
	admin := httptest.NewServer(adminRouter)
	t.Cleanup(server.Close)
	t.Cleanup(admin.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testPortal{server: server, admin: admin, client: client, notifier: notifier}
}

func (p *testPortal) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, p.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func (p *testPortal) signIn(t *testing.T) {
	t.Helper()
	p.signInAs(t, "0598765432", "9988776655")
}

func (p *testPortal) signInAs(t *testing.T, phone, nationalID string) {
	t.Helper()
	resp, _ := p.do(t, http.MethodPost, "/access/signup", map[string]string{
		"phone": phone, "national_id": nationalID, "password": "secret123",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, body := p.do(t, http.MethodPost, "/access/verify-otp", map[string]string{"phone": phone, "code": "111111"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, body["token"])
}

func TestRouter_LookupRequiresLogin(t *testing.T) {
	p := newTestPortal(t)

	resp, body := p.do(t, http.MethodPost, "/lookup", map[string]string{"meter_number": "MTR-100"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authentication required", body["error"])
}

func TestRouter_FullServiceRequestFlow(t *testing.T) {
	p := newTestPortal(t)
	p.signIn(t)

	resp, body := p.do(t, http.MethodGet, "/lookup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	initial := body["initial"].(map[string]any)
	assert.Equal(t, "0598765432", initial["phone"])

	resp, body = p.do(t, http.MethodPost, "/lookup", map[string]string{"national_id": "1122334455"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "single_match", body["outcome"])
	assert.Equal(t, "awaiting_role", body["next_step"])

	resp, body = p.do(t, http.MethodPost, "/lookup/services/pay_debt", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/lookup", resp.Header.Get("Location"))
	assert.Equal(t, "/lookup", body["redirect"])

	resp, _ = p.do(t, http.MethodPost, "/lookup/role", map[string]string{"role": "tenant"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = p.do(t, http.MethodPost, "/lookup/role", map[string]string{"role": "owner"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "awaiting_service_selection", body["next_step"])

	resp, body = p.do(t, http.MethodGet, "/lookup/services", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "owner", body["role"])
	assert.Equal(t, "db", body["customer_source"])
	assert.Len(t, body["services"], 7)

	resp, body = p.do(t, http.MethodPost, "/lookup/services/launch_rocket", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Len(t, body["services"], 7)

	resp, body = p.do(t, http.MethodPost, "/lookup/services/pay_debt", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reference, _ := body["reference"].(string)
	assert.Regexp(t, referencePattern, reference)
	assert.Equal(t, "owner", body["role"])
	require.Len(t, p.notifier.Sent, 1)
	assert.Equal(t, reference, p.notifier.Sent[0].Reference)
	assert.Equal(t, "Ali Hassan", p.notifier.Sent[0].CustomerName)

	resp, body = p.do(t, http.MethodGet, "/lookup/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])
	items := body["items"].([]any)
	newest := items[0].(map[string]any)
	assert.Equal(t, "request:pay_debt", newest["action"])
	assert.Contains(t, newest["message"], reference)
	oldest := items[1].(map[string]any)
	assert.Equal(t, "lookup", oldest["action"])
	assert.Equal(t, "national-id", oldest["query_type"])
	assert.Equal(t, "112***455", oldest["masked_value"])
	assert.Equal(t, "112***455", oldest["snapshot"].(map[string]any)["national_id"])

	adminResp, err := http.Get(p.admin.URL + "/admin/history?type=national-id")
	require.NoError(t, err)
	defer adminResp.Body.Close()
	var adminPage map[string]any
	require.NoError(t, json.NewDecoder(adminResp.Body).Decode(&adminPage))
	assert.EqualValues(t, 1, adminPage["total"])
	adminItem := adminPage["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "1122334455", adminItem["snapshot"].(map[string]any)["national_id"])

	metricsResp, err := http.Get(p.admin.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	raw, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `portal_service_requests_total{service="pay_debt"} 1`))
}

func TestRouter_InvalidLookupAndSelection(t *testing.T) {
	p := newTestPortal(t)
	p.signIn(t)

	resp, body := p.do(t, http.MethodPost, "/lookup", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid", body["outcome"])
	errs := body["errors"].(map[string]any)
	assert.Equal(t, usecase.MsgNoIdentifier, errs[domain.FormErrorKey])

	resp, body = p.do(t, http.MethodPost, "/lookup", map[string]string{"full_name": "a"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "multiple_matches", body["outcome"])
	preview := body["preview"].([]any)
	require.Len(t, preview, 2)
	first := preview[0].(map[string]any)

	resp, _ = p.do(t, http.MethodPost, "/lookup/select", map[string]any{"customer_id": 999})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body = p.do(t, http.MethodPost, "/lookup/select", map[string]any{"customer_id": first["id"]})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "single_match", body["outcome"])
	assert.Equal(t, "awaiting_role", body["next_step"])
}

func (p *testPortal) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	u, err := url.Parse(p.server.URL)
	require.NoError(t, err)
	for _, c := range p.client.Jar.Cookies(u) {
		if c.Name == "portal_session" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestRouter_SessionDoesNotOutliveItsUser(t *testing.T) {
	p := newTestPortal(t)
	p.signInAs(t, "0598765432", "9988776655")

	resp, _ := p.do(t, http.MethodPost, "/lookup", map[string]string{"national_id": "1122334455"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = p.do(t, http.MethodPost, "/lookup/role", map[string]string{"role": "owner"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	firstSession := p.sessionCookie(t).Value

	resp, _ = p.do(t, http.MethodPost, "/access/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEqual(t, firstSession, p.sessionCookie(t).Value)

	p.signInAs(t, "0591112222", "5544332211")
	resp, body := p.do(t, http.MethodPost, "/lookup/services/pay_debt", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/lookup", body["redirect"])

	u, err := url.Parse(p.server.URL)
	require.NoError(t, err)
	p.client.Jar.SetCookies(u, []*http.Cookie{{Name: "portal_session", Value: firstSession, Path: "/"}})
	resp, _ = p.do(t, http.MethodPost, "/lookup/services/pay_debt", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = p.do(t, http.MethodGet, "/lookup/services", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	assert.Empty(t, p.notifier.Sent)
}

func TestRouter_LoginStartsNewSession(t *testing.T) {
	p := newTestPortal(t)
	p.signIn(t)
	before := p.sessionCookie(t).Value

	resp, _ := p.do(t, http.MethodPost, "/access/login", map[string]string{"phone": "0598765432", "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, before, p.sessionCookie(t).Value)
}

func TestAdminRouter_Health(t *testing.T) {
	p := newTestPortal(t)

	resp, err := http.Get(p.admin.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
