package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio-notify/internal/handler"
	"portfolio-notify/internal/model"
	"portfolio-notify/internal/service/contact"
	"portfolio-notify/internal/service/visit"
	"portfolio-notify/pkg/circuitbreaker"
	"portfolio-notify/pkg/config"
	"portfolio-notify/pkg/ratelimit"
	"portfolio-notify/pkg/trace"
)

type okSubmitter struct{ calls int }

func (s *okSubmitter) Submit(context.Context, model.ContactSubmission) contact.Outcome {
	s.calls++
	return contact.Outcome{State: contact.StateSucceeded, OwnerNotified: true, ConfirmationSent: true}
}

type traceRecorder struct{ traceID string }

func (r *traceRecorder) Record(ctx context.Context, ev model.VisitEvent) visit.Result {
	r.traceID = trace.FromContext(ctx)
	return visit.Result{Event: ev, Recorded: true}
}

type fakeConn struct{ up bool }

func (f fakeConn) IsConnected() bool { return f.up }

func newTestRouter(t *testing.T, mutate func(*Options)) (*Router, *okSubmitter, *traceRecorder) {
	t.Helper()
	sub := &okSubmitter{}
	rec := &traceRecorder{}
	opts := Options{
		Logger:  zap.NewNop(),
		Server:  config.ServerConfig{Port: ":0"},
		Contact: handler.NewContactHandler(sub),
		Visit:   handler.NewVisitHandler(rec, zap.NewNop()),
		Config:  handler.NewConfigHandler(config.RelayConfig{ServiceID: "svc"}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	r, err := NewRouter(opts)
	require.NoError(t, err)
	return r, sub, rec
}

func serve(r *Router, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRouter_Health(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ReadyzReportsMQ(t *testing.T) {
	r, _, _ := newTestRouter(t, func(o *Options) { o.Publisher = fakeConn{up: false} })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "mq_not_ready")
}

func TestRouter_Metrics(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)
	serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}

func TestRouter_PostOnlyRoutes(t *testing.T) {
	r, sub, _ := newTestRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/contact", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST", w.Header().Get("Allow"))

	for _, m := range []string{http.MethodDelete, http.MethodTrace, http.MethodOptions, "PROPFIND"} {
		w = serve(r, httptest.NewRequest(m, "/api/log-visit", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, m)
		assert.Equal(t, "POST", w.Header().Get("Allow"), m)
		assert.Equal(t, "Method "+m+" Not Allowed", w.Body.String())

		w = serve(r, httptest.NewRequest(m, "/api/contact", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, m)
		assert.Equal(t, "POST", w.Header().Get("Allow"), m)
		assert.Empty(t, w.Body.String(), m)
	}

	w = serve(r, postJSON("/api/contact", `{"from":"a@x.com","subject":"Hi","message":"Hello"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, sub.calls)
}

func TestRouter_TracePropagation(t *testing.T) {
	r, _, rec := newTestRouter(t, nil)

	req := postJSON("/api/log-visit", `{"url":"https://example.dev/"}`)
	req.Header.Set(trace.HeaderName, "trace-123")
	w := serve(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-123", w.Header().Get(trace.HeaderName))
	assert.Equal(t, "trace-123", rec.traceID)

	w = serve(r, postJSON("/api/log-visit", `{"url":"https://example.dev/"}`))
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}

func TestRouter_ContactRateLimited(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Rate: 0.001, Burst: 2})
	t.Cleanup(limiter.Stop)
	r, sub, _ := newTestRouter(t, func(o *Options) { o.Limiter = limiter.Middleware() })

	body := `{"from":"a@x.com","subject":"Hi","message":"Hello"}`
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, postJSON("/api/contact", body)).Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, sub.calls)

	w := serve(r, postJSON("/api/log-visit", `{"url":"https://example.dev/"}`))
	assert.Equal(t, http.StatusOK, w.Code, "visit logging is not rate limited")
}

func TestRouter_CORSPreflight(t *testing.T) {
	r, _, _ := newTestRouter(t, func(o *Options) {
		o.Server.AllowedOrigins = []string{"https://portfolio.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://portfolio.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_StaticAndResume(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.html"), []byte("<h1>hello</h1>"), 0o644))
	resume := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("%PDF-1.4"), 0o644))

	r, _, _ := newTestRouter(t, func(o *Options) {
		o.Server.StaticDir = dir
		o.Server.ResumePath = resume
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/resume", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/about.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/missing.txt", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fixedBreaker struct{ state circuitbreaker.State }

func (b fixedBreaker) State() circuitbreaker.State { return b.state }

func TestRouter_ReadyzReportsMailCircuit(t *testing.T) {
	r, _, _ := newTestRouter(t, func(o *Options) { o.MailBreaker = fixedBreaker{state: circuitbreaker.StateOpen} })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mail_circuit":"open"`)
}

func TestRouter_ForwardedForIgnoredWithoutTrustedProxies(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Rate: 0.001, Burst: 1})
	t.Cleanup(limiter.Stop)
	r, sub, _ := newTestRouter(t, func(o *Options) { o.Limiter = limiter.Middleware() })

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := postJSON("/api/contact", `{"from":"a@x.com","subject":"Hi","message":"Hello"}`)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		codes = append(codes, serve(r, req).Code)
	}

	assert.Equal(t, []int{200, 429, 429, 429, 429}, codes)
	assert.Equal(t, 1, sub.calls)
}

func TestRouter_ForwardedForHonouredFromTrustedProxy(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Rate: 0.001, Burst: 1})
	t.Cleanup(limiter.Stop)
	r, sub, _ := newTestRouter(t, func(o *Options) {
		o.Limiter = limiter.Middleware()
		o.Server.TrustedProxies = []string{"198.51.100.0/24"}
	})

	for i := 0; i < 3; i++ {
		req := postJSON("/api/contact", `{"from":"a@x.com","subject":"Hi","message":"Hello"}`)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	}
	assert.Equal(t, 3, sub.calls)
}

func TestNewRouter_RejectsInvalidTrustedProxies(t *testing.T) {
	_, err := NewRouter(Options{
		Logger:  zap.NewNop(),
		Server:  config.ServerConfig{TrustedProxies: []string{"not-an-ip"}},
		Contact: handler.NewContactHandler(&okSubmitter{}),
		Visit:   handler.NewVisitHandler(&traceRecorder{}, zap.NewNop()),
		Config:  handler.NewConfigHandler(config.RelayConfig{}),
	})
	assert.Error(t, err)
}
