package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/libs"
	"github.com/oarkflow/streamguard/pkg/models"
	"github.com/oarkflow/streamguard/pkg/objects"
	"github.com/oarkflow/streamguard/pkg/ratelimit"
)

type stubWorkflow struct {
	mu     sync.Mutex
	inputs []models.Input
	ips    []string
	result models.ResetResult
	status models.AttemptStatus
	err    error
}

func (s *stubWorkflow) record(input models.Input, ip string) (*models.ResetAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	s.ips = append(s.ips, ip)
	if s.err != nil {
		return &models.ResetAttempt{State: models.StateFailed}, s.err
	}
	return &models.ResetAttempt{State: models.StateSucceeded, Result: s.result}, nil
}

func (s *stubWorkflow) RequestLink(_ context.Context, input models.Input, ip string) (*models.ResetAttempt, error) {
	return s.record(input, ip)
}

func (s *stubWorkflow) Reset(_ context.Context, input models.Input, ip string) (*models.ResetAttempt, error) {
	return s.record(input, ip)
}

func (s *stubWorkflow) Status(_ context.Context, email, ip string) (models.AttemptStatus, error) {
	if _, err := s.record(models.Input{"email": email}, ip); err != nil {
		return models.AttemptStatus{}, err
	}
	return s.status, nil
}

// newApp builds the routes behind the given trusted proxies. app.Test
// connections come from 0.0.0.0.
func newApp(t *testing.T, wf *stubWorkflow, trustedProxies ...string) *fiber.App {
	t.Helper()
	cfg := &libs.Config{EndpointMax: 3, EndpointDecay: time.Minute, TrustedProxies: trustedProxies}
	previous := objects.Manager
	objects.Manager = libs.NewManager(cfg, wf, ratelimit.New(ratelimit.NewMemoryStore()), nil)
	t.Cleanup(func() { objects.Manager = previous })

	app := fiber.New(cfg.ApplyProxy(fiber.Config{}))
	Setup("/", app)
	return app
}

func jsonRequest(method, target string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestHealth(t *testing.T) {
	app := newApp(t, &stubWorkflow{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
	assert.Equal(t, "DENY", resp.Header.Get(fiber.HeaderXFrameOptions))
	assert.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, "ok", decode(t, resp)["status"])
}

func TestForgotPassword_Success(t *testing.T) {
	wf := &stubWorkflow{result: models.ResetResult{Success: true, Message: errs.MsgLinkSent}}
	app := newApp(t, wf, "0.0.0.0")

	req := jsonRequest(http.MethodPost, "/password/forgot", map[string]any{"email": "jane@example.com"})
	req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.7, 10.0.0.1")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, errs.MsgLinkSent, body["message"])
	require.Len(t, wf.inputs, 1)
	assert.Equal(t, "jane@example.com", wf.inputs[0]["email"])
	assert.Equal(t, "203.0.113.7", wf.ips[0])
}

func TestForwardedForFromUntrustedPeerIsIgnored(t *testing.T) {
	wf := &stubWorkflow{}
	app := newApp(t, wf)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/password/reset-status?email=jane%40example.com", nil)
		req.Header.Set(fiber.HeaderXForwardedFor, fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		resp, err := app.Test(req)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{200, 200, 200, 429, 429}, codes)
	assert.Equal(t, []string{"0.0.0.0", "0.0.0.0", "0.0.0.0"}, wf.ips)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, resp *http.Response, body map[string]any)
	}{
		{
			name:   "validation",
			err:    errs.Validation(map[string][]string{"email": {"The email must be a valid email address."}}),
			status: fiber.StatusUnprocessableEntity,
			check: func(t *testing.T, _ *http.Response, body map[string]any) {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, map[string]any{"email": []any{"The email must be a valid email address."}}, body["errors"])
			},
		},
		{
			name:   "security",
			err:    errs.SecurityViolation("email", "The email field contains invalid characters."),
			status: fiber.StatusUnprocessableEntity,
			check: func(t *testing.T, _ *http.Response, body map[string]any) {
				assert.Equal(t, map[string]any{"email": []any{"The email field contains invalid characters."}}, body["errors"])
			},
		},
		{
			name:   "rate limited",
			err:    errs.RateLimited(90 * time.Second),
			status: fiber.StatusTooManyRequests,
			check: func(t *testing.T, resp *http.Response, body map[string]any) {
				assert.Equal(t, "90", resp.Header.Get(fiber.HeaderRetryAfter))
				assert.Equal(t, float64(90), body["retry_after"])
				assert.Equal(t, "Too many attempts. Please try again in 2 minute(s).", body["message"])
			},
		},
		{
			name:   "workflow",
			err:    errs.Workflow(errs.MsgInvalidToken, nil),
			status: fiber.StatusUnprocessableEntity,
			check: func(t *testing.T, _ *http.Response, body map[string]any) {
				assert.Equal(t, errs.MsgInvalidToken, body["message"])
			},
		},
		{
			name:   "system",
			err:    errs.System(errors.New("dial tcp 10.0.0.5:5432: connection refused")),
			status: fiber.StatusInternalServerError,
			check: func(t *testing.T, _ *http.Response, body map[string]any) {
				assert.Equal(t, errs.MsgSystem, body["message"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(t, &stubWorkflow{err: tt.err})
			resp, err := app.Test(jsonRequest(http.MethodPost, "/password/forgot", map[string]any{"email": "jane@example.com"}))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			tt.check(t, resp, decode(t, resp))
		})
	}
}

func TestResetPassword_FormBody(t *testing.T) {
	wf := &stubWorkflow{result: models.ResetResult{Success: true, Message: errs.MsgResetDone}}
	app := newApp(t, wf)

	form := url.Values{
		"token":                 {strings.Repeat("ab", 32)},
		"email":                 {"jane@example.com"},
		"password":              {"Xk9#mQ2vL!"},
		"password_confirmation": {"Xk9#mQ2vL!"},
	}
	req := httptest.NewRequest(http.MethodPost, "/password/reset", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, errs.MsgResetDone, decode(t, resp)["message"])
	require.Len(t, wf.inputs, 1)
	assert.Equal(t, strings.Repeat("ab", 32), wf.inputs[0]["token"])
	assert.Equal(t, "Xk9#mQ2vL!", wf.inputs[0]["password_confirmation"])
}

func TestResetPassword_MalformedJSON(t *testing.T) {
	wf := &stubWorkflow{}
	app := newApp(t, wf)
	req := httptest.NewRequest(http.MethodPost, "/password/reset", strings.NewReader("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, wf.inputs)
}

func TestResetStatus(t *testing.T) {
	wf := &stubWorkflow{status: models.AttemptStatus{
		CanAttempt:             false,
		EmailAttemptsRemaining: 0,
		IPAttemptsRemaining:    2,
		ResetInSeconds:         90,
	}}
	app := newApp(t, wf)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/password/reset-status?email=jane%40example.com", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, models.AttemptScopeReset, body["scope"])
	assert.Equal(t, false, body["can_attempt"])
	assert.Equal(t, float64(0), body["email_attempts_remaining"])
	assert.Equal(t, float64(2), body["ip_attempts_remaining"])
	assert.Equal(t, float64(2), body["reset_in_minutes"])
	assert.Equal(t, "Too many attempts. Please try again in 2 minute(s).", body["message"])
	assert.Equal(t, "jane@example.com", wf.inputs[0]["email"])
}

func multipartRequest(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != "" {
		part, err := w.CreateFormFile("artwork", "poster.png")
		require.NoError(t, err)
		_, err = part.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/bot/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestBotUpload(t *testing.T) {
	app := newApp(t, &stubWorkflow{})

	resp, err := app.Test(multipartRequest(t, map[string]string{"title": "Inception", "description": "<b>mind bending</b>"}, "PNG"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, []any{"description", "title"}, body["fields"])
	assert.Equal(t, float64(1), body["files"])

	resp, err = app.Test(multipartRequest(t, map[string]string{"title": "x' OR '1'='1"}, ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["errors"], "title")

	resp, err = app.Test(jsonRequest(http.MethodPost, "/bot/upload", map[string]any{"synopsis": "<script>alert(1)</script>"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/bot/upload", map[string]any{"title": "Heat"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestBotUpload_NestedJSON(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"array", map[string]any{"title": []any{"<script>alert(1)</script>"}}, "title.0"},
		{"object", map[string]any{"meta": map[string]any{"q": "' OR '1'='1"}}, "meta.q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(t, &stubWorkflow{})
			resp, err := app.Test(jsonRequest(http.MethodPost, "/bot/upload", tt.body))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, decode(t, resp)["errors"], tt.field)
		})
	}

	app := newApp(t, &stubWorkflow{})
	resp, err := app.Test(jsonRequest(http.MethodPost, "/bot/upload", map[string]any{
		"title": "Heat",
		"tags":  []any{"crime", "drama"},
		"meta":  map[string]any{"year": 1995},
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

func TestBotUpload_BrowserIsRedirected(t *testing.T) {
	app := newApp(t, &stubWorkflow{})
	form := url.Values{"title": {"<iframe src=x>"}}
	req := httptest.NewRequest(http.MethodPost, "/bot/upload", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMETextHTML)
	req.Header.Set(fiber.HeaderReferer, "/upload")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get(fiber.HeaderLocation)
	assert.True(t, strings.HasPrefix(location, "/upload?error="), location)
	assert.NotContains(t, location, "iframe")
}

func TestMetrics(t *testing.T) {
	app := newApp(t, &stubWorkflow{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "go_goroutines")
}
