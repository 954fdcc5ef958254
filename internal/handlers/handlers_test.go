package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/aura/internal/audit"
	"github.com/vanpelt/aura/internal/auth"
	"github.com/vanpelt/aura/internal/github"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
	"github.com/vanpelt/aura/internal/settings"
	"github.com/vanpelt/aura/internal/store"
)

type fakeClient struct {
	provider models.Provider
	chunks   []string
	err      error
}

func (f *fakeClient) Provider() models.Provider { return f.provider }

func (f *fakeClient) Stream(ctx context.Context, req providers.Request) (<-chan string, <-chan error) {
	content := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(content)
		for _, c := range f.chunks {
			select {
			case content <- c:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if f.err != nil {
			errs <- f.err
		}
	}()
	return content, errs
}

const auditAnswer = `{"action_verdict":"Accept","verdict_summary":"Looks fair.","risk_breakdown":{"high":[],"medium":[],"low":[{"category":"good","text":"Clear refund policy"}]}}`

type testEnv struct {
	app      *fiber.App
	sessions *auth.Manager
	store    *store.Store
}

func newTestEnv(t *testing.T, githubHandler http.HandlerFunc) *testEnv {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions, err := auth.NewManager("test-secret", auth.DefaultTTL, false)
	require.NoError(t, err)

	set := providers.NewSetWithClients(
		map[models.Provider]string{models.ProviderGemini: "server-gemini"},
		&fakeClient{provider: models.ProviderGemini, chunks: []string{"Hello", ", ", "world"}},
		&fakeClient{provider: models.ProviderOpenAI, err: &providers.StatusError{Provider: models.ProviderOpenAI, Status: 401, Body: "bad key"}},
		&fakeClient{provider: models.ProviderClaude, chunks: []string{auditAnswer}},
	)

	if githubHandler == nil {
		githubHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }
	}
	srv := httptest.NewServer(githubHandler)
	t.Cleanup(srv.Close)
	svc := github.NewService(github.NewClient("ghp_"+strings.Repeat("a", 36), srv.URL), github.NewTransformer(), time.Minute)
	t.Cleanup(func() { svc.Close() })

	app := NewApp(Deps{
		Version:   "test",
		Sessions:  sessions,
		Store:     db,
		Settings:  settings.NewRegistry(db),
		Providers: set,
		GitHub:    svc,
		Audit:     audit.NewEngine(set, 0, 0),
	})
	return &testEnv{app: app, sessions: sessions, store: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) login(t *testing.T) (string, int64) {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), "ada@example.com", "x")
	require.NoError(t, err)
	token, err := e.sessions.Sign(user.ID)
	require.NoError(t, err)
	return auth.CookieName + "=" + token, user.ID
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

var longDocument = strings.Repeat("Refunds are available within thirty days of purchase. ", 2)

func TestAuditHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("text with server key", func(t *testing.T) {
		resp, data := env.do(t, "POST", "/api/audit", models.AuditRequest{Type: "text", Content: longDocument}, map[string]string{
			"x-model-provider": "anthropic",
			"x-api-key":        "sk-ant-user",
		})
		require.Equal(t, 200, resp.StatusCode, string(data))

		var result models.AuditResult
		require.NoError(t, json.Unmarshal(data, &result))
		assert.Equal(t, "Accept", result.ActionVerdict)
		assert.Len(t, result.RiskBreakdown.Low, 1)
	})

	tests := []struct {
		name    string
		body    models.AuditRequest
		headers map[string]string
		status  int
		code    string
	}{
		{"no content", models.AuditRequest{Content: ""}, nil, 400, "NO_CONTENT"},
		{"too short", models.AuditRequest{Content: "tiny"}, nil, 400, "TEXT_TOO_SHORT"},
		{"missing key", models.AuditRequest{Content: longDocument}, map[string]string{"x-model-provider": "openai"}, 503, "API_KEY_MISSING"},
		{"unknown provider", models.AuditRequest{Content: longDocument}, map[string]string{"x-model-provider": "cohere"}, 400, "INVALID_PROVIDER"},
		{"provider error", models.AuditRequest{Content: longDocument}, map[string]string{"x-model-provider": "openai", "x-api-key": "sk-x"}, 502, "AI_GENERATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, "POST", "/api/audit", tt.body, tt.headers)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode(t, data)
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestChatHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("streams raw text", func(t *testing.T) {
		resp, data := env.do(t, "POST", "/api/chat", ChatRequest{
			Model:    "gemini-2.5-flash",
			Messages: []ChatRequestMessage{{Role: models.RoleUser, Content: "hi"}},
		}, nil)
		require.Equal(t, 200, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
		assert.Equal(t, "Hello, world", string(data))
	})

	tests := []struct {
		name   string
		req    ChatRequest
		status int
	}{
		{"unknown model", ChatRequest{Model: "mistral-large", Messages: []ChatRequestMessage{{Role: "user", Content: "hi"}}}, 400},
		{"bad role", ChatRequest{Model: "gpt-4o", Messages: []ChatRequestMessage{{Role: "tool", Content: "hi"}}}, 400},
		{"no messages", ChatRequest{Model: "gpt-4o"}, 400},
		{"meta", ChatRequest{Model: "llama-3.3-70b-instruct", Messages: []ChatRequestMessage{{Role: "user", Content: "hi"}}}, 501},
		{"missing key", ChatRequest{Model: "claude-sonnet-4-20250514", Messages: []ChatRequestMessage{{Role: "user", Content: "hi"}}}, 500},
		{"provider fails before output", ChatRequest{Model: "gpt-4o", APIKey: "sk-x", Messages: []ChatRequestMessage{{Role: "user", Content: "hi"}}}, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, "POST", "/api/chat", tt.req, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, decode(t, data)["error"])
		})
	}
}

func TestChatSplitSystem(t *testing.T) {
	h := NewChatHandler(nil)
	system, msgs := h.split([]ChatRequestMessage{
		{Role: models.RoleSystem, Content: "Answer in French."},
		{Role: models.RoleUser, Content: "hi"},
	})
	assert.True(t, strings.HasSuffix(system, "\n\nAnswer in French."))
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
}

func TestGitHubHandlerErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		path    string
		status  int
		code    string
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Reset", "1792252800")
				w.WriteHeader(http.StatusForbidden)
			},
			path: "/api/github/octo", status: 429, code: "RATE_LIMIT",
		},
		{
			name: "unknown user",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"data":{"user":null}}`))
			},
			path: "/api/github/nobody", status: 404, code: "NOT_FOUND",
		},
		{
			name:    "bad token",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			path:    "/api/github/octo", status: 401, code: "INVALID_TOKEN",
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"data":{"user":{"login":"octo"}}}`))
			},
			path: "/api/github/octo", status: 404, code: "NO_DATA",
		},
		{
			name:    "year out of range",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			path:    "/api/github/octo/years/1990", status: 404, code: "NO_DATA",
		},
		{
			name:    "year not a number",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			path:    "/api/github/octo/years/last", status: 400, code: "UNKNOWN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.handler)
			resp, data := env.do(t, "GET", tt.path, nil, nil)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))
			body := decode(t, data)
			assert.Equal(t, tt.code, body["error"])
			if tt.code == "RATE_LIMIT" {
				assert.NotEmpty(t, body["resetAt"])
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, data := env.do(t, "POST", "/api/auth/signup", Credentials{Email: "not-an-email", Password: "secret1"}, nil)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "email", decode(t, data)["field"])

	resp, data = env.do(t, "POST", "/api/auth/signup", Credentials{Email: "ada@example.com", Password: "123"}, nil)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "password", decode(t, data)["field"])

	resp, _ = env.do(t, "POST", "/api/auth/signup", Credentials{Email: " Ada@Example.com ", Password: "secret1"}, nil)
	require.Equal(t, 201, resp.StatusCode)
	cookie := sessionCookie(t, resp)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	resp, data = env.do(t, "GET", "/api/auth/me", nil, map[string]string{"Cookie": cookie.Name + "=" + cookie.Value})
	require.Equal(t, 200, resp.StatusCode)
	user := decode(t, data)["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, string(data), "password")

	resp, _ = env.do(t, "POST", "/api/auth/signup", Credentials{Email: "ada@example.com", Password: "secret1"}, nil)
	assert.Equal(t, 409, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/auth/login", Credentials{Email: "ada@example.com", Password: "wrong!!"}, nil)
	assert.Equal(t, 401, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/auth/login", Credentials{Email: "nobody@example.com", Password: "secret1"}, nil)
	assert.Equal(t, 401, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/auth/login", Credentials{Email: "ADA@example.com", Password: "secret1"}, nil)
	require.Equal(t, 200, resp.StatusCode)
	sessionCookie(t, resp)

	resp, _ = env.do(t, "POST", "/api/auth/logout", nil, nil)
	assert.Equal(t, 204, resp.StatusCode)

	resp, _ = env.do(t, "GET", "/api/auth/me", nil, map[string]string{"Cookie": "session=garbage"})
	assert.Equal(t, 401, resp.StatusCode)
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestSettingsHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie, userID := env.login(t)
	h := map[string]string{"Cookie": cookie}

	resp, _ := env.do(t, "GET", "/api/settings", nil, nil)
	assert.Equal(t, 401, resp.StatusCode)

	resp, data := env.do(t, "GET", "/api/settings", nil, h)
	require.Equal(t, 200, resp.StatusCode)
	var got SettingsResponse
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []models.Provider{models.ProviderGemini}, got.Settings.SelectedModels)
	assert.True(t, got.ServerKeys[models.ProviderGemini])
	assert.False(t, got.ServerKeys[models.ProviderOpenAI])

	key := "sk-" + strings.Repeat("k", 30)
	resp, data = env.do(t, "POST", "/api/settings/keys", KeyRequest{Provider: "openai", Key: key}, h)
	require.Equal(t, 200, resp.StatusCode)
	body := decode(t, data)
	assert.Equal(t, true, body["validFormat"])
	assert.NotContains(t, string(data), key)

	resp, data = env.do(t, "POST", "/api/settings/toggle", ProviderRequest{Provider: "openai"}, h)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.ElementsMatch(t, []models.Provider{models.ProviderGemini, models.ProviderOpenAI}, got.Settings.SelectedModels)
	assert.Equal(t, settings.MaskKey(key), got.Settings.APIKeys[models.ProviderOpenAI])

	// sending the masked document back keeps the real key
	resp, _ = env.do(t, "PUT", "/api/settings", got.Settings, h)
	require.Equal(t, 200, resp.StatusCode)
	st, err := settings.NewRegistry(env.store).For(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, key, st.Snapshot().APIKeys[models.ProviderOpenAI])

	resp, _ = env.do(t, "POST", "/api/settings/active-model", ActiveModelRequest{Provider: "openai", Model: "claude-sonnet-4-20250514"}, h)
	assert.Equal(t, 400, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/settings/toggle", ProviderRequest{Provider: "grok"}, h)
	assert.Equal(t, 400, resp.StatusCode)

	resp, data = env.do(t, "POST", "/api/settings/reset", nil, h)
	require.Equal(t, 200, resp.StatusCode)
	var reset SettingsResponse
	require.NoError(t, json.Unmarshal(data, &reset))
	assert.Empty(t, reset.Settings.APIKeys)
	assert.Equal(t, []models.Provider{models.ProviderGemini}, reset.Settings.SelectedModels)
}

func TestListModels(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, data := env.do(t, "GET", "/api/models?provider=anthropic", nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	var body struct {
		Models []providers.Model `json:"models"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	require.NotEmpty(t, body.Models)
	for _, m := range body.Models {
		assert.Equal(t, models.ProviderClaude, m.Provider)
	}

	resp, _ = env.do(t, "GET", "/api/models?provider=nope", nil, nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, data := env.do(t, "GET", "/health", nil, nil)
	require.Equal(t, 200, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.True(t, body.ServerKeys[models.ProviderGemini])
	assert.NotNil(t, body.Cache)
}

func TestSamplingLoggerSamplesHealth(t *testing.T) {
	var out strings.Builder
	app := fiber.New()
	app.Use(samplingLogger(3, &out))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/models", func(c *fiber.Ctx) error { return c.SendString("[]") })

	for i := 0; i < 6; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), 5000)
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest("GET", "/api/models", nil), 5000)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	logged := out.String()
	assert.Equal(t, 2, strings.Count(logged, "/health"))
	assert.Equal(t, 1, strings.Count(logged, "/api/models"))
}

func TestErrorsAreTyped(t *testing.T) {
	// a wrapped audit error still maps to its code
	err := errors.Join(errors.New("context"), &audit.Error{Code: audit.CodeRateLimit, Message: "slow down"})
	assert.Equal(t, "slow down", auditMessage(err))
}
