package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
)

type fakeClient struct {
	provider models.Provider
	answer   string
	err      error
	got      providers.Request
}

func (f *fakeClient) Provider() models.Provider { return f.provider }

func (f *fakeClient) Stream(ctx context.Context, req providers.Request) (<-chan string, <-chan error) {
	f.got = req
	content := make(chan string, 1)
	errs := make(chan error, 1)
	if f.answer != "" {
		content <- f.answer
	}
	close(content)
	errs <- f.err
	close(errs)
	return content, errs
}

const verdictJSON = `{"action_verdict":"refuse","verdict_summary":"Sells your data.","risk_breakdown":{"high":[{"category":"Privacy","text":"Data sold to advertisers"}]}}`

var longText = strings.Repeat("We may share your information with partners. ", 3)

func newEngine(clients ...providers.Client) *Engine {
	return NewEngine(providers.NewSetWithClients(map[models.Provider]string{models.ProviderGemini: "server-key"}, clients...), 0, 0)
}

func TestAnalyze(t *testing.T) {
	gemini := &fakeClient{provider: models.ProviderGemini, answer: "```json\n" + verdictJSON + "\n```"}
	e := newEngine(gemini)

	res, err := e.Audit(context.Background(), models.AuditRequest{Type: models.AuditSourceText, Content: longText}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Refuse", res.ActionVerdict)
	require.Len(t, res.RiskBreakdown.High, 1)
	assert.NotNil(t, res.RiskBreakdown.Medium)
	assert.NotNil(t, res.RiskBreakdown.Low)

	assert.Equal(t, "gemini-2.5-flash", gemini.got.Model)
	assert.Equal(t, "server-key", gemini.got.APIKey)
	assert.True(t, gemini.got.JSON)
	assert.Equal(t, SystemPrompt, gemini.got.System)
	assert.True(t, strings.HasPrefix(gemini.got.Messages[0].Content, "DOCUMENT TO ANALYZE:\n"))
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		client   *fakeClient
		req      models.AuditRequest
		provider string
		apiKey   string
		code     Code
		status   int
	}{
		{
			name: "empty content",
			req:  models.AuditRequest{Type: models.AuditSourceText, Content: "   "},
			code: CodeNoContent, status: http.StatusBadRequest,
		},
		{
			name: "too short",
			req:  models.AuditRequest{Type: models.AuditSourceText, Content: "short terms"},
			code: CodeTextTooShort, status: http.StatusBadRequest,
		},
		{
			name:     "unknown provider",
			req:      models.AuditRequest{Type: models.AuditSourceText, Content: longText},
			provider: "mistral",
			code:     CodeInvalidProvider, status: http.StatusBadRequest,
		},
		{
			name:     "meta has no audit model",
			req:      models.AuditRequest{Type: models.AuditSourceText, Content: longText},
			provider: "meta",
			code:     CodeInvalidProvider, status: http.StatusBadRequest,
		},
		{
			name:     "missing key",
			client:   &fakeClient{provider: models.ProviderOpenAI, answer: verdictJSON},
			req:      models.AuditRequest{Type: models.AuditSourceText, Content: longText},
			provider: "openai",
			code:     CodeAPIKeyMissing, status: http.StatusServiceUnavailable,
		},
		{
			name:     "rate limited",
			client:   &fakeClient{provider: models.ProviderClaude, err: &providers.StatusError{Provider: models.ProviderClaude, Status: 429}},
			req:      models.AuditRequest{Type: models.AuditSourceText, Content: longText},
			provider: "anthropic",
			apiKey:   "user-key",
			code:     CodeRateLimit, status: http.StatusTooManyRequests,
		},
		{
			name:     "provider failure",
			client:   &fakeClient{provider: models.ProviderClaude, err: errors.New("boom")},
			req:      models.AuditRequest{Type: models.AuditSourceText, Content: longText},
			provider: "claude",
			apiKey:   "user-key",
			code:     CodeAIGenerationFailed, status: http.StatusBadGateway,
		},
		{
			name:     "unparseable answer",
			client:   &fakeClient{provider: models.ProviderClaude, answer: "I think it is fine"},
			req:      models.AuditRequest{Type: models.AuditSourceText, Content: longText},
			provider: "claude",
			apiKey:   "user-key",
			code:     CodeAIGenerationFailed, status: http.StatusBadGateway,
		},
		{
			name: "bad url",
			req:  models.AuditRequest{Type: models.AuditSourceURL, Content: "ftp://example.com/terms"},
			code: CodeScrapeFailed, status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var clients []providers.Client
			if tt.client != nil {
				clients = append(clients, tt.client)
			}
			e := newEngine(append(clients, &fakeClient{provider: models.ProviderGemini, answer: verdictJSON})...)

			_, err := e.Audit(context.Background(), tt.req, tt.provider, tt.apiKey)
			code, ok := CodeOf(err)
			require.True(t, ok, "expected *audit.Error, got %v", err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, code.HTTPStatus())
		})
	}
}

func TestAuditURL(t *testing.T) {
	page := `<html><head><style>body{}</style><script>var x = 1;</script></head>
<body><nav>Home About</nav><main><h1>Terms</h1><p>We   may sell your data
to partners and you waive all rights to sue us in court, forever.</p></main><footer>Copyright</footer></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	gemini := &fakeClient{provider: models.ProviderGemini, answer: verdictJSON}
	e := newEngine(gemini)

	_, err := e.Audit(context.Background(), models.AuditRequest{Type: models.AuditSourceURL, Content: srv.URL}, "gemini", "")
	require.NoError(t, err)

	doc := strings.TrimPrefix(gemini.got.Messages[0].Content, "DOCUMENT TO ANALYZE:\n")
	assert.Equal(t, "Terms We may sell your data to partners and you waive all rights to sue us in court, forever.", doc)
}

func TestScraperTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>" + strings.Repeat("é", 100) + "</p>"))
	}))
	t.Cleanup(srv.Close)

	text, err := NewScraper(10).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 10), text)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(failing.Close)
	_, err = NewScraper(10).Fetch(context.Background(), failing.URL)
	assert.Error(t, err)
}

func TestParseResult(t *testing.T) {
	res, err := ParseResult("```\n" + `{"action_verdict":"Accept","verdict_summary":"Fine.","risk_breakdown":{}}` + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Accept", res.ActionVerdict)
	assert.Empty(t, res.RiskBreakdown.High)

	_, err = ParseResult(`{"action_verdict":"Maybe"}`)
	assert.Error(t, err)
}

func TestHeuristic(t *testing.T) {
	res := Heuristic("We sell user data to our affiliates and you waive the right to a jury.")
	assert.Equal(t, "Refuse", res.ActionVerdict)
	assert.Len(t, res.RiskBreakdown.High, 2)
	assert.Len(t, res.RiskBreakdown.Medium, 1)

	res = Heuristic("You can opt out at any time and request a refund within 30 days.")
	assert.Equal(t, "Accept", res.ActionVerdict)
	assert.Empty(t, res.RiskBreakdown.High)
	assert.Len(t, res.RiskBreakdown.Low, 2)
}
