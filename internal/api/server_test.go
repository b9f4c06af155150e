package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/feedback"
	"github.com/nmibc-risk-mcp/internal/service"
)

type stubConfigManager struct {
	cfg *domain.Config
}

func newStubConfigManager() *stubConfigManager {
	return &stubConfigManager{cfg: &domain.Config{
		Server:  domain.ServerConfig{Host: "127.0.0.1", Port: 0, RequestTimeout: 5 * time.Second},
		Logging: domain.LoggingConfig{Level: "info"},
		MCP:     domain.MCPConfig{ServerVersion: "test"},
	}}
}

func (s *stubConfigManager) GetConfig() *domain.Config                   { return s.cfg }
func (s *stubConfigManager) GetServerConfig() *domain.ServerConfig       { return &s.cfg.Server }
func (s *stubConfigManager) GetAssistantConfig() *domain.AssistantConfig { return &s.cfg.Assistant }
func (s *stubConfigManager) GetCacheConfig() *domain.CacheConfig         { return &s.cfg.Cache }
func (s *stubConfigManager) GetFeedbackConfig() *domain.FeedbackConfig   { return &s.cfg.Feedback }
func (s *stubConfigManager) Reload() error                               { return nil }
func (s *stubConfigManager) Validate() error                             { return nil }
func (s *stubConfigManager) IsProduction() bool                          { return false }
func (s *stubConfigManager) IsDevelopment() bool                         { return true }

type stubGenerator struct {
	text string
	err  error
	last domain.TextRequest
}

func (g *stubGenerator) GenerateText(_ context.Context, req domain.TextRequest) (string, error) {
	g.last = req
	return g.text, g.err
}

func (g *stubGenerator) Name() string { return "stub" }

// blockingGenerator waits for the request context to end
type blockingGenerator struct{}

func (blockingGenerator) GenerateText(ctx context.Context, _ domain.TextRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingGenerator) Name() string { return "blocking" }

type stubHealth struct{ err error }

func (h stubHealth) Health(context.Context) error { return h.err }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T, generator domain.TextGenerator, withFeedback bool) *Server {
	t.Helper()
	logger := newTestLogger()

	deps := Dependencies{
		Logger:    logger,
		Evaluator: service.NewDefaultEvaluationService(logger),
	}
	if generator != nil {
		deps.Assistant = service.NewAssistantService(logger, generator, "pl")
	} else {
		deps.Assistant = service.NewAssistantService(logger, nil, "pl")
	}
	if withFeedback {
		store, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		deps.Feedback = store
	}
	return NewServer(newStubConfigManager(), deps)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var highRiskCase = map[string]any{
	"findings": map[string]any{
		"t_category": "T1",
		"grade":      "HG",
		"is_primary": true,
	},
	"induction_date": "2025-01-01",
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, false)
	w := doJSON(t, s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "disabled", checks["assistant"])
	assert.Equal(t, "disabled", checks["feedback"])
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestHealth_DatabaseDown(t *testing.T) {
	logger := newTestLogger()
	s := NewServer(newStubConfigManager(), Dependencies{
		Logger:    logger,
		Evaluator: service.NewDefaultEvaluationService(logger),
		Assistant: service.NewAssistantService(logger, nil, ""),
		Database:  stubHealth{err: errors.New("connection refused")},
	})

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestListProtocols(t *testing.T) {
	s := newTestServer(t, nil, false)
	w := doJSON(t, s, http.MethodGet, "/api/v1/protocols", nil)

	require.Equal(t, http.StatusOK, w.Code)
	protocols := decode(t, w)["protocols"].([]any)
	require.Len(t, protocols, 4)
	assert.Equal(t, "low", protocols[0].(map[string]any)["category"])
	assert.Equal(t, "veryHigh", protocols[3].(map[string]any)["category"])
}

func TestGetProtocol(t *testing.T) {
	s := newTestServer(t, nil, false)

	w := doJSON(t, s, http.MethodGet, "/api/v1/protocols/very_high", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bardzo Wysokie (Very High)", decode(t, w)["display_label"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/protocols/low", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["maintenance_offsets_months"])
	assert.Contains(t, w.Body.String(), `"maintenance_offsets_months":[]`)

	w = doJSON(t, s, http.MethodGet, "/api/v1/protocols/extreme", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrNotFoundCode, decode(t, w)["code"])
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t, nil, false)
	w := doJSON(t, s, http.MethodPost, "/api/v1/evaluate", highRiskCase)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	evaluation := body["evaluation"].(map[string]any)
	assert.Equal(t, "high", evaluation["category"])
	assert.Equal(t, "high_table", evaluation["matched_rule"])
	assert.EqualValues(t, 0, evaluation["clinical_risk_factor_count"])
	protocol := evaluation["protocol"].(map[string]any)
	assert.Equal(t, "Wysokie (High)", protocol["display_label"])
	assert.NotContains(t, body, "display_label")
	schedule := body["schedule"].([]any)
	require.Len(t, schedule, 7)
	assert.Equal(t, "01.04.2025", schedule[0].(map[string]any)["date"])
	assert.Contains(t, body["summary"], "EAU 2025 risk group")
}

func TestEvaluate_Form(t *testing.T) {
	s := newTestServer(t, nil, false)
	w := doJSON(t, s, http.MethodPost, "/api/v1/evaluate", map[string]any{
		"form": map[string]any{
			"t_category": "Tis",
			"status":     "Pierwotny",
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	evaluation := decode(t, w)["evaluation"].(map[string]any)
	assert.Equal(t, "high", evaluation["category"])
	assert.Equal(t, "HG", evaluation["findings"].(map[string]any)["grade"])
}

func TestEvaluate_Errors(t *testing.T) {
	s := newTestServer(t, nil, false)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"malformed JSON", `{"findings":`, domain.ErrInvalidInput},
		{"missing findings", map[string]any{}, domain.ErrValidation},
		{"invalid T category", map[string]any{"findings": map[string]any{"t_category": "T2", "grade": "HG"}}, domain.ErrValidation},
		{"invalid date", map[string]any{"findings": map[string]any{"t_category": "Ta", "grade": "LG"}, "induction_date": "tomorrow"}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/evaluate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestSchedule(t *testing.T) {
	s := newTestServer(t, nil, false)

	w := doJSON(t, s, http.MethodPost, "/api/v1/schedule", map[string]any{
		"induction_date": "2025-01-01",
		"offsets_months": []int{3, 6, 12},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "thirty_day", body["month_mode"])
	schedule := body["schedule"].([]any)
	require.Len(t, schedule, 3)
	assert.Equal(t, "30.06.2025", schedule[1].(map[string]any)["date"])

	w = doJSON(t, s, http.MethodPost, "/api/v1/schedule", map[string]any{"category": "high"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDraftLetter(t *testing.T) {
	t.Run("without a collaborator the evaluation still succeeds", func(t *testing.T) {
		s := newTestServer(t, nil, false)
		w := doJSON(t, s, http.MethodPost, "/api/v1/letter", highRiskCase)

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assistant := body["assistant"].(map[string]any)
		assert.Equal(t, false, assistant["available"])
		assert.Equal(t, "feature unavailable", assistant["error"])
		assert.Equal(t, "high", body["case"].(map[string]any)["evaluation"].(map[string]any)["category"])
	})

	t.Run("collaborator failure is reported, not raised", func(t *testing.T) {
		s := newTestServer(t, &stubGenerator{err: errors.New("quota exceeded")}, false)
		w := doJSON(t, s, http.MethodPost, "/api/v1/letter", highRiskCase)

		require.Equal(t, http.StatusOK, w.Code)
		assistant := decode(t, w)["assistant"].(map[string]any)
		assert.Equal(t, false, assistant["available"])
		assert.Contains(t, assistant["error"], "quota exceeded")
	})

	t.Run("letter text is returned", func(t *testing.T) {
		gen := &stubGenerator{text: "  Szanowny Panie,\n...  "}
		s := newTestServer(t, gen, false)
		w := doJSON(t, s, http.MethodPost, "/api/v1/letter", highRiskCase)

		require.Equal(t, http.StatusOK, w.Code)
		assistant := decode(t, w)["assistant"].(map[string]any)
		assert.Equal(t, true, assistant["available"])
		assert.Equal(t, "Szanowny Panie,\n...", assistant["text"])
		assert.Contains(t, gen.last.Context, "month 3: 01.04.2025")
	})
}

func TestAsk(t *testing.T) {
	gen := &stubGenerator{text: "Because of T1 HG."}
	s := newTestServer(t, gen, false)

	body := map[string]any{
		"findings": highRiskCase["findings"],
		"question": "Why high risk?",
		"history": []map[string]string{
			{"role": "user", "text": "Hello"},
			{"role": "assistant", "text": "Hi"},
		},
	}
	w := doJSON(t, s, http.MethodPost, "/api/v1/ask", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assistant := decode(t, w)["assistant"].(map[string]any)
	assert.Equal(t, "Because of T1 HG.", assistant["text"])
	require.Len(t, gen.last.History, 2)
	assert.Contains(t, gen.last.Context, "Question: Why high risk?")
}

func TestFeedback_Unconfigured(t *testing.T) {
	s := newTestServer(t, nil, false)
	w := doJSON(t, s, http.MethodGet, "/api/v1/feedback", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, domain.ErrServiceUnavailable, decode(t, w)["code"])
}

func TestFeedback_RoundTrip(t *testing.T) {
	s := newTestServer(t, nil, true)

	req := map[string]any{
		"findings":           highRiskCase["findings"],
		"clinician_category": "very high",
	}
	w := doJSON(t, s, http.MethodPost, "/api/v1/feedback", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "high", created["suggested_category"])
	assert.Equal(t, "veryHigh", created["clinician_category"])
	assert.Equal(t, false, created["agreed"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/feedback?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Equal(t, float64(1), list["total"])
	assert.Len(t, list["feedback"].([]any), 1)

	w = doJSON(t, s, http.MethodGet, "/api/v1/feedback/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].([]any)
	require.Len(t, stats, 1)
	assert.Equal(t, float64(0), stats[0].(map[string]any)["agreement_rate"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/feedback/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "nmibc-feedback.json")
	assert.Contains(t, w.Body.String(), `"count": 1`)
}

func TestFeedback_InvalidCategory(t *testing.T) {
	s := newTestServer(t, nil, true)
	w := doJSON(t, s, http.MethodPost, "/api/v1/feedback", map[string]any{
		"findings":           highRiskCase["findings"],
		"clinician_category": "moderate",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, false)
	w := doJSON(t, s, http.MethodOptions, "/api/v1/evaluate", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAssistantRoutes_RequestTimeout(t *testing.T) {
	logger := newTestLogger()
	configManager := newStubConfigManager()
	configManager.cfg.Server.RequestTimeout = 20 * time.Millisecond

	s := NewServer(configManager, Dependencies{
		Logger:    logger,
		Evaluator: service.NewDefaultEvaluationService(logger),
		Assistant: service.NewAssistantService(logger, blockingGenerator{}, "pl"),
	})

	for _, path := range []string{"/api/v1/letter", "/api/v1/ask"} {
		t.Run(path, func(t *testing.T) {
			body := map[string]any{"findings": highRiskCase["findings"], "question": "Jak długo trwa leczenie?"}
			w := doJSON(t, s, http.MethodPost, path, body)

			require.Equal(t, http.StatusGatewayTimeout, w.Code, w.Body.String())
			assert.Equal(t, "Request timeout", decode(t, w)["error"])
		})
	}
}
