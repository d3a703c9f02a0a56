package server

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tech-interview-engine/internal/config"
	"tech-interview-engine/internal/engine"
	"tech-interview-engine/internal/evaluator"
	"tech-interview-engine/internal/lexicon"
	"tech-interview-engine/internal/metrics"
	"tech-interview-engine/internal/planner"
	"tech-interview-engine/internal/proctor"
	"tech-interview-engine/internal/report"
	"tech-interview-engine/internal/session"
	"tech-interview-engine/internal/transcript"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	eng := engine.New(
		session.NewStore(),
		evaluator.New(nil, lexicon.Default(), time.Second),
		planner.New(nil, rand.New(rand.NewSource(1)), 2, time.Second),
		transcript.NewMemory(),
		report.New(nil, time.Second),
		proctor.New(t.TempDir()),
		nil,
		metrics.NewMetrics(),
		30*time.Minute,
	)

	templates := &config.Config{Templates: []config.Template{
		{
			ID:              1,
			Title:           "C Developer Screening",
			Role:            "C Developer",
			Difficulty:      "intermediate",
			Mode:            "curriculum",
			Topics:          []string{"pointers", "memory"},
			DurationMinutes: 30,
		},
	}}

	return New(config.ServerConfig{Port: 0}, eng, templates)
}

func doRequest(t *testing.T, srv *Server, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, srv *Server, body interface{}) string {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/api/interview/start", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.Question)
	return resp.SessionID
}

func TestStartEndpoint(t *testing.T) {
	srv := newTestServer(t)
	startSession(t, srv, map[string]interface{}{"mode": "plain", "role": "Go Developer"})
}

func TestStartFromTemplate(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/interview/start", "",
		map[string]interface{}{"template_id": 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Role   string   `json:"role"`
		Mode   string   `json:"mode"`
		Topics []string `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "C Developer", resp.Role)
	assert.Equal(t, "curriculum", resp.Mode)
	assert.Equal(t, []string{"pointers", "memory"}, resp.Topics)
}

func TestStartUnknownTemplate(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/interview/start", "",
		map[string]interface{}{"template_id": 99})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartRejectsBadJSON(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/interview/start", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswerStreamsSSE(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv, map[string]interface{}{"mode": "plain"})

	rec := doRequest(t, srv, http.MethodPost, "/api/interview/answer", id,
		map[string]string{"answer": "A pointer stores a memory address used by the program at runtime."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `data: {"text":`)
	assert.Contains(t, body, `data: {"done_text":`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"), "stream must end with [DONE]:\n%s", body)
}

func TestAnswerRequiresSessionHeader(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/interview/answer", "",
		map[string]string{"answer": "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswerUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/interview/answer", "missing",
		map[string]string{"answer": "a reasonable answer with enough words"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnswerValidation(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv, map[string]interface{}{"mode": "plain"})

	rec := doRequest(t, srv, http.MethodPost, "/api/interview/answer", id,
		map[string]string{"answer": strings.Repeat("x", 4001)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/interview/answer", id,
		map[string]string{"answer": strings.Repeat("a", 50)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimeEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv, map[string]interface{}{"mode": "plain", "duration_minutes": 10})

	rec := doRequest(t, srv, http.MethodGet, "/api/interview/time", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		TimeRemaining float64 `json:"time_remaining"`
		TotalTime     float64 `json:"total_time"`
		Suspended     bool    `json:"suspended"`
		Completed     bool    `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 600.0, status.TotalTime)
	assert.Greater(t, status.TimeRemaining, 0.0)
	assert.False(t, status.Suspended)
	assert.False(t, status.Completed)
}

func TestEndEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv, map[string]interface{}{"mode": "plain"})

	doRequest(t, srv, http.MethodPost, "/api/interview/answer", id,
		map[string]string{"answer": "A database transaction guarantees atomicity because of write ahead logging."})

	rec := doRequest(t, srv, http.MethodPost, "/api/interview/end", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		FinalScore     float64 `json:"final_score"`
		Recommendation string  `json:"recommendation"`
		Report         string  `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp.FinalScore, 0.0)
	assert.NotEmpty(t, resp.Recommendation)
	assert.NotEmpty(t, resp.Report)

	// Повторное завершение возвращает тот же отчет
	rec2 := doRequest(t, srv, http.MethodPost, "/api/interview/end", id, nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestViolationSuspendsSession(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv, map[string]interface{}{"mode": "plain"})

	rec := doRequest(t, srv, http.MethodPost, "/api/proctor/violation", id,
		map[string]interface{}{"type": "multiple_faces", "reason": "two faces detected"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["critical"])
	assert.True(t, resp["suspended"])

	// Дальнейшие ответы блокируются с причиной suspended
	rec = doRequest(t, srv, http.MethodPost, "/api/interview/answer", id,
		map[string]string{"answer": "may I continue with the interview now"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var blocked map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blocked))
	assert.Equal(t, "suspended", blocked["reason"])
}

func TestViolationRequiresType(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv, map[string]interface{}{"mode": "plain"})

	rec := doRequest(t, srv, http.MethodPost, "/api/proctor/violation", id,
		map[string]interface{}{"reason": "no type"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	startSession(t, srv, map[string]interface{}{"mode": "plain"})

	rec := doRequest(t, srv, http.MethodGet, "/api/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.EqualValues(t, 1, m["interviews_started"])
	assert.EqualValues(t, 1, m["questions_asked"])
}

func TestProctorStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv, map[string]interface{}{"mode": "plain"})

	doRequest(t, srv, http.MethodPost, "/api/proctor/violation", id,
		map[string]interface{}{"type": "multiple_faces", "reason": "two faces detected"})
	doRequest(t, srv, http.MethodPost, "/api/proctor/violation", id,
		map[string]interface{}{"type": "noise", "reason": "background tv"})

	rec := doRequest(t, srv, http.MethodGet, "/api/proctor/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats["suspensions"])
	assert.Equal(t, 1, stats["warnings"])
	assert.Equal(t, 0, stats["device_detections"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/interview/start"},
		{http.MethodGet, "/api/interview/answer"},
		{http.MethodPost, "/api/interview/time"},
		{http.MethodGet, "/api/interview/end"},
		{http.MethodGet, "/api/proctor/violation"},
		{http.MethodPost, "/api/proctor/stats"},
		{http.MethodPost, "/api/metrics"},
	}
	for _, tt := range tests {
		rec := doRequest(t, srv, tt.method, tt.path, "any", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.IsAllowed("a"))
	assert.True(t, rl.IsAllowed("a"))
	assert.False(t, rl.IsAllowed("a"))

	// Независимые ключи не влияют друг на друга
	assert.True(t, rl.IsAllowed("b"))
}

func TestValidateAnswer(t *testing.T) {
	assert.NoError(t, validateAnswer("a normal answer"))
	assert.Error(t, validateAnswer(strings.Repeat("x", 4001)))
	assert.Error(t, validateAnswer(strings.Repeat("z", 30)))
	assert.NoError(t, validateAnswer("zz"))
}
