// Package server — HTTP поверхность движка интервью: JSON эндпоинты
// управления сессией и SSE поток реплик интервьюера.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"tech-interview-engine/internal/config"
	"tech-interview-engine/internal/engine"
	"tech-interview-engine/internal/proctor"
)

// Server представляет HTTP сервер движка интервью
type Server struct {
	engine    *engine.Service
	templates *config.Config
	limiter   *RateLimiter
	http      *http.Server
}

// New создает сервер и регистрирует маршруты
func New(cfg config.ServerConfig, eng *engine.Service, templates *config.Config) *Server {
	s := &Server{
		engine:    eng,
		templates: templates,
		limiter:   NewRateLimiter(30, time.Minute),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/interview/start", s.handleStart)
	mux.HandleFunc("/api/interview/answer", s.handleAnswer)
	mux.HandleFunc("/api/interview/time", s.handleTime)
	mux.HandleFunc("/api/interview/end", s.handleEnd)
	mux.HandleFunc("/api/proctor/violation", s.handleViolation)
	mux.HandleFunc("/api/proctor/stats", s.handleProctorStats)
	mux.HandleFunc("/api/metrics", s.handleMetrics)

	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
		// WriteTimeout должен оставаться нулевым: SSE поток живет
		// дольше любого разумного таймаута записи
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start запускает сервер и блокируется до его остановки
func (s *Server) Start() error {
	log.Printf("🚀 HTTP сервер запущен на %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type startRequest struct {
	TemplateID      int      `json:"template_id,omitempty"`
	Role            string   `json:"role,omitempty"`
	Mode            string   `json:"mode,omitempty"`
	Difficulty      string   `json:"difficulty,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
}

type startResponse struct {
	SessionID string   `json:"session_id"`
	Question  string   `json:"question"`
	Role      string   `json:"role"`
	Mode      string   `json:"mode"`
	Topics    []string `json:"topics,omitempty"`
	TotalTime float64  `json:"total_time"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Шаблон задает значения по умолчанию, явные поля запроса сильнее
	if req.TemplateID > 0 && s.templates != nil {
		if tpl, ok := s.templates.GetTemplate(req.TemplateID); ok {
			if req.Role == "" {
				req.Role = tpl.Role
			}
			if req.Mode == "" {
				req.Mode = tpl.Mode
			}
			if req.Difficulty == "" {
				req.Difficulty = tpl.Difficulty
			}
			if len(req.Topics) == 0 {
				req.Topics = tpl.Topics
			}
			if req.DurationMinutes == 0 {
				req.DurationMinutes = tpl.DurationMinutes
			}
		} else {
			writeError(w, http.StatusNotFound, fmt.Sprintf("template %d not found", req.TemplateID))
			return
		}
	}

	sess, question, err := s.engine.Start(r.Context(), engine.StartParams{
		Role:       req.Role,
		Mode:       req.Mode,
		Difficulty: req.Difficulty,
		Topics:     req.Topics,
		Duration:   time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, startResponse{
		SessionID: sess.ID,
		Question:  question,
		Role:      sess.Role,
		Mode:      string(sess.Mode),
		Topics:    sess.Topics,
		TotalTime: sess.Duration.Seconds(),
	})
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	if !s.limiter.IsAllowed(sessionID) {
		writeError(w, http.StatusTooManyRequests, "too many requests, please wait")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := validateAnswer(req.Answer); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chunks, err := s.engine.SubmitAnswer(r.Context(), sessionID, req.Answer)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		var payload []byte
		if chunk.Done {
			payload, _ = json.Marshal(map[string]string{"done_text": chunk.DoneText})
		} else {
			payload, _ = json.Marshal(map[string]string{"text": chunk.Text})
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	status, err := s.engine.CheckTime(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type endResponse struct {
	SessionID      string  `json:"session_id"`
	FinalScore     float64 `json:"final_score"`
	Recommendation string  `json:"recommendation"`
	Report         string  `json:"report"`
	DurationSec    float64 `json:"duration_seconds"`
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	rep, err := s.engine.End(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, endResponse{
		SessionID:      sessionID,
		FinalScore:     rep.FinalScore,
		Recommendation: rep.Recommendation,
		Report:         rep.Narrative,
		DurationSec:    rep.Duration.Seconds(),
	})
}

type violationRequest struct {
	Type     string                 `json:"type"`
	Reason   string                 `json:"reason"`
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

func (s *Server) handleViolation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	var req violationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		writeError(w, http.StatusBadRequest, "violation type is required")
		return
	}

	critical, err := s.engine.ReportViolation(r.Context(), sessionID, proctor.Violation{
		Type:     req.Type,
		Reason:   req.Reason,
		Evidence: req.Evidence,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"critical":  critical,
		"suspended": critical,
	})
}

func (s *Server) handleProctorStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ProctorStats())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	m := s.engine.Metrics()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interviews_started":    m.InterviewsStarted,
		"interviews_completed":  m.InterviewsCompleted,
		"interviews_suspended":  m.InterviewsSuspended,
		"answers_evaluated":     m.AnswersEvaluated,
		"heuristic_evaluations": m.HeuristicEvaluations,
		"questions_asked":       m.QuestionsAsked,
		"reports_generated":     m.ReportsGenerated,
		"api_calls_total":       m.APICallsTotal,
		"api_calls_successful":  m.APICallsSuccessful,
		"last_update_time":      m.LastUpdateTime,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionIDFrom достает id сессии из заголовка либо query параметра
func sessionIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Session-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("session_id"))
}

// validateAnswer отсекает сверхдлинные ответы и односимвольный спам
func validateAnswer(text string) error {
	if len(text) > 4000 {
		return fmt.Errorf("answer is too long (4000 characters max)")
	}
	if len(text) > 10 && strings.Count(text, text[:1]) > len(text)*8/10 {
		return fmt.Errorf("answer contains too many repeated characters")
	}
	return nil
}

// writeEngineError переводит ошибки движка в HTTP статусы; причина
// блокировки сессии отдается клиенту в поле reason
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrEmptyAnswer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrSuspended):
		writeBlocked(w, "suspended", err)
	case errors.Is(err, engine.ErrCompleted):
		writeBlocked(w, "completed", err)
	case errors.Is(err, engine.ErrTimeExpired):
		writeBlocked(w, "time_expired", err)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeBlocked(w http.ResponseWriter, reason string, err error) {
	writeJSON(w, http.StatusConflict, map[string]string{
		"error":  err.Error(),
		"reason": reason,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ Ошибка записи ответа: %v", err)
	}
}
