// Package engine связывает конвейер интервью: guard сессии, оценка
// ответа, журнал транскрипта, выбор следующего вопроса и стриминг
// реплики интервьюера. Порядок этапов фиксирован.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tech-interview-engine/internal/api"
	"tech-interview-engine/internal/evaluator"
	"tech-interview-engine/internal/metrics"
	"tech-interview-engine/internal/planner"
	"tech-interview-engine/internal/proctor"
	"tech-interview-engine/internal/report"
	"tech-interview-engine/internal/session"
	"tech-interview-engine/internal/transcript"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyAnswer     = errors.New("answer text is required")
	ErrSuspended       = errors.New("interview suspended")
	ErrCompleted       = errors.New("interview completed")
	ErrTimeExpired     = errors.New("interview time expired")
)

// Streamer — контракт потокового бэкенда адаптивного режима.
// nil-стример означает, что бэкенд недоступен.
type Streamer interface {
	ChatStream(ctx context.Context, messages []api.Message) (<-chan api.StreamChunk, error)
}

// Chunk — единица потока реплики интервьюера. Text несет очередной
// токен, DoneText — собранную реплику целиком в последнем элементе.
type Chunk struct {
	Text     string
	DoneText string
	Done     bool
}

// Service представляет движок интервью
type Service struct {
	sessions    *session.Store
	evaluator   *evaluator.Service
	planner     *planner.Planner
	transcripts *transcript.Store
	reports     *report.Generator
	proctor     *proctor.Service
	streamer    Streamer
	metrics     *metrics.Metrics
	duration    time.Duration
}

// New создает движок. streamer может быть nil: адаптивный режим
// тогда отвечает фиксированной заглушкой планировщика.
func New(
	sessions *session.Store,
	eval *evaluator.Service,
	plan *planner.Planner,
	transcripts *transcript.Store,
	reports *report.Generator,
	proc *proctor.Service,
	streamer Streamer,
	m *metrics.Metrics,
	duration time.Duration,
) *Service {
	if duration <= 0 {
		duration = 30 * time.Minute
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Service{
		sessions:    sessions,
		evaluator:   eval,
		planner:     plan,
		transcripts: transcripts,
		reports:     reports,
		proctor:     proc,
		streamer:    streamer,
		metrics:     m,
		duration:    duration,
	}
}

// StartParams задает параметры нового интервью
type StartParams struct {
	Role       string
	Mode       string
	Difficulty string
	Topics     []string
	Duration   time.Duration
}

// Start создает сессию и возвращает ее вместе с открывающим вопросом
func (s *Service) Start(ctx context.Context, p StartParams) (*session.Session, string, error) {
	role := strings.TrimSpace(p.Role)
	if role == "" {
		role = "Software Engineer"
	}

	mode := session.Mode(p.Mode)
	switch mode {
	case session.ModeCurriculum, session.ModeAdaptive, session.ModePlain:
	default:
		mode = session.ModePlain
	}

	difficulty := p.Difficulty
	switch difficulty {
	case "beginner", "intermediate", "advanced":
	default:
		difficulty = "intermediate"
	}

	if mode == session.ModeCurriculum && len(p.Topics) == 0 {
		return nil, "", fmt.Errorf("curriculum mode requires at least one topic")
	}

	duration := p.Duration
	if duration <= 0 {
		duration = s.duration
	}

	sess := s.sessions.Create(session.Params{
		Role:       role,
		Mode:       mode,
		Difficulty: difficulty,
		Topics:     p.Topics,
		Duration:   duration,
	})

	question := s.planner.FirstQuestion(mode, role)

	sess.Lock()
	s.appendInterviewerTurn(ctx, sess, question)
	sess.Unlock()

	s.metrics.IncrementInterviewsStarted()
	log.Printf("Интервью %s начато: роль=%s режим=%s сложность=%s", sess.ID, role, mode, difficulty)
	return sess, question, nil
}

// SubmitAnswer прогоняет ответ кандидата через конвейер и возвращает
// канал реплики интервьюера. Канал закрывается после последнего
// элемента с DoneText. При заблокированной сессии реплики не
// добавляются и оценка не выполняется.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, answer string) (<-chan Chunk, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	sess.Lock()

	if reason := sess.BlockReason(); reason != session.BlockNone {
		s.observeTerminal(sess, reason)
		sess.Unlock()
		return nil, blockErr(reason)
	}

	eval := s.evaluator.Evaluate(ctx, sess.LastQuestion(), answer)
	s.metrics.IncrementAnswersEvaluated(eval.Heuristic)

	candidateText := answer
	if eval.NormalizedText != "" {
		candidateText = eval.NormalizedText
	}
	s.appendTurn(ctx, sess, session.Turn{
		Speaker:    session.SpeakerCandidate,
		Text:       candidateText,
		Evaluation: &eval,
		Timestamp:  time.Now(),
	})

	if sess.Mode == session.ModeAdaptive && s.streamer != nil {
		// Адаптивная реплика стримится; блокировка сессии снимается
		// стримящей горутиной после добавления реплики в транскрипт
		return s.streamAdaptive(ctx, sess), nil
	}

	question, terminal := s.planner.Next(ctx, sess, &eval)
	s.appendInterviewerTurn(ctx, sess, question)
	if terminal {
		s.finalizeLocked(ctx, sess)
	}
	sess.Unlock()

	out := make(chan Chunk, 2)
	out <- Chunk{Text: question}
	out <- Chunk{DoneText: question, Done: true}
	close(out)
	return out, nil
}

// streamAdaptive запрашивает реплику у потокового бэкенда и
// транслирует токены вызывающему. Реплика добавляется в транскрипт
// ровно один раз, даже если клиент отключился посреди потока.
// Вызывается с удержанной блокировкой сессии.
func (s *Service) streamAdaptive(ctx context.Context, sess *session.Session) <-chan Chunk {
	messages := make([]api.Message, 0, len(sess.Turns)+1)
	messages = append(messages, api.Message{Role: "system", Content: planner.AdaptiveSystemPrompt})
	for _, turn := range sess.Turns {
		role := "assistant"
		if turn.Speaker == session.SpeakerCandidate {
			role = "user"
		}
		messages = append(messages, api.Message{Role: role, Content: turn.Text})
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		defer sess.Unlock()

		reply := s.collectStream(ctx, messages, out)
		if strings.TrimSpace(reply) == "" {
			reply = planner.AdaptiveFallback
			select {
			case out <- Chunk{Text: reply}:
			case <-ctx.Done():
			}
		}

		// Транскрипт пишется с фоновым контекстом: отключение клиента
		// не должно терять состоявшуюся реплику
		s.appendInterviewerTurn(context.Background(), sess, reply)

		select {
		case out <- Chunk{DoneText: reply, Done: true}:
		case <-ctx.Done():
		}
	}()
	return out
}

// collectStream накапливает токены потока, пересылая их вызывающему.
// Обрыв потока не фатален: возвращается накопленная часть реплики.
func (s *Service) collectStream(ctx context.Context, messages []api.Message, out chan<- Chunk) string {
	stream, err := s.streamer.ChatStream(ctx, messages)
	if err != nil {
		s.metrics.IncrementAPICall(false)
		log.Printf("⚠️ Потоковый бэкенд недоступен: %v", err)
		return ""
	}

	var b strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			log.Printf("⚠️ Поток реплики прерван: %v", chunk.Err)
			break
		}
		b.WriteString(chunk.Token)
		select {
		case out <- Chunk{Text: chunk.Token}:
		case <-ctx.Done():
			// Клиент отключился: токены больше не пересылаются,
			// но реплика продолжает накапливаться для транскрипта
		}
	}

	s.metrics.IncrementAPICall(b.Len() > 0)
	return b.String()
}

// TimeStatus — снимок таймера сессии для клиента
type TimeStatus struct {
	TimeRemaining float64 `json:"time_remaining"`
	TotalTime     float64 `json:"total_time"`
	Suspended     bool    `json:"suspended"`
	Completed     bool    `json:"completed"`
}

// CheckTime возвращает остаток времени сессии. Наблюдение истечения
// времени здесь также финализирует сессию.
func (s *Service) CheckTime(ctx context.Context, sessionID string) (TimeStatus, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return TimeStatus{}, ErrSessionNotFound
	}

	sess.Lock()
	defer sess.Unlock()

	if reason := sess.BlockReason(); reason != session.BlockNone {
		s.observeTerminal(sess, reason)
	}

	return TimeStatus{
		TimeRemaining: sess.RemainingTime().Seconds(),
		TotalTime:     sess.Duration.Seconds(),
		Suspended:     sess.Suspended,
		Completed:     sess.Completed,
	}, nil
}

// End завершает интервью и возвращает итоговый отчет. Повторный вызов
// возвращает тот же отчет.
func (s *Service) End(ctx context.Context, sessionID string) (session.FinalReport, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return session.FinalReport{}, ErrSessionNotFound
	}

	sess.Lock()
	defer sess.Unlock()

	if !sess.Completed && sess.RemainingTime() == 0 {
		sess.MarkTimeExpired()
	}
	return s.finalizeLocked(ctx, sess), nil
}

// ReportViolation передает сигнал прокторинга: критичное нарушение
// приостанавливает сессию и немедленно финализирует ее
func (s *Service) ReportViolation(ctx context.Context, sessionID string, v proctor.Violation) (bool, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return false, ErrSessionNotFound
	}

	sess.Lock()
	defer sess.Unlock()

	wasSuspended := sess.Suspended
	critical := s.proctor.HandleViolation(sess, v)
	if critical && !wasSuspended {
		s.metrics.IncrementInterviewsSuspended()
		s.finalizeLocked(ctx, sess)
	}
	return critical, nil
}

// GetSession возвращает живую сессию по id
func (s *Service) GetSession(sessionID string) (*session.Session, bool) {
	return s.sessions.Get(sessionID)
}

// Metrics возвращает снимок счетчиков движка
func (s *Service) Metrics() metrics.Snapshot {
	return s.metrics.GetSnapshot()
}

// ProctorStats возвращает статистику по каталогам улик прокторинга
func (s *Service) ProctorStats() map[string]int {
	return s.proctor.Stats()
}

// observeTerminal фиксирует наблюдение терминального сигнала:
// истечение времени помечается липким флагом, финализация выполняется
// ровно один раз. Вызывается с удержанной блокировкой сессии.
func (s *Service) observeTerminal(sess *session.Session, reason session.BlockReason) {
	if reason == session.BlockTimeExpired {
		sess.MarkTimeExpired()
	}
	s.finalizeLocked(context.Background(), sess)
}

// finalizeLocked завершает сессию ровно один раз: строит отчет по
// транскрипту, сохраняет его и помечает сессию завершенной. Повторный
// вызов возвращает готовый отчет. Вызывается с удержанной блокировкой.
func (s *Service) finalizeLocked(ctx context.Context, sess *session.Session) session.FinalReport {
	if sess.Report != nil {
		return *sess.Report
	}

	elapsed := time.Since(sess.StartedAt)
	if elapsed > sess.Duration {
		elapsed = sess.Duration
	}

	// Отчет строится по долговременному журналу; живое состояние
	// сессии служит запасным источником
	turns := s.transcripts.History(ctx, sess.ID)
	if len(turns) == 0 {
		turns = sess.Turns
	}
	rep := s.reports.Finalize(ctx, turns, elapsed)
	sess.Report = &rep
	sess.Complete()

	if err := s.transcripts.SaveReport(ctx, sess.ID, rep); err != nil {
		log.Printf("⚠️ Ошибка сохранения отчета %s: %v", sess.ID, err)
	}
	s.metrics.IncrementReportsGenerated()
	s.metrics.IncrementInterviewsCompleted()
	log.Printf("Интервью %s завершено: балл=%.2f", sess.ID, rep.FinalScore)
	return rep
}

// appendInterviewerTurn добавляет реплику интервьюера в сессию и журнал
func (s *Service) appendInterviewerTurn(ctx context.Context, sess *session.Session, text string) {
	s.appendTurn(ctx, sess, session.Turn{
		Speaker:   session.SpeakerInterviewer,
		Text:      text,
		Timestamp: time.Now(),
	})
	s.metrics.IncrementQuestionsAsked()
}

func (s *Service) appendTurn(ctx context.Context, sess *session.Session, turn session.Turn) {
	sess.AppendTurn(turn)
	if err := s.transcripts.Append(ctx, sess.ID, turn); err != nil {
		log.Printf("⚠️ Ошибка записи транскрипта %s: %v", sess.ID, err)
	}
}

func blockErr(reason session.BlockReason) error {
	switch reason {
	case session.BlockSuspended:
		return ErrSuspended
	case session.BlockTimeExpired:
		return ErrTimeExpired
	case session.BlockCompleted:
		return ErrCompleted
	default:
		return nil
	}
}
