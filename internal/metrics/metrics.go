package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu                   sync.RWMutex
	InterviewsStarted    int64
	InterviewsCompleted  int64
	InterviewsSuspended  int64
	AnswersEvaluated     int64
	HeuristicEvaluations int64
	QuestionsAsked       int64
	ReportsGenerated     int64
	APICallsTotal        int64
	APICallsSuccessful   int64
	LastUpdateTime       time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		LastUpdateTime: time.Now(),
	}
}

func (m *Metrics) IncrementInterviewsStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InterviewsStarted++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementInterviewsCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InterviewsCompleted++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementInterviewsSuspended() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InterviewsSuspended++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementAnswersEvaluated(heuristic bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnswersEvaluated++
	if heuristic {
		m.HeuristicEvaluations++
	}
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementQuestionsAsked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuestionsAsked++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementReportsGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportsGenerated++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementAPICall(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.APICallsTotal++
	if success {
		m.APICallsSuccessful++
	}
	m.LastUpdateTime = time.Now()
}

// Snapshot — копия счетчиков без блокировки
type Snapshot struct {
	InterviewsStarted    int64
	InterviewsCompleted  int64
	InterviewsSuspended  int64
	AnswersEvaluated     int64
	HeuristicEvaluations int64
	QuestionsAsked       int64
	ReportsGenerated     int64
	APICallsTotal        int64
	APICallsSuccessful   int64
	LastUpdateTime       time.Time
}

func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		InterviewsStarted:    m.InterviewsStarted,
		InterviewsCompleted:  m.InterviewsCompleted,
		InterviewsSuspended:  m.InterviewsSuspended,
		AnswersEvaluated:     m.AnswersEvaluated,
		HeuristicEvaluations: m.HeuristicEvaluations,
		QuestionsAsked:       m.QuestionsAsked,
		ReportsGenerated:     m.ReportsGenerated,
		APICallsTotal:        m.APICallsTotal,
		APICallsSuccessful:   m.APICallsSuccessful,
		LastUpdateTime:       m.LastUpdateTime,
	}
}
