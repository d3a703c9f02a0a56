package session

import (
	"sync"
	"time"
)

// Mode определяет стратегию ведения интервью, фиксируется при старте
type Mode string

const (
	ModeCurriculum Mode = "curriculum"
	ModeAdaptive   Mode = "adaptive"
	ModePlain      Mode = "plain"
)

// Speaker обозначает автора реплики в транскрипте
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Evaluation представляет оценку одного ответа кандидата.
// Создается ровно один раз на ответ и больше не изменяется.
type Evaluation struct {
	Score             int    `json:"evaluation_score"`
	TechnicalAccuracy int    `json:"technical_accuracy"`
	Completeness      int    `json:"completeness"`
	Clarity           int    `json:"clarity"`
	Feedback          string `json:"evaluation_text"`
	NormalizedText    string `json:"normalized_answer,omitempty"`
	Heuristic         bool   `json:"heuristic"`
}

// Turn представляет одну реплику интервью. Evaluation заполняется
// только для реплик кандидата.
type Turn struct {
	Speaker    Speaker     `json:"speaker"`
	Text       string      `json:"text"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// FinalReport представляет итоговый отчет по завершенному интервью
type FinalReport struct {
	FinalScore     float64       `json:"final_score"`
	Recommendation string        `json:"recommendation"`
	Narrative      string        `json:"narrative"`
	Duration       time.Duration `json:"duration"`
}

// Session представляет состояние одного интервью
type Session struct {
	// mu сериализует конвейер обработки ответа внутри одной сессии.
	// Сессии независимы, между ними блокировок нет.
	mu sync.Mutex

	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Mode       Mode     `json:"mode"`
	Difficulty string   `json:"difficulty"`
	Topics     []string `json:"topics"`

	TopicIndex int `json:"topic_index"`
	Followups  int `json:"followups_on_current_topic"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Suspended        bool   `json:"suspended"`
	SuspensionReason string `json:"suspension_reason,omitempty"`
	Completed        bool   `json:"completed"`
	TimeExpired      bool   `json:"time_expired"`

	Turns []Turn `json:"turns"`

	Report       *FinalReport `json:"report,omitempty"`
	LastActivity time.Time    `json:"last_activity"`
}

// Lock блокирует конвейер сессии на время одной операции
func (s *Session) Lock() { s.mu.Lock() }

// Unlock освобождает конвейер сессии
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendTurn добавляет реплику в транскрипт. Реплики неизменяемы
// после добавления, порядок фиксирован.
func (s *Session) AppendTurn(turn Turn) {
	s.Turns = append(s.Turns, turn)
	s.LastActivity = time.Now()
}

// LastQuestion возвращает текст последней реплики интервьюера
func (s *Session) LastQuestion() string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Speaker == SpeakerInterviewer {
			return s.Turns[i].Text
		}
	}
	return ""
}

// LastAnswer возвращает последний ответ кандидата и его оценку
func (s *Session) LastAnswer() (string, *Evaluation) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Speaker == SpeakerCandidate {
			return s.Turns[i].Text, s.Turns[i].Evaluation
		}
	}
	return "", nil
}
