// Package planner выбирает следующий вопрос интервью: по учебному
// плану тем, адаптивно по последнему ответу или по диапазонам оценок.
package planner

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"tech-interview-engine/internal/session"
)

// ClosingStatement завершает интервью после покрытия всех тем
const ClosingStatement = "Thank you for completing the technical assessment. This concludes our interview. Your responses have been recorded and will be reviewed by our team."

// AdaptiveFallback подставляется, когда стриминговый бэкенд недоступен
const AdaptiveFallback = "Sorry, the dynamic generator is currently unavailable. Please continue: can you give an example to illustrate your approach?"

// AdaptiveSystemPrompt — системная рамка адаптивного режима: ровно
// один короткий уточняющий вопрос, без смены темы, ответов и оценок
const AdaptiveSystemPrompt = "You are a concise technical interviewer. Read the conversation and produce exactly one follow-up question " +
	"that directly continues the candidate's last answer. Keep it short (1-2 sentences). Do not provide answers or evaluations."

// Generator — контракт удаленного бэкенда генерации вопросов
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Planner представляет планировщик вопросов
type Planner struct {
	gen         Generator
	rng         *rand.Rand
	followupCap int
	timeout     time.Duration
}

// New создает планировщик. Источник случайности инъецируется, чтобы
// тесты могли проверять принадлежность пулу без нестабильности.
func New(gen Generator, rng *rand.Rand, followupCap int, timeout time.Duration) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if followupCap <= 0 {
		followupCap = 2
	}
	return &Planner{
		gen:         gen,
		rng:         rng,
		followupCap: followupCap,
		timeout:     timeout,
	}
}

// FirstQuestion возвращает открывающий вопрос интервью
func (p *Planner) FirstQuestion(mode session.Mode, role string) string {
	switch mode {
	case session.ModeCurriculum:
		// Фиксированный вводный вопрос: сильные стороны кандидата
		// выясняются до тематических вопросов
		return "What are your strengths and name one topic where you are strongest?"
	case session.ModeAdaptive:
		return fmt.Sprintf("Let's begin the %s interview. Can you tell me about your relevant experience and what interests you about this position?", role)
	default:
		return fmt.Sprintf("Let's begin the %s interview. What interests you about this position?", role)
	}
}

// Next выбирает следующий вопрос и сообщает, завершает ли он
// интервью. Вызывающий обязан заранее проверить guard сессии.
func (p *Planner) Next(ctx context.Context, sess *session.Session, lastEval *session.Evaluation) (string, bool) {
	switch sess.Mode {
	case session.ModeCurriculum:
		return p.nextCurriculum(ctx, sess)
	case session.ModeAdaptive:
		// Адаптивный режим стримится движком напрямую; сюда попадает
		// только откат при недоступном бэкенде
		return AdaptiveFallback, false
	default:
		return p.nextPlain(lastEval), false
	}
}

// nextCurriculum ведет курсор по темам: открывающий вопрос считается
// в лимит темы, по исчерпанию лимита курсор двигается дальше
func (p *Planner) nextCurriculum(ctx context.Context, sess *session.Session) (string, bool) {
	if sess.Followups >= p.followupCap {
		sess.TopicIndex++
		sess.Followups = 0
	}

	if sess.TopicIndex >= len(sess.Topics) {
		return ClosingStatement, true
	}

	topic := sess.Topics[sess.TopicIndex]
	questionNum := sess.Followups
	sess.Followups++

	// Для уточняющих вопросов предпочтителен контекстный вопрос от
	// модели, сгенерированный по предыдущему ответу
	if questionNum > 0 && p.gen != nil {
		if answer, _ := sess.LastAnswer(); answer != "" {
			if q := p.remoteFollowup(ctx, topic, sess.Difficulty, questionNum, sess.LastQuestion(), answer); q != "" {
				return q, false
			}
		}
	}

	return p.poolQuestion(topic, sess.Difficulty, questionNum), false
}

// remoteFollowup запрашивает контекстный уточняющий вопрос; пустая
// строка означает откат на пул
func (p *Planner) remoteFollowup(ctx context.Context, topic, difficulty string, followupNum int, prevQuestion, prevAnswer string) string {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Based on the candidate's previous answer about %s, generate an intelligent follow-up question that:
1. Probes deeper into areas that need clarification
2. Challenges their understanding if the answer was superficial
3. Asks for practical examples or implementation details
4. Connects to related concepts

Previous question: %s
Candidate's answer: %s
Current topic: %s
Difficulty level: %s
Follow-up count: %d

Generate only the question, no additional text.`,
		topic, prevQuestion, prevAnswer, topic, difficulty, followupNum)

	question, err := p.gen.GenerateContent(callCtx, prompt)
	if err != nil {
		log.Printf("⚠️ Ошибка генерации уточняющего вопроса: %v", err)
		return ""
	}

	question = strings.TrimSpace(question)
	if len(question) <= 10 {
		// Тривиально короткий результат не принимается
		return ""
	}
	return question
}

// poolQuestion выбирает вопрос из пула по прогрессии архетипов
func (p *Planner) poolQuestion(topic, difficulty string, questionNum int) string {
	pool, ok := questionPools[difficulty]
	if !ok {
		pool = questionPools["intermediate"]
	}

	var archetypes []string
	switch {
	case questionNum == 0:
		archetypes = []string{archConceptual, archPractical}
	case questionNum == 1:
		archetypes = []string{archPractical, archProblemSolving}
	case difficulty == "advanced":
		archetypes = []string{archProblemSolving, archArchitectural}
	default:
		archetypes = []string{archPractical, archProblemSolving}
	}

	available := make([]string, 0, len(archetypes))
	for _, a := range archetypes {
		if len(pool[a]) > 0 {
			available = append(available, a)
		}
	}
	if len(available) == 0 {
		for a := range pool {
			available = append(available, a)
		}
	}
	if len(available) == 0 {
		return fmt.Sprintf("Tell me about your experience with %s and any challenging problems you've solved with it.", topic)
	}

	selected := pool[available[p.rng.Intn(len(available))]]
	return fmt.Sprintf(selected[p.rng.Intn(len(selected))], topic)
}

// nextPlain ветвится по диапазону последней оценки
func (p *Planner) nextPlain(lastEval *session.Evaluation) string {
	score := 5
	if lastEval != nil {
		score = lastEval.Score
	}

	switch {
	case score >= 8:
		return challengePhrases[p.rng.Intn(len(challengePhrases))]
	case score >= 6:
		return relatedPhrases[p.rng.Intn(len(relatedPhrases))] +
			relatedTopics[p.rng.Intn(len(relatedTopics))] + "?"
	case score >= 4:
		return clarifyingPhrases[p.rng.Intn(len(clarifyingPhrases))] +
			coreConcepts[p.rng.Intn(len(coreConcepts))] + "?"
	default:
		return "Let me ask a more fundamental question to build upon: " +
			p.poolQuestion("programming fundamentals", "beginner", 0)
	}
}
