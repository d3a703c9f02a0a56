// Package evaluator оценивает ответы кандидата: сначала удаленной
// моделью, при любом сбое — детерминированной эвристикой.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"tech-interview-engine/internal/api"
	"tech-interview-engine/internal/lexicon"
	"tech-interview-engine/internal/session"
)

const evaluatePrompt = `You are a strict technical interviewer evaluating candidate responses. Be critical but fair.

SCORING CRITERIA (1-10):
1-2: Completely wrong, off-topic, or no answer
3-4: Major misunderstandings, significant technical errors
5-6: Partial understanding with some technical inaccuracies
7-8: Mostly correct with minor errors or omissions
9-10: Excellent, comprehensive, technically accurate

TECHNICAL ASSESSMENT GUIDELINES:
- Deduct points for factual errors in core concepts
- Reward practical examples and real-world experience
- Penalize vague or non-technical responses
- Consider depth of explanation and clarity
- Look for specific technical details and terminology

RESPONSE FORMAT (JSON only):
{
  "evaluation_text": "Specific technical feedback highlighting strengths/weaknesses",
  "evaluation_score": <integer_1_to_10>,
  "technical_accuracy": <score_1-5>,
  "completeness": <score_1-5>,
  "clarity": <score_1-5>
}

Question: %s
Answer: %s

Evaluate strictly based on technical merit.`

// Generator — минимальный контракт удаленного бэкенда оценки.
// nil-генератор означает, что бэкенд недоступен.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Service представляет сервис оценки ответов
type Service struct {
	gen     Generator
	lex     *lexicon.Lexicon
	timeout time.Duration
}

// New создает сервис оценки. gen может быть nil: тогда всегда
// работает эвристика.
func New(gen Generator, lex *lexicon.Lexicon, timeout time.Duration) *Service {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Service{
		gen:     gen,
		lex:     lex,
		timeout: timeout,
	}
}

// remoteEvaluation — формат структурированного ответа модели.
// Указатели различают отсутствующие поля и нулевые значения.
type remoteEvaluation struct {
	Text              string `json:"evaluation_text"`
	Score             *int   `json:"evaluation_score"`
	TechnicalAccuracy *int   `json:"technical_accuracy"`
	Completeness      *int   `json:"completeness"`
	Clarity           *int   `json:"clarity"`
}

// Evaluate оценивает один ответ. Никогда не возвращает ошибку:
// любой сбой удаленной оценки закрывается эвристикой.
func (s *Service) Evaluate(ctx context.Context, question, answer string) session.Evaluation {
	normalized := s.lex.Normalize(answer)

	if s.gen != nil {
		eval, err := s.evaluateRemote(ctx, question, normalized)
		if err == nil {
			if normalized != answer {
				eval.NormalizedText = normalized
			}
			return eval
		}
		log.Printf("⚠️ Ошибка удаленной оценки, переключаюсь на эвристику: %v", err)
	}

	return s.evaluateHeuristic(normalized, answer)
}

func (s *Service) evaluateRemote(ctx context.Context, question, normalized string) (session.Evaluation, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(evaluatePrompt, question, normalized)
	response, err := s.gen.GenerateContent(callCtx, prompt)
	if err != nil {
		return session.Evaluation{}, err
	}

	var remote remoteEvaluation
	if err := json.Unmarshal([]byte(api.CleanJSONResponse(response)), &remote); err != nil {
		return session.Evaluation{}, fmt.Errorf("ошибка парсинга оценки: %w", err)
	}

	eval := session.Evaluation{
		Score:             5,
		TechnicalAccuracy: 3,
		Completeness:      3,
		Clarity:           3,
	}
	if remote.Score != nil {
		eval.Score = clamp(*remote.Score, 1, 10)
	}
	if remote.TechnicalAccuracy != nil {
		eval.TechnicalAccuracy = clamp(*remote.TechnicalAccuracy, 1, 5)
	}
	if remote.Completeness != nil {
		eval.Completeness = clamp(*remote.Completeness, 1, 5)
	}
	if remote.Clarity != nil {
		eval.Clarity = clamp(*remote.Clarity, 1, 5)
	}

	eval.Feedback = strings.TrimSpace(remote.Text)
	if eval.Feedback == "" {
		eval.Feedback = FeedbackFor(eval.Score)
	}

	return eval, nil
}

// FeedbackFor генерирует текст обратной связи по пяти диапазонам оценки
func FeedbackFor(score int) string {
	switch {
	case score >= 9:
		return "Excellent technical response demonstrating deep understanding and practical experience."
	case score >= 7:
		return "Strong technical answer with good detail and accurate concepts."
	case score >= 5:
		return "Adequate technical understanding but lacks depth or contains minor inaccuracies."
	case score >= 3:
		return "Basic understanding shown but significant technical gaps or inaccuracies present."
	default:
		return "Insufficient technical response showing major misunderstandings or lack of knowledge."
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
