package evaluator

import (
	"math"
	"strings"

	"tech-interview-engine/internal/session"
)

// evaluateHeuristic — детерминированная оценка без модели.
// Начинает с нейтральной пятерки и корректирует по технической
// лексике, качественным индикаторам и длине ответа.
func (s *Service) evaluateHeuristic(normalized, original string) session.Evaluation {
	score := 5.0

	// Техническая лексика: до +3
	termsFound := s.lex.CountTechnicalTerms(normalized)
	score += math.Min(3, float64(termsFound)*0.5)

	// Качественные индикаторы: до +2, каждая категория один раз
	qualityCategories := s.lex.CountQualityCategories(normalized)
	score += math.Min(2, float64(qualityCategories)*0.5)

	// Длина и глубина ответа
	wordCount := len(strings.Fields(normalized))
	if wordCount < 15 {
		score -= 2
	} else if wordCount > 100 {
		score += 1
	}

	// Ответы класса "не знаю" без технической лексики
	if s.lex.ContainsOffTopicPhrase(normalized) && termsFound == 0 {
		score = math.Max(1, score-3)
	}

	final := clamp(int(math.Round(score)), 1, 10)
	sub := clamp(int(math.Round(float64(final)/2)), 1, 5)

	eval := session.Evaluation{
		Score:             final,
		TechnicalAccuracy: sub,
		Completeness:      sub,
		Clarity:           sub,
		Feedback:          FeedbackFor(final),
		Heuristic:         true,
	}
	if normalized != original {
		eval.NormalizedText = normalized
	}
	return eval
}
