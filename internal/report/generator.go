// Package report агрегирует оценки транскрипта во взвешенный итоговый
// балл и формирует повествовательный отчет о найме.
package report

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"tech-interview-engine/internal/session"
)

const summaryPrompt = `You are a senior technical hiring manager. Generate a comprehensive interview evaluation report.

INTERVIEW DATA:
%s

FINAL SCORE: %.2f/10

REPORT REQUIREMENTS:
1. **Technical Competency Assessment** - Detailed analysis of technical skills demonstrated
2. **Strengths** - Specific technical capabilities shown
3. **Areas for Improvement** - Concrete technical gaps identified
4. **Recommendation** - Hire/No Hire decision with justification
5. **Overall Summary** - 2-3 paragraph comprehensive evaluation

SCORING INTERPRETATION:
- 9-10: Exceptional candidate, strong hire
- 7-8: Good candidate, consider for hire
- 5-6: Marginal candidate, needs significant improvement
- 1-4: Not suitable for technical role

Generate a professional, detailed evaluation report in Markdown format.`

// RemoteGenerator — контракт удаленного бэкенда генерации отчета
type RemoteGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Generator представляет генератор итоговых отчетов
type Generator struct {
	gen     RemoteGenerator
	timeout time.Duration
}

// New создает генератор отчетов. gen может быть nil: тогда всегда
// используется шаблонный отчет.
func New(gen RemoteGenerator, timeout time.Duration) *Generator {
	return &Generator{gen: gen, timeout: timeout}
}

// Finalize строит итоговый отчет по полному транскрипту.
// Вызывается ровно один раз за сессию при переходе в completed.
func (g *Generator) Finalize(ctx context.Context, turns []session.Turn, duration time.Duration) session.FinalReport {
	scores := extractScores(turns)
	finalScore := WeightedScore(scores)

	narrative := g.remoteNarrative(ctx, turns, finalScore)
	if narrative == "" {
		narrative = basicReport(scores, finalScore)
	}

	return session.FinalReport{
		FinalScore:     finalScore,
		Recommendation: Recommendation(finalScore),
		Narrative:      narrative,
		Duration:       duration,
	}
}

// extractScores собирает оценки ответов кандидата в порядке транскрипта
func extractScores(turns []session.Turn) []int {
	var scores []int
	for _, turn := range turns {
		if turn.Speaker == session.SpeakerCandidate && turn.Evaluation != nil {
			scores = append(scores, turn.Evaluation.Score)
		}
	}
	return scores
}

// WeightedScore считает позиционно взвешенное среднее: поздние ответы
// весят больше, вес ограничен единицей. Пустое интервью дает 0.
func WeightedScore(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}

	var sum float64
	for i, score := range scores {
		weight := math.Min(1.0, 0.7+float64(i)*0.1)
		sum += float64(score) * weight
	}

	return math.Round(sum/float64(len(scores))*100) / 100
}

// Recommendation возвращает решение о найме по диапазону балла
func Recommendation(score float64) string {
	switch {
	case score >= 8:
		return "Strong Hire - Candidate demonstrates excellent technical capabilities."
	case score >= 6:
		return "Consider with Training - Candidate shows potential but needs development in some areas."
	default:
		return "Do Not Hire - Candidate lacks required technical competency."
	}
}

func nextSteps(score float64) string {
	switch {
	case score >= 8:
		return "proceed to the next interview stage."
	case score >= 6:
		return "consider for a junior role or provide specific technical training."
	default:
		return "the candidate should focus on improving fundamental technical skills before reapplying."
	}
}

// remoteNarrative запрашивает структурированный Markdown отчет у
// модели; пустая строка означает откат на шаблонный отчет
func (g *Generator) remoteNarrative(ctx context.Context, turns []session.Turn, finalScore float64) string {
	if g.gen == nil {
		return ""
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(summaryPrompt, FormatTranscript(turns), finalScore)
	narrative, err := g.gen.GenerateContent(callCtx, prompt)
	if err != nil {
		log.Printf("⚠️ Ошибка генерации отчета, использую шаблон: %v", err)
		return ""
	}

	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return ""
	}

	if !strings.HasPrefix(narrative, "#") {
		narrative = fmt.Sprintf("# Interview Evaluation Report\n\n## Final Score: %.2f/10\n\n%s", finalScore, narrative)
	}
	return narrative
}

// FormatTranscript печатает транскрипт в текстовом виде журнала
func FormatTranscript(turns []session.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		if turn.Speaker == session.SpeakerCandidate {
			b.WriteString(fmt.Sprintf("Candidate: %s\n", turn.Text))
			if turn.Evaluation != nil {
				b.WriteString(fmt.Sprintf("[Score: %d/10 - %s]\n", turn.Evaluation.Score, turn.Evaluation.Feedback))
			}
			b.WriteString("\n")
		} else {
			b.WriteString(fmt.Sprintf("Interviewer: %s\n\n", turn.Text))
		}
	}
	return b.String()
}

// basicReport строит детерминированный отчет без модели
func basicReport(scores []int, finalScore float64) string {
	scoreAnalysis := "No scores recorded"
	if len(scores) > 0 {
		minScore, maxScore := scores[0], scores[0]
		parts := make([]string, len(scores))
		for i, s := range scores {
			if s < minScore {
				minScore = s
			}
			if s > maxScore {
				maxScore = s
			}
			parts[i] = fmt.Sprintf("%d", s)
		}
		scoreAnalysis = fmt.Sprintf(`- Number of questions: %d
- Average score: %.2f/10
- Highest score: %d/10
- Lowest score: %d/10
- Score distribution: %s`,
			len(scores), finalScore, maxScore, minScore, strings.Join(parts, ", "))
	}

	return fmt.Sprintf(`# Technical Interview Evaluation Report

## Overall Assessment
Final Score: **%.2f/10**

**Recommendation: %s**

## Performance Summary
%s

## Evaluation Criteria
- **9-10**: Exceptional technical competency
- **7-8**: Strong technical skills with minor gaps
- **5-6**: Basic competency needing development
- **1-4**: Significant technical improvements required

## Next Steps
Based on the interview performance, %s

---
*Report generated automatically from interview transcript*`,
		finalScore, Recommendation(finalScore), scoreAnalysis, nextSteps(finalScore))
}
