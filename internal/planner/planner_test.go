package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"tech-interview-engine/internal/session"
)

func newTestPlanner(gen Generator) *Planner {
	return New(gen, rand.New(rand.NewSource(42)), 2, 0)
}

func TestFirstQuestion(t *testing.T) {
	p := newTestPlanner(nil)

	if got := p.FirstQuestion(session.ModeCurriculum, "C Developer"); !strings.Contains(got, "strengths") {
		t.Errorf("curriculum opener = %q", got)
	}
	if got := p.FirstQuestion(session.ModeAdaptive, "C Developer"); !strings.Contains(got, "C Developer") {
		t.Errorf("adaptive opener must mention the role, got %q", got)
	}
	if got := p.FirstQuestion(session.ModePlain, "Backend Engineer"); !strings.Contains(got, "Backend Engineer") {
		t.Errorf("plain opener must mention the role, got %q", got)
	}
}

// Полный проход учебного плана: две темы, по два вопроса на тему,
// пятый вызов закрывает интервью
func TestCurriculumProgression(t *testing.T) {
	p := newTestPlanner(nil)
	sess := &session.Session{
		Mode:       session.ModeCurriculum,
		Difficulty: "intermediate",
		Topics:     []string{"Arrays", "Recursion"},
	}

	steps := []struct {
		wantTopic    string
		wantIndex    int
		wantFollowup int
		wantTerminal bool
	}{
		{"Arrays", 0, 1, false},
		{"Arrays", 0, 2, false},
		{"Recursion", 1, 1, false},
		{"Recursion", 1, 2, false},
		{"", 2, 0, true},
	}

	for i, step := range steps {
		question, terminal := p.Next(context.Background(), sess, nil)

		if terminal != step.wantTerminal {
			t.Fatalf("call %d: terminal = %v, want %v", i+1, terminal, step.wantTerminal)
		}
		if step.wantTerminal {
			if question != ClosingStatement {
				t.Fatalf("call %d: question = %q, want closing statement", i+1, question)
			}
		} else if !strings.Contains(question, step.wantTopic) {
			t.Fatalf("call %d: question %q does not mention topic %q", i+1, question, step.wantTopic)
		}
		if sess.TopicIndex != step.wantIndex || sess.Followups != step.wantFollowup {
			t.Fatalf("call %d: cursor = (%d, %d), want (%d, %d)",
				i+1, sess.TopicIndex, sess.Followups, step.wantIndex, step.wantFollowup)
		}
	}

	// Повторный вызов после закрытия остается терминальным
	question, terminal := p.Next(context.Background(), sess, nil)
	if !terminal || question != ClosingStatement {
		t.Errorf("post-closing call: (%q, %v)", question, terminal)
	}
}

func TestCurriculumRemoteFollowup(t *testing.T) {
	gen := &stubGenerator{response: "How exactly does the allocator place Arrays in memory?"}
	p := newTestPlanner(gen)
	sess := &session.Session{
		Mode:       session.ModeCurriculum,
		Difficulty: "intermediate",
		Topics:     []string{"Arrays"},
		Turns: []session.Turn{
			{Speaker: session.SpeakerInterviewer, Text: "What is an array?"},
			{Speaker: session.SpeakerCandidate, Text: "A contiguous block of memory."},
		},
	}

	// Открывающий вопрос темы всегда из пула, без обращения к модели
	if _, terminal := p.Next(context.Background(), sess, nil); terminal {
		t.Fatal("opening question must not be terminal")
	}
	if gen.calls != 0 {
		t.Fatalf("opening question must not call the generator, calls = %d", gen.calls)
	}

	// Уточняющий вопрос приходит от модели
	question, terminal := p.Next(context.Background(), sess, nil)
	if terminal {
		t.Fatal("followup must not be terminal")
	}
	if question != gen.response {
		t.Errorf("question = %q, want remote followup", question)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
}

func TestCurriculumRemoteFailureFallsBackToPool(t *testing.T) {
	gen := &stubGenerator{err: errors.New("backend down")}
	p := newTestPlanner(gen)
	sess := &session.Session{
		Mode:       session.ModeCurriculum,
		Difficulty: "intermediate",
		Topics:     []string{"Recursion"},
		Followups:  1,
		Turns: []session.Turn{
			{Speaker: session.SpeakerInterviewer, Text: "Explain recursion."},
			{Speaker: session.SpeakerCandidate, Text: "A function calling itself."},
		},
	}

	question, terminal := p.Next(context.Background(), sess, nil)
	if terminal {
		t.Fatal("unexpected terminal question")
	}
	if !strings.Contains(question, "Recursion") {
		t.Errorf("fallback question %q does not mention the topic", question)
	}
}

func TestCurriculumRejectsTrivialRemoteQuestion(t *testing.T) {
	gen := &stubGenerator{response: "Why?"}
	p := newTestPlanner(gen)
	sess := &session.Session{
		Mode:       session.ModeCurriculum,
		Difficulty: "beginner",
		Topics:     []string{"pointers"},
		Followups:  1,
		Turns: []session.Turn{
			{Speaker: session.SpeakerInterviewer, Text: "What is a pointer?"},
			{Speaker: session.SpeakerCandidate, Text: "An address."},
		},
	}

	question, _ := p.Next(context.Background(), sess, nil)
	if question == "Why?" {
		t.Error("trivially short remote question must be rejected")
	}
	if !strings.Contains(question, "pointers") {
		t.Errorf("fallback question %q does not mention the topic", question)
	}
}

func TestPoolQuestionMembership(t *testing.T) {
	p := newTestPlanner(nil)

	tests := []struct {
		difficulty  string
		questionNum int
		archetypes  []string
	}{
		{"beginner", 0, []string{archConceptual, archPractical}},
		{"intermediate", 1, []string{archPractical, archProblemSolving}},
		{"advanced", 2, []string{archProblemSolving, archArchitectural}},
		{"intermediate", 3, []string{archPractical, archProblemSolving}},
	}

	for _, tt := range tests {
		want := make(map[string]bool)
		for _, a := range tt.archetypes {
			for _, tpl := range questionPools[tt.difficulty][a] {
				want[fmt.Sprintf(tpl, "Graphs")] = true
			}
		}

		for i := 0; i < 50; i++ {
			got := p.poolQuestion("Graphs", tt.difficulty, tt.questionNum)
			if !want[got] {
				t.Fatalf("poolQuestion(%q, %d) = %q not in expected archetypes %v",
					tt.difficulty, tt.questionNum, got, tt.archetypes)
			}
		}
	}
}

func TestPoolQuestionUnknownDifficulty(t *testing.T) {
	p := newTestPlanner(nil)
	got := p.poolQuestion("Graphs", "expert", 0)
	if !strings.Contains(got, "Graphs") {
		t.Errorf("question %q does not mention the topic", got)
	}
}

func TestPlainModeScoreBands(t *testing.T) {
	p := newTestPlanner(nil)
	sess := &session.Session{Mode: session.ModePlain}

	contains := func(pool []string, q string) bool {
		for _, phrase := range pool {
			if strings.HasPrefix(q, phrase) {
				return true
			}
		}
		return false
	}

	tests := []struct {
		name  string
		score int
		check func(q string) bool
	}{
		{"high score gets challenge", 9, func(q string) bool { return contains(challengePhrases, q) }},
		{"good score gets related concept", 7, func(q string) bool { return contains(relatedPhrases, q) }},
		{"middling score gets clarification", 4, func(q string) bool { return contains(clarifyingPhrases, q) }},
		{"low score goes back to fundamentals", 2, func(q string) bool {
			return strings.HasPrefix(q, "Let me ask a more fundamental question")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &session.Evaluation{Score: tt.score}
			for i := 0; i < 20; i++ {
				question, terminal := p.Next(context.Background(), sess, eval)
				if terminal {
					t.Fatal("plain mode never terminates on its own")
				}
				if !tt.check(question) {
					t.Fatalf("score %d produced unexpected question %q", tt.score, question)
				}
			}
		})
	}
}

func TestPlainModeNilEvaluationIsNeutral(t *testing.T) {
	p := newTestPlanner(nil)
	sess := &session.Session{Mode: session.ModePlain}

	question, _ := p.Next(context.Background(), sess, nil)
	found := false
	for _, phrase := range clarifyingPhrases {
		if strings.HasPrefix(question, phrase) {
			found = true
		}
	}
	if !found {
		t.Errorf("nil evaluation should act as score 5, got %q", question)
	}
}

func TestAdaptiveModeReturnsFallback(t *testing.T) {
	p := newTestPlanner(nil)
	sess := &session.Session{Mode: session.ModeAdaptive}

	question, terminal := p.Next(context.Background(), sess, nil)
	if terminal {
		t.Fatal("adaptive fallback must not be terminal")
	}
	if question != AdaptiveFallback {
		t.Errorf("question = %q, want adaptive fallback", question)
	}
}

type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.response, s.err
}
