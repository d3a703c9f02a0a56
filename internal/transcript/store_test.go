package transcript

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tech-interview-engine/internal/session"
)

func sampleTurn(speaker session.Speaker, text string, score int) session.Turn {
	turn := session.Turn{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	if speaker == session.SpeakerCandidate {
		turn.Evaluation = &session.Evaluation{
			Score:             score,
			TechnicalAccuracy: 3,
			Completeness:      3,
			Clarity:           3,
			Feedback:          "feedback",
			Heuristic:         true,
		}
	}
	return turn
}

func TestMemoryStoreOrdering(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.True(t, store.Degraded())

	turns := []session.Turn{
		sampleTurn(session.SpeakerInterviewer, "q1", 0),
		sampleTurn(session.SpeakerCandidate, "a1", 7),
		sampleTurn(session.SpeakerInterviewer, "q2", 0),
	}
	for _, turn := range turns {
		require.NoError(t, store.Append(ctx, "s1", turn))
	}

	history := store.History(ctx, "s1")
	require.Len(t, history, 3)
	assert.Equal(t, "q1", history[0].Text)
	assert.Equal(t, "a1", history[1].Text)
	assert.Equal(t, "q2", history[2].Text)
	require.NotNil(t, history[1].Evaluation)
	assert.Equal(t, 7, history[1].Evaluation.Score)
}

func TestMemoryStoreIsolatesSessions(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", sampleTurn(session.SpeakerInterviewer, "q1", 0)))
	require.NoError(t, store.Append(ctx, "s2", sampleTurn(session.SpeakerInterviewer, "other", 0)))

	assert.Len(t, store.History(ctx, "s1"), 1)
	assert.Len(t, store.History(ctx, "s2"), 1)
	assert.Empty(t, store.History(ctx, "unknown"))
}

func TestSaveReportFirstWins(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	first := session.FinalReport{FinalScore: 7.5, Recommendation: "first", Narrative: "n1"}
	second := session.FinalReport{FinalScore: 2.0, Recommendation: "second", Narrative: "n2"}

	require.NoError(t, store.SaveReport(ctx, "s1", first))
	require.NoError(t, store.SaveReport(ctx, "s1", second))

	got, ok := store.GetReport(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestGetReportMissing(t *testing.T) {
	store := NewMemory()
	_, ok := store.GetReport(context.Background(), "missing")
	assert.False(t, ok)
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.False(t, store.Degraded())

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1", sampleTurn(session.SpeakerInterviewer, "q1", 0)))
	require.NoError(t, store.Append(ctx, "s1", sampleTurn(session.SpeakerCandidate, "a1", 8)))

	history := store.History(ctx, "s1")
	require.Len(t, history, 2)
	assert.Equal(t, session.SpeakerInterviewer, history[0].Speaker)
	assert.Equal(t, "a1", history[1].Text)
	require.NotNil(t, history[1].Evaluation)
	assert.Equal(t, 8, history[1].Evaluation.Score)
	assert.Nil(t, history[0].Evaluation)

	report := session.FinalReport{
		FinalScore:     6.4,
		Recommendation: "Consider with Training",
		Narrative:      "# Report",
		Duration:       17 * time.Minute,
	}
	require.NoError(t, store.SaveReport(ctx, "s1", report))

	got, ok := store.GetReport(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, report, got)
}

func TestSQLiteReportSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "s1", sampleTurn(session.SpeakerInterviewer, "q1", 0)))
	require.NoError(t, store.SaveReport(ctx, "s1", session.FinalReport{
		FinalScore:     5.2,
		Recommendation: "Do Not Hire",
		Narrative:      "n",
		Duration:       time.Minute,
	}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	history := reopened.History(ctx, "s1")
	require.Len(t, history, 1)
	assert.Equal(t, "q1", history[0].Text)

	report, ok := reopened.GetReport(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, 5.2, report.FinalScore)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
