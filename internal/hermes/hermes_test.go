package hermes

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
)

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern, subject string
		want             bool
	}{
		{"vantage.analysis.request", "vantage.analysis.request", true},
		{"vantage.score.*.location.request", "vantage.score.abc.location.request", true},
		{"vantage.score.*.location.request", "vantage.score.abc.competitor.request", false},
		{"vantage.score.*.*.response", "vantage.score.abc.revenue.response", true},
		{"vantage.score.*.*.response", "vantage.score.abc.revenue.request", false},
		{"vantage.analysis.>", "vantage.analysis.abc.completed", true},
		{"vantage.analysis.>", "vantage.analysis", false},
		{"vantage.*", "vantage.score.x", false},
		{"vantage.score", "vantage.score.x", false},
	}
	for _, tt := range tests {
		got := matchSubject(splitSubject(tt.pattern), splitSubject(tt.subject))
		assert.Equal(t, tt.want, got, "%s vs %s", tt.pattern, tt.subject)
	}
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "vantage.score.id1.location.request", SubjectScoreRequest("id1", SourceLocation))
	assert.Equal(t, "vantage.score.id1.revenue.response", SubjectScoreResponse("id1", SourceRevenue))
	assert.Equal(t, "vantage.analysis.id1.completed", SubjectAnalysisCompleted("id1"))
	assert.Equal(t, "id1", AnalysisIDFromSubject(SubjectScoreResponse("id1", SourceCompetitor)))
	assert.Equal(t, "", AnalysisIDFromSubject("vantage.analysis.request"))
}

func TestScoreResponseEventValidate(t *testing.T) {
	ok := &ScoreResponseEvent{AnalysisID: "a", Source: SourceLocation, Location: &scoring.LocationResult{}}
	assert.NoError(t, ok.Validate())

	mismatch := &ScoreResponseEvent{Source: SourceRevenue, Location: &scoring.LocationResult{}}
	assert.Error(t, mismatch.Validate())

	two := &ScoreResponseEvent{Source: SourceLocation, Location: &scoring.LocationResult{}, Competitor: &scoring.CompetitorResult{}}
	assert.Error(t, two.Validate())

	unknown := &ScoreResponseEvent{Source: "weather", Revenue: &scoring.RevenueProjection{}}
	assert.Error(t, unknown.Validate())

	assert.Error(t, (&ScoreResponseEvent{Source: SourceRevenue}).Validate())
}

func TestLocalClient_Delivery(t *testing.T) {
	c := NewLocalClient()

	var mu sync.Mutex
	got := map[string][]byte{}
	done := make(chan struct{}, 4)
	handler := func(subject string, data []byte) {
		mu.Lock()
		got[subject] = data
		mu.Unlock()
		done <- struct{}{}
	}
	require.NoError(t, c.Subscribe(SubjectScoreResponses, handler))
	require.NoError(t, c.Subscribe("vantage.analysis.>", handler))

	require.NoError(t, c.Publish(SubjectScoreResponse("x", SourceRevenue), map[string]int{"n": 1}))
	require.NoError(t, c.Publish(SubjectAnalysisCompleted("x"), map[string]int{"n": 2}))
	require.NoError(t, c.Publish("unrelated.subject", map[string]int{"n": 3}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
	c.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	var payload map[string]int
	require.NoError(t, json.Unmarshal(got["vantage.score.x.revenue.response"], &payload))
	assert.Equal(t, 1, payload["n"])
}

func TestLocalClient_HandlerCanPublish(t *testing.T) {
	c := NewLocalClient()
	defer c.Close()

	reply := make(chan string, 1)
	require.NoError(t, c.Subscribe(SubjectLocationRequests, func(subject string, _ []byte) {
		id := AnalysisIDFromSubject(subject)
		_ = c.Publish(SubjectScoreResponse(id, SourceLocation), "ok")
	}))
	require.NoError(t, c.Subscribe(SubjectScoreResponses, func(subject string, _ []byte) {
		reply <- subject
	}))

	require.NoError(t, c.Publish(SubjectScoreRequest("abc", SourceLocation), "go"))
	select {
	case s := <-reply:
		assert.Equal(t, "vantage.score.abc.location.response", s)
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
}

func TestLocalClient_Closed(t *testing.T) {
	c := NewLocalClient()
	c.Close()
	c.Close()
	assert.ErrorIs(t, c.Publish("a.b", 1), ErrClientClosed)
	assert.ErrorIs(t, c.Subscribe("a.b", func(string, []byte) {}), ErrClientClosed)
}
