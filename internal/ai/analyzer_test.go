package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// fakeCaller scripts the model boundary: each call pops the next response.
type fakeCaller struct {
	responses []fakeResponse
	calls     int
	delay     time.Duration
}

type fakeResponse struct {
	raw string
	err error
}

func (f *fakeCaller) Call(ctx context.Context, prompt string, input *models.NormalizedInput) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if len(f.responses) == 0 {
		return "", errors.New("fakeCaller: no scripted response")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp.raw, resp.err
}

func newTestAnalyzer(caller ModelCaller, timeoutMs int) *Analyzer {
	cfg := common.DefaultConfig().AI
	cfg.ProcessingTimeoutMs = timeoutMs
	a := NewAnalyzer(caller, &cfg, common.GetLogger())
	a.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return a
}

func testInput() *models.NormalizedInput {
	return &models.NormalizedInput{
		SourceID: "report.csv",
		Kind:     models.MimeCSV,
		Text:     "unit | rent | status",
	}
}

const validResponse = `{
	"summary": "Monthly report shows one urgent maintenance issue.",
	"findings": [
		{
			"category": "Maintenance",
			"urgency": "Urgent",
			"description": "HVAC unit failing, safety risk",
			"estimated_value": 30000
		}
	],
	"tasks": [
		{"title": "Schedule vendor walkthrough", "priority": 4}
	]
}`

func TestAnalyzeValidResponse(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{{raw: validResponse}}}
	analyzer := newTestAnalyzer(caller, 60000)

	insights, err := analyzer.Analyze(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, "report.csv", insights.SourceID)
	require.Len(t, insights.Findings, 1)
	finding := insights.Findings[0]
	assert.Equal(t, models.CategoryMaintenance, finding.Category)
	assert.Equal(t, models.UrgencyUrgent, finding.Urgency)
	assert.NotEmpty(t, finding.ID)
	require.NotNil(t, finding.EstimatedValue)
	assert.Equal(t, "30000", finding.EstimatedValue.String())
	require.Len(t, insights.Proposed, 1)
	assert.Equal(t, "Schedule vendor walkthrough", insights.Proposed[0].Title)
}

func TestAnalyzeStripsMarkdownFences(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{{raw: "```json\n" + validResponse + "\n```"}}}
	analyzer := newTestAnalyzer(caller, 60000)

	insights, err := analyzer.Analyze(context.Background(), testInput())
	require.NoError(t, err)
	assert.Len(t, insights.Findings, 1)
}

func TestAnalyzeEmptyFindingsIsValid(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{{raw: `{"summary": "Nothing actionable.", "findings": []}`}}}
	analyzer := newTestAnalyzer(caller, 60000)

	insights, err := analyzer.Analyze(context.Background(), testInput())
	require.NoError(t, err)
	assert.Empty(t, insights.Findings)
}

func TestAnalyzeMissingFindingsFieldIsMalformed(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{{raw: `{"summary": "Looks fine."}`}}}
	analyzer := newTestAnalyzer(caller, 60000)

	_, err := analyzer.Analyze(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyzeInvalidJSONIsMalformed(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{{raw: `{"summary": "broken`}}}
	analyzer := newTestAnalyzer(caller, 60000)

	_, err := analyzer.Analyze(context.Background(), testInput())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyzeRefusalIsMalformed(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{{raw: "I cannot provide an analysis of this document."}}}
	analyzer := newTestAnalyzer(caller, 60000)

	_, err := analyzer.Analyze(context.Background(), testInput())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyzeNegativeValueIsMalformed(t *testing.T) {
	raw := `{"summary": "x", "findings": [{"category": "Financial", "urgency": "Moderate", "description": "refund", "estimated_value": -100}]}`
	caller := &fakeCaller{responses: []fakeResponse{{raw: raw}}}
	analyzer := newTestAnalyzer(caller, 60000)

	_, err := analyzer.Analyze(context.Background(), testInput())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyzeUnknownCategoryIsMalformed(t *testing.T) {
	raw := `{"summary": "x", "findings": [{"category": "Astrology", "urgency": "Moderate", "description": "retrograde"}]}`
	caller := &fakeCaller{responses: []fakeResponse{{raw: raw}}}
	analyzer := newTestAnalyzer(caller, 60000)

	_, err := analyzer.Analyze(context.Background(), testInput())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyzeMissingUrgencyDefaultsToModerate(t *testing.T) {
	raw := `{"summary": "x", "findings": [{"category": "Operational", "description": "snow removal contract lapsed"}]}`
	caller := &fakeCaller{responses: []fakeResponse{{raw: raw}}}
	analyzer := newTestAnalyzer(caller, 60000)

	insights, err := analyzer.Analyze(context.Background(), testInput())
	require.NoError(t, err)
	require.Len(t, insights.Findings, 1)
	assert.Equal(t, models.UrgencyModerate, insights.Findings[0].Urgency)
}

func TestAnalyzeTimeout(t *testing.T) {
	// The model takes a full second; the budget is 100ms.
	caller := &fakeCaller{
		delay:     time.Second,
		responses: []fakeResponse{{raw: validResponse}},
	}
	analyzer := newTestAnalyzer(caller, 100)

	start := time.Now()
	_, err := analyzer.Analyze(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "analyze must abandon the call at the deadline")
}

func TestAnalyzeRetriesTransientUpstreamError(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{
		{err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")},
		{raw: validResponse},
	}}
	analyzer := newTestAnalyzer(caller, 60000)
	analyzer.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	insights, err := analyzer.Analyze(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, 2, caller.calls)
	assert.Len(t, insights.Findings, 1)
}

func TestAnalyzeDoesNotRetryPermanentUpstreamError(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{
		{err: errors.New("googleapi: Error 400: invalid request")},
	}}
	analyzer := newTestAnalyzer(caller, 60000)

	_, err := analyzer.Analyze(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 1, caller.calls)
}

func TestAnalyzeExhaustsRetries(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{
		{err: errors.New("googleapi: Error 503: UNAVAILABLE")},
	}}
	analyzer := newTestAnalyzer(caller, 60000)
	analyzer.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := analyzer.Analyze(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, analyzer.retry.MaxRetries+1, caller.calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
	assert.Equal(t, 2*time.Second, cfg.Backoff(0))
	assert.Equal(t, 4*time.Second, cfg.Backoff(1))
	assert.Equal(t, 8*time.Second, cfg.Backoff(2))
	assert.Equal(t, 10*time.Second, cfg.Backoff(3), "backoff must cap at the maximum")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("googleapi: Error 429: quota exceeded")))
	assert.True(t, IsTransient(errors.New("rpc error: code = Unavailable desc = UNAVAILABLE")))
	assert.True(t, IsTransient(errors.New("googleapi: Error 500: backend error")))
	assert.False(t, IsTransient(errors.New("googleapi: Error 400: invalid argument")))
	assert.False(t, IsTransient(nil))
}
