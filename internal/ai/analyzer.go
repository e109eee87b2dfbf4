package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// analysisResponse is the expected shape of the model's JSON reply.
// Findings is a pointer so a missing field is distinguishable from a
// document that legitimately yielded zero findings.
type analysisResponse struct {
	Summary  string             `json:"summary" validate:"required"`
	Findings *[]analysisFinding `json:"findings" validate:"required"`
	Tasks    []analysisTask     `json:"tasks" validate:"omitempty,dive"`
}

type analysisFinding struct {
	Category       string           `json:"category" validate:"required,oneof=Financial Operational Compliance Maintenance"`
	Urgency        string           `json:"urgency" validate:"omitempty,oneof=Urgent Moderate Strategic"`
	Description    string           `json:"description" validate:"required"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
}

type analysisTask struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    int    `json:"priority" validate:"omitempty,min=1,max=5"`
}

// refusalPhrases mark model replies that are apologies instead of analysis.
// If the model refuses to answer, we must fail fast.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// Analyzer wraps the external model call, enforcing the processing timeout,
// bounded retries for transient upstream failures, and strict validation of
// the response shape. Nothing partially-parsed ever escapes it.
type Analyzer struct {
	caller   ModelCaller
	timeout  time.Duration
	retry    RetryConfig
	validate *validator.Validate
	logger   arbor.ILogger

	// sleep is swappable so tests can simulate backoff without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAnalyzer creates an Analyzer over the given model boundary.
func NewAnalyzer(caller ModelCaller, cfg *common.AIConfig, logger arbor.ILogger) *Analyzer {
	return &Analyzer{
		caller:   caller,
		timeout:  cfg.ProcessingTimeout(),
		retry:    RetryConfigFrom(cfg),
		validate: validator.New(),
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Analyze runs one model call (with bounded retries for transient upstream
// failures) and returns validated insights or a typed failure: ErrTimeout,
// ErrMalformedResponse or ErrUpstream.
func (a *Analyzer) Analyze(ctx context.Context, input *models.NormalizedInput) (*models.PropertyInsights, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.callWithRetry(ctx, input)
	if err != nil {
		return nil, err
	}

	insights, err := a.parse(raw, input)
	if err != nil {
		a.logger.Warn().
			Str("source_id", input.SourceID).
			Err(err).
			Msg("Model response failed validation")
		return nil, err
	}

	a.logger.Info().
		Str("source_id", input.SourceID).
		Int("findings", len(insights.Findings)).
		Int("proposed_tasks", len(insights.Proposed)).
		Msg("Analysis complete")
	return insights, nil
}

func (a *Analyzer) callWithRetry(ctx context.Context, input *models.NormalizedInput) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= a.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.retry.Backoff(attempt - 1)
			a.logger.Warn().
				Str("source_id", input.SourceID).
				Int("attempt", attempt).
				Str("backoff", backoff.String()).
				Err(lastErr).
				Msg("Transient upstream error, retrying model call")
			if err := a.sleep(ctx, backoff); err != nil {
				return "", a.mapContextErr(err)
			}
		}

		raw, err := a.caller.Call(ctx, AnalysisUserPrompt, input)
		if err == nil {
			return raw, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", a.mapContextErr(ctxErr)
		}
		if !IsTransient(err) {
			return "", fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: retries exhausted: %v", ErrUpstream, lastErr)
}

func (a *Analyzer) mapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: model call exceeded %s", ErrTimeout, a.timeout)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// parse validates the raw model reply and converts it into typed insights.
func (a *Analyzer) parse(raw string, input *models.NormalizedInput) (*models.PropertyInsights, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	lower := strings.ToLower(cleaned)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return nil, fmt.Errorf("%w: model refused to analyze the document", ErrMalformedResponse)
		}
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedResponse, err)
	}
	if err := a.validate.Struct(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for i, f := range *resp.Findings {
		if err := a.validate.Struct(&f); err != nil {
			return nil, fmt.Errorf("%w: finding %d: %v", ErrMalformedResponse, i, err)
		}
		if f.EstimatedValue != nil && f.EstimatedValue.IsNegative() {
			return nil, fmt.Errorf("%w: finding %d: negative estimated value", ErrMalformedResponse, i)
		}
	}

	insights := &models.PropertyInsights{
		SourceID:  input.SourceID,
		Summary:   resp.Summary,
		Findings:  make([]models.Finding, 0, len(*resp.Findings)),
		Truncated: input.Truncated,
	}
	for _, f := range *resp.Findings {
		urgency := models.Urgency(f.Urgency)
		if urgency == "" {
			urgency = models.UrgencyModerate
		}
		insights.Findings = append(insights.Findings, models.Finding{
			ID:             common.NewFindingID(),
			Category:       models.Category(f.Category),
			Urgency:        urgency,
			Description:    f.Description,
			EstimatedValue: f.EstimatedValue,
		})
	}
	for _, t := range resp.Tasks {
		insights.Proposed = append(insights.Proposed, models.ProposedTask{
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
		})
	}

	return insights, nil
}

// stripFences cleans potential markdown fences around the JSON payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
