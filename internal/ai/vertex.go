package ai

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// ModelCaller is the black-box boundary to the external AI service:
// text and an optional document in, free-form response text out. The adapter
// owns parsing and validation of whatever comes back.
type ModelCaller interface {
	Call(ctx context.Context, prompt string, input *models.NormalizedInput) (string, error)
}

// VertexCaller implements ModelCaller against a Vertex AI generative model
// pre-configured for deterministic JSON output.
type VertexCaller struct {
	analysisModel *genai.GenerativeModel
	baseClient    *genai.Client
}

// NewVertexCaller creates a caller holding the configured analysis model.
func NewVertexCaller(ctx context.Context, cfg *common.AIConfig) (*VertexCaller, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexCaller: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	analysisModel := baseClient.GenerativeModel(cfg.ModelName)
	analysisModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(AnalysisSystemPrompt)},
	}
	analysisModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output; low temp for deterministic, structured output.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	analysisModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexCaller{
		analysisModel: analysisModel,
		baseClient:    baseClient,
	}, nil
}

// Call sends the prompt plus the normalized document to the model and
// returns the raw response text.
func (c *VertexCaller) Call(ctx context.Context, prompt string, input *models.NormalizedInput) (string, error) {
	parts := []genai.Part{genai.Text(prompt)}
	if len(input.DocumentBytes) > 0 {
		parts = append(parts, genai.Blob{
			MIMEType: input.DocumentMIME,
			Data:     input.DocumentBytes,
		})
	}
	if input.Text != "" {
		parts = append(parts, genai.Text("Document content:\n\n"+input.Text))
	}

	resp, err := c.analysisModel.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis from gemini: %w", err)
	}

	return extractText(resp), nil
}

func (c *VertexCaller) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// extractText robustly gets the raw text content from the model response.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
