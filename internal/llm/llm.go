// Package llm wraps the Gemini text-completion service used as the
// optional scoring and summary oracle. The service is treated as
// unreliable: callers must pair every use with a deterministic fallback.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model for item assessment.
	DefaultModel = "gemini-flash-lite-latest"

	// assessItemPromptTemplate asks for a JSON-shaped assessment of one item.
	assessItemPromptTemplate = `You are preparing an executive brief on AI developments for business leaders.

Assess the news item below. Respond with ONLY a JSON object, no prose, shaped as:
{"score": <integer 0-%d, importance to an executive audience>, "summary": "<2 sentence plain-language summary>", "why_it_matters": "<1 sentence on why leadership should care>"}

Title: %s

Text:
%s`
)

// Client is a client for the Gemini text-completion API.
type Client struct {
	modelName string
	gClient   *genai.Client
}

// Assessment is the oracle's structured verdict on a single item.
type Assessment struct {
	Score        int    `json:"score"`
	Summary      string `json:"summary"`
	WhyItMatters string `json:"why_it_matters"`
}

// NewClient creates a new oracle client. The API key is resolved from
// GEMINI_API_KEY (or alternatives), then the ai.gemini.api_key config key.
func NewClient(modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			if apiKey = os.Getenv("GOOGLE_AI_API_KEY"); apiKey == "" {
				apiKey = viper.GetString("ai.gemini.api_key")
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in config")
	}

	if modelName == "" {
		modelName = viper.GetString("ai.gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	gClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{modelName: modelName, gClient: gClient}, nil
}

// generateContent wraps the SDK's GenerateContent call for a single prompt.
func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// AssessItem asks the oracle to score and summarize one item. maxScore
// bounds the requested score range. A malformed response fails this single
// call, never the run; callers fall back to rule-based scoring.
func (c *Client) AssessItem(ctx context.Context, title, text string, maxScore int) (*Assessment, error) {
	prompt := fmt.Sprintf(assessItemPromptTemplate, maxScore, title, truncate(text, 4000))

	raw, err := c.generateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	assessment, err := ParseAssessment(raw, maxScore)
	if err != nil {
		return nil, err
	}
	return assessment, nil
}

// ParseAssessment decodes the oracle's JSON-shaped reply. Models wrap JSON
// in code fences or preamble often enough that the raw text is scanned for
// the outermost object before decoding.
func ParseAssessment(raw string, maxScore int) (*Assessment, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in oracle response")
	}

	var assessment Assessment
	if err := json.Unmarshal([]byte(raw[start:end+1]), &assessment); err != nil {
		return nil, fmt.Errorf("failed to parse oracle response: %w", err)
	}

	if assessment.Score < 0 || assessment.Score > maxScore {
		return nil, fmt.Errorf("oracle score %d outside [0, %d]", assessment.Score, maxScore)
	}
	if strings.TrimSpace(assessment.Summary) == "" {
		return nil, fmt.Errorf("oracle response missing summary")
	}

	return &assessment, nil
}

// ModelName returns the model the client is configured for.
func (c *Client) ModelName() string {
	return c.modelName
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
