// Package openaiintent scores phishing intent with an OpenAI chat model. It
// is one implementation of the IntentModel port; the intent extractor turns
// its errors into a degraded neutral signal.
package openaiintent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client is an implementation of the IntentModel interface using OpenAI
type Client struct {
	client       *openai.Client
	modelName    string
	maxBodySize  int
	text         *utils.TextProcessor
	logger       *zap.Logger
	promptFormat string
}

// intentResponse represents the structured response from the model
type intentResponse struct {
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators"`
}

// NewClient creates a new OpenAI intent client
func NewClient(apiKey, modelName string, maxBodySize int, logger *zap.Logger) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		modelName:   modelName,
		maxBodySize: maxBodySize,
		text:        utils.NewTextProcessor(logger),
		logger:      logger,
		promptFormat: `You are a phishing detection system. Analyze the following email text for phishing intent: social engineering, urgency pressure, credential harvesting or impersonation.
Respond with a JSON object containing:
- score: number between 0 and 1 (higher means stronger phishing intent)
- indicators: array of strings (short phrases naming each indicator you found)

Email text:
%s

Respond only with the JSON object and nothing else.`,
	}
}

var _ core.IntentModel = (*Client)(nil)

// ScoreText asks the model for a phishing-intent score and the indicators
// behind it.
func (c *Client) ScoreText(ctx context.Context, text string) (float64, []string, error) {
	prompt := fmt.Sprintf(c.promptFormat, c.text.ProcessText(text, c.maxBodySize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: "json"}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, nil, fmt.Errorf("empty response from OpenAI")
	}

	parsed, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return 0, nil, err
	}

	score := parsed.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, parsed.Indicators, nil
}

// parseResponse parses the model output, tolerating prose around the JSON
// object.
func parseResponse(responseText string) (*intentResponse, error) {
	var parsed intentResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err == nil {
		return &parsed, nil
	}

	jsonStart := -1
	jsonEnd := -1
	for i := 0; i < len(responseText); i++ {
		if responseText[i] == '{' {
			jsonStart = i
			break
		}
	}
	for i := len(responseText) - 1; i >= 0; i-- {
		if responseText[i] == '}' {
			jsonEnd = i + 1
			break
		}
	}
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("failed to extract JSON from model response")
	}

	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &parsed, nil
}
