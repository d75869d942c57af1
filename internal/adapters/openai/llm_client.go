package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the ClassificationOracle interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	promptFormat  string
	textProcessor *utils.TextProcessor
}

// classificationResponse represents the structured response from the LLM
type classificationResponse struct {
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	PriorityHint string  `json:"priority_hint"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	client := openai.NewClient(apiKey)

	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an email triage assistant. Classify the following email into exactly one of these categories:
%s

Respond with a JSON object containing:
- category: string (one of the category names above)
- confidence: number between 0 and 1 (how confident you are in the category)
- reasoning: string (brief explanation of the classification)
- priority_hint: string (one of: urgent, high, medium, low)

Email:
From: %s
To: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// Classify categorizes an email against the tenant's category catalog
func (c *OpenAIClient) Classify(ctx context.Context, msg *core.Message, catalog []core.CategoryDescriptor) (*core.OracleResult, error) {
	// Process the body (truncate and sanitize)
	processedBody := c.textProcessor.ProcessText(msg.Body, c.maxBodySize)

	prompt := fmt.Sprintf(c.promptFormat, formatCatalog(catalog), msg.Sender, msg.Recipient, msg.Subject, processedBody)

	// Create the request
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage assistant. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	// Add response format if supported by the client version
	responseFormat := openai.ChatCompletionResponseFormat{
		Type: "json",
	}
	req.ResponseFormat = &responseFormat

	// Call OpenAI API
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	// Extract the response text
	responseText := resp.Choices[0].Message.Content

	classification, err := parseClassification(responseText)
	if err != nil {
		return nil, err
	}

	return &core.OracleResult{
		Category:     classification.Category,
		Confidence:   classification.Confidence,
		Reasoning:    classification.Reasoning,
		PriorityHint: core.Priority(classification.PriorityHint),
	}, nil
}

// formatCatalog renders the tenant's categories as prompt bullet lines
func formatCatalog(catalog []core.CategoryDescriptor) string {
	var b strings.Builder
	for _, cat := range catalog {
		fmt.Fprintf(&b, "- %s: %s\n", cat.Name, cat.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseClassification parses the LLM's JSON response, extracting the
// JSON object from surrounding text when necessary
func parseClassification(responseText string) (*classificationResponse, error) {
	var classification classificationResponse
	if err := json.Unmarshal([]byte(responseText), &classification); err != nil {
		// Try to extract JSON from the text response
		jsonStart := 0
		jsonEnd := len(responseText)

		// Find JSON start
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}

		// Find JSON end
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}

		if jsonStart < jsonEnd {
			jsonStr := responseText[jsonStart:jsonEnd]
			if err := json.Unmarshal([]byte(jsonStr), &classification); err != nil {
				return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
	}

	return &classification, nil
}
