package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/utils"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the ClassificationOracle interface using Amazon Bedrock
type BedrockClient struct {
	client        *bedrockruntime.Client
	modelID       string
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

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
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
func (c *BedrockClient) Classify(ctx context.Context, msg *core.Message, catalog []core.CategoryDescriptor) (*core.OracleResult, error) {
	// Process the body (truncate and sanitize)
	processedBody := c.textProcessor.ProcessText(msg.Body, c.maxBodySize)

	prompt := fmt.Sprintf(c.promptFormat, formatCatalog(catalog), msg.Sender, msg.Recipient, msg.Subject, processedBody)

	// Create the request based on the model
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		// Anthropic Claude models
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		// Amazon Titan models
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		// Default to a generic format
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	// Call Bedrock API
	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	// Parse the response based on the model
	var responseText string

	if c.isAnthropicModel() {
		// Anthropic Claude models
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		responseText = claudeResp.Completion
	} else if c.isAmazonTitanModel() {
		// Amazon Titan models
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) > 0 {
			responseText = titanResp.Results[0].OutputText
		} else {
			return nil, fmt.Errorf("empty response from Titan model")
		}
	} else {
		// Try a generic approach
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generic response: %w", err)
		}

		// Try different fields
		if genericResp.Output != "" {
			responseText = genericResp.Output
		} else if genericResp.Text != "" {
			responseText = genericResp.Text
		} else if genericResp.Response != "" {
			responseText = genericResp.Response
		} else {
			// Just use the raw response as a string
			responseText = string(resp.Body)
		}
	}

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

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
