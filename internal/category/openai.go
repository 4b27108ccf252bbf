package category

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/exp/slices"
)

// internalCategories is the closed set the classifier may answer with.
var internalCategories = []string{
	"dining", "groceries", "shopping", "transportation", "travel",
	"entertainment", "subscriptions", "utilities", "rent", "income",
	"healthcare", "investment", "payment", "other",
}

const classifySystemPrompt = `You are a transaction categorization assistant.
Given a bank transaction description and merchant name, classify it into
exactly one primary and one detailed category from the allowed list.
Use the classify_transaction function to respond.`

// OpenAISource asks an OpenAI-compatible model for a baseline category
// when the source data carries none. It implements Source.
type OpenAISource struct {
	logger *log.Logger
	client *openai.Client
	model  string
}

// NewOpenAISource creates a Source backed by the OpenAI API.
func NewOpenAISource(logger *log.Logger, apiKey, model string) *OpenAISource {
	return &OpenAISource{
		logger: logger,
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAISourceWithBaseURL creates a Source against any OpenAI-compatible
// endpoint, such as OpenRouter or a local server.
func NewOpenAISourceWithBaseURL(logger *log.Logger, apiKey, baseURL, model string) *OpenAISource {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAISource{
		logger: logger,
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

type classifyArgs struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

var classifyTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        "classify_transaction",
		Description: "Classify a transaction into primary and detailed categories",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"primary": map[string]any{
					"type": "string",
					"enum": internalCategories,
				},
				"detailed": map[string]any{
					"type": "string",
					"enum": internalCategories,
				},
			},
			"required": []string{"primary", "detailed"},
		},
	},
}

// Baseline classifies one transaction, retrying transient API failures.
func (s *OpenAISource) Baseline(ctx context.Context, description, merchant string) (string, string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Description: %s\nMerchant: %s", description, merchant)},
	}

	var args classifyArgs
	err := retry.Do(
		func() error {
			resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:      s.model,
				Messages:   messages,
				Tools:      []openai.Tool{classifyTool},
				ToolChoice: "auto",
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
				return fmt.Errorf("no tool call in response")
			}
			call := resp.Choices[0].Message.ToolCalls[0]
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return fmt.Errorf("parsing tool arguments: %w", err)
			}
			if !slices.Contains(internalCategories, args.Primary) {
				return fmt.Errorf("model returned unknown primary category %q", args.Primary)
			}
			if !slices.Contains(internalCategories, args.Detailed) {
				return fmt.Errorf("model returned unknown detailed category %q", args.Detailed)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("retrying classification", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", "", fmt.Errorf("classifying transaction: %w", err)
	}

	s.logger.Debug("classified transaction",
		"merchant", merchant, "primary", args.Primary, "detailed", args.Detailed)
	return args.Primary, args.Detailed, nil
}
