// Package llmclient provides a concrete, non-streaming LLMClient
// implementation backed by the Anthropic Messages API. The core only
// depends on pkg/subagent.LLMClient; this package is the external
// collaborator satisfying that capability.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/subagent"
)

// messagesClient captures the subset of the Anthropic SDK client this
// adapter uses, so a mock can stand in for tests.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Config configures an AnthropicClient.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int64
}

// AnthropicClient implements subagent.LLMClient against the Anthropic
// Messages API, retrying RATE_LIMITED/TIMEOUT/SERVICE failures with
// exponential backoff.
type AnthropicClient struct {
	msg        messagesClient
	model      string
	timeout    time.Duration
	maxRetries int
	maxTokens  int64
}

// New constructs an AnthropicClient from cfg.
func New(cfg Config) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdk.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &AnthropicClient{
		msg:        &client.Messages,
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		maxTokens:  maxTokens,
	}
}

// Generate issues a non-streaming Messages.New call, retrying transient
// failures per the engineerr taxonomy's retryable categories.
func (c *AnthropicClient) Generate(ctx context.Context, req subagent.GenerateRequest) (subagent.GenerateResponse, error) {
	params := c.buildParams(req)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var msg *sdk.Message
	operation := func() error {
		var err error
		msg, err = c.msg.New(ctx, params)
		if err != nil {
			return classifyError(err)
		}
		return nil
	}

	if err := c.withRetry(ctx, operation); err != nil {
		return subagent.GenerateResponse{}, err
	}

	return translateMessage(msg), nil
}

func (c *AnthropicClient) buildParams(req subagent.GenerateRequest) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}

	messages := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case subagent.RoleUser, subagent.RoleTool:
			messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case subagent.RoleAssistant:
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	params.Messages = messages
	return params
}

// withRetry wraps operation with exponential backoff, scoped to this
// client's MaxRetries, stopping immediately on non-retryable errors.
func (c *AnthropicClient) withRetry(ctx context.Context, operation func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxInt(c.maxRetries, 0))), ctx)

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		var ee *engineerr.Error
		if errors.As(err, &ee) && !ee.IsRetryable() {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// classifyError maps an Anthropic SDK error to the engineerr taxonomy.
// *sdk.Error carries the HTTP status code the API responded with; anything
// that isn't a recognized *sdk.Error (a transport failure, a context
// cancellation) is treated conservatively as a retryable service error.
func classifyError(err error) error {
	var already *engineerr.Error
	if errors.As(err, &already) {
		return err
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return engineerr.Wrap(engineerr.CategoryAuth, err, "anthropic authentication failed")
		case 429:
			return engineerr.Wrap(engineerr.CategoryRateLimited, err, "anthropic rate limit exceeded")
		case 408:
			return engineerr.Wrap(engineerr.CategoryTimeout, err, "anthropic request timed out")
		default:
			if apiErr.StatusCode >= 500 {
				return engineerr.Wrap(engineerr.CategoryService, err, "anthropic service error")
			}
			return engineerr.Wrap(engineerr.CategoryInvalidInput, err, "anthropic request rejected")
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return engineerr.Wrap(engineerr.CategoryTimeout, err, "anthropic request timed out")
	}
	return engineerr.Wrap(engineerr.CategoryService, err, "anthropic request failed")
}

// translateMessage converts an Anthropic response into a GenerateResponse,
// surfacing the first tool_use block (if any) as a ToolCall — the
// provider's own tool-use convention, opaque to the executor.
func translateMessage(msg *sdk.Message) subagent.GenerateResponse {
	var text string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			return subagent.GenerateResponse{
				ToolCall: &subagent.ToolCall{
					ID:        block.ID,
					Name:      block.Name,
					Arguments: string(args),
				},
			}
		}
	}
	return subagent.GenerateResponse{Text: text}
}
