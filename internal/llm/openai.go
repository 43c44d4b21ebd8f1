package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// Client talks to an OpenAI-compatible backend.
type Client struct {
	api       openai.Client
	chatModel string
	auxModel  string
	logger    *slog.Logger
}

// ClientConfig holds connection settings for the backend.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	ChatModel string // streamed dialogue replies
	AuxModel  string // classification, explanations, summaries
}

// NewClient builds a backend client. No network I/O happens here.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:       openai.NewClient(opts...),
		chatModel: cfg.ChatModel,
		auxModel:  cfg.AuxModel,
		logger:    logger,
	}
}

// Generate streams a dialogue reply with the chat model.
func (c *Client) Generate(ctx context.Context, system, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
		if system != "" {
			messages = append(messages, openai.SystemMessage(system))
		}
		messages = append(messages, openai.UserMessage(prompt))

		stream := c.api.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(c.chatModel),
			Messages: messages,
		})
		defer func() {
			if closeErr := stream.Close(); closeErr != nil {
				c.logger.Warn("failed to close completion stream", "error", closeErr)
			}
		}()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			fragment := chunk.Choices[0].Delta.Content
			if fragment == "" {
				continue
			}
			if !yield(fragment, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil && err != io.EOF {
			yield("", fmt.Errorf("completion stream: %w", err))
		}
	}
}

// Complete runs a single non-streaming call on the aux model.
func (c *Client) Complete(ctx context.Context, instructions, input string) (string, error) {
	resp, err := c.call(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(c.auxModel),
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// CompleteJSON runs a schema-constrained call on the aux model and decodes
// the result into out.
func (c *Client) CompleteJSON(ctx context.Context, instructions, input, schemaName string, schema map[string]any, out any) error {
	resp, err := c.call(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(c.auxModel),
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		},
	})
	if err != nil {
		return err
	}
	return decodeModelJSON(resp.OutputText(), out)
}

// call issues one Responses API request, retrying transient server errors.
// Waits are short: these calls sit on an interactive request path.
func (c *Client) call(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.api.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == maxAttempts-1 {
			break
		}
		c.logger.Warn("backend call failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("backend call: %w", lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "500") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "internal server error") ||
		strings.Contains(s, "server_error")
}

// decodeModelJSON unmarshals JSON from a model response, tolerating stray
// prose around the first top-level object.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("decode model JSON: unparseable output %q", truncate(s, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Backend = (*Client)(nil)
