// Package gemini implements the assistant interface using Google's Gemini
// API with function calling over the task toolbox.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/taskforge/taskforge-api/internal/assistant"
	"github.com/taskforge/taskforge-api/internal/config"
)

// maxToolRounds bounds the model/tool round-trips within a single Send call.
const maxToolRounds = 8

// modelCaller abstracts the single Gemini API call so the conversation loop
// can be tested with a scripted model.
type modelCaller interface {
	generate(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error)
}

// Assistant implements assistant.Assistant using the Gemini API.
type Assistant struct {
	logger  *slog.Logger
	config  config.LLMConfig
	caller  modelCaller
	toolbox *assistant.Toolbox
}

// NewAssistant creates a Gemini-backed Assistant with the provided
// dependencies. Returns an error if the configuration is invalid or the
// client cannot be created.
func NewAssistant(
	ctx context.Context,
	log *slog.Logger,
	cfg config.LLMConfig,
	toolbox *assistant.Toolbox,
) (*Assistant, error) {
	if log == nil {
		log = slog.Default()
	}
	if toolbox == nil {
		return nil, fmt.Errorf("%w: toolbox cannot be nil", assistant.ErrInvalidConfig)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", assistant.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", assistant.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", assistant.ErrInvalidConfig, err)
	}

	return &Assistant{
		logger: log.With(slog.String("component", "gemini_assistant")),
		config: cfg,
		caller: &genaiCaller{
			client: client,
			model:  cfg.ModelName,
		},
		toolbox: toolbox,
	}, nil
}

// NewConversation starts a fresh conversation with empty history.
func (a *Assistant) NewConversation() assistant.Conversation {
	return &Conversation{assistant: a}
}

// genaiCaller is the production modelCaller backed by the genai client.
type genaiCaller struct {
	client *genai.Client
	model  string
}

func (c *genaiCaller) generate(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Tools:             []*genai.Tool{taskTools()},
	})
}

// Conversation is a single chat session. History accumulates across Send
// calls for the lifetime of the owning WebSocket connection.
type Conversation struct {
	assistant *Assistant
	history   []*genai.Content
}

// Send delivers a user message, executes requested tool calls and returns
// the model's final text reply.
func (c *Conversation) Send(ctx context.Context, message string) (string, error) {
	a := c.assistant
	log := a.logger

	c.history = append(c.history, genai.NewContentFromText(message, genai.RoleUser))

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.generateWithRetry(ctx, c.history)
		if err != nil {
			return "", err
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("%w: no content generated", assistant.ErrInvalidResponse)
		}
		candidate := resp.Candidates[0]
		if candidate.FinishReason == genai.FinishReasonSafety {
			return "", assistant.ErrContentBlocked
		}

		c.history = append(c.history, candidate.Content)

		calls := functionCalls(candidate.Content)
		if len(calls) == 0 {
			text := contentText(candidate.Content)
			if text == "" {
				return "", fmt.Errorf("%w: empty reply", assistant.ErrInvalidResponse)
			}
			return text, nil
		}

		log.Info("model requested tools", slog.Int("count", len(calls)), slog.Int("round", round+1))

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			result := a.toolbox.Dispatch(ctx, call.Name, call.Args)
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: result,
				},
			})
		}
		c.history = append(c.history, &genai.Content{
			Role:  genai.RoleUser,
			Parts: parts,
		})
	}

	return "", fmt.Errorf("%w: tool loop exceeded %d rounds", assistant.ErrInvalidResponse, maxToolRounds)
}

// generateWithRetry calls the model with exponential backoff and jitter on
// transient failures, in the same shape the rest of our outbound calls use.
func (a *Assistant) generateWithRetry(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	maxRetries := a.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := time.Duration(a.config.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := a.caller.generate(ctx, contents)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		a.logger.Warn("Gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1),
			slog.String("error", err.Error()))

		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
		jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("gemini API call failed after %d attempts: %w", maxRetries+1, lastErr)
}

// functionCalls extracts the function call parts from a content block.
func functionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// contentText concatenates the text parts of a content block.
func contentText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
