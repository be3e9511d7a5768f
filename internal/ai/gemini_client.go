package ai

import (
	"context"
	"errors"
	"time"

	"edu-learning-platform/internal/logger"
	"edu-learning-platform/utils"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// Completion is one LLM answer with its actual token usage.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// LLMClient generates grounded answers. The synthesizer depends on this
// interface; production wiring uses GeminiClient.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	Model() string
}

// GeminiClient wraps the Gemini SDK with a circuit breaker and a
// requests-per-minute limiter. Errors propagate to callers as typed
// provider errors; retry policy belongs to the caller, not this client.
type GeminiClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiClient(apiKey, model, tier string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	// Configure rate limits based on tier
	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &GeminiClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

func (gc *GeminiClient) Model() string { return gc.model }

// Complete sends the prompt and returns the answer with actual token usage.
func (gc *GeminiClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.model),
		attribute.Int("gemini.prompt_chars", len(prompt)),
	)

	// Rate limiter wait
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, utils.WrapError(utils.ErrRateLimit, "llm rate limit wait aborted", err)
	}

	// Circuit breaker execution
	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.2)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, err
		}
		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return nil, utils.WrapError(utils.ErrProvider, "llm temporarily unavailable", err)
		}
		return nil, utils.WrapError(utils.ErrProvider, "llm request failed", err)
	}

	resp := result.(*genai.GenerateContentResponse)
	completion := &Completion{Text: extractText(resp)}
	completion.InputTokens, completion.OutputTokens = extractTokenUsage(resp, prompt)

	span.SetAttributes(
		attribute.Int("gemini.input_tokens", completion.InputTokens),
		attribute.Int("gemini.output_tokens", completion.OutputTokens),
	)
	return completion, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	text := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text += string(t)
				}
			}
		}
	}
	return text
}

// extractTokenUsage reads actual usage from response metadata, estimating at
// ~4 characters per token when the provider omits it.
func extractTokenUsage(resp *genai.GenerateContentResponse, prompt string) (int, int) {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
	}

	input := len(prompt) / 4
	output := len(extractText(resp)) / 4
	if output < 1 {
		output = 1
	}
	return input, output
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
