package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/cache"
)

const (
	defaultModel       = "gpt-4"
	defaultMaxTokens   = 500
	defaultTemperature = 0.1
	defaultTimeout     = 60 * time.Second

	fallbackNextSteps = "Please provide more specific details about your booking needs."
)

// Config configures a Client
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// RateLimit is requests per second; zero disables pacing
	RateLimit float64
	// BaseURL overrides the API endpoint (tests, proxies)
	BaseURL string
	Cache   cache.Cache
}

// Client talks to an OpenAI-compatible chat completion endpoint. It makes a
// single call per request: the limiter paces calls but nothing is retried.
type Client struct {
	api         *openai.Client
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	cache       cache.Cache
	now         func() time.Time
	logger      zerolog.Logger
}

// NewClient creates a new language model client
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Nop{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 5)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		limiter:     limiter,
		cache:       cfg.Cache,
		now:         time.Now,
		logger:      log.With().Str("component", "llm").Logger(),
	}
}

// IsConfigured returns true if the client has an API key
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.apiKey != "dummy_key_for_testing"
}

// Extract asks the model for structured booking details. Unparseable model
// output is not an error: it degrades to a suggestion-only Extraction.
func (c *Client) Extract(ctx context.Context, request string) (*booking.Extraction, error) {
	if !c.IsConfigured() {
		return nil, apperr.NewServiceUnavailable("OpenAI API key not configured", nil)
	}

	userPrompt := c.buildExtractionPrompt(request)
	key := cache.Key("extract", c.model, userPrompt)
	if cached, ok := c.cache.Get(ctx, key); ok {
		if extraction, err := ParseExtraction(cached); err == nil {
			c.logger.Debug().Msg("extraction served from cache")
			return extraction, nil
		}
	}

	content, err := c.complete(ctx, ExtractionSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	extraction, err := ParseExtraction(content)
	if err != nil {
		c.logger.Warn().Err(err).Str("response", content).Msg("returning model response as a suggestion")
		return extraction, nil
	}

	c.cache.Set(ctx, key, content)
	c.logger.Info().Str("request", request).Msg("processed user request")
	return extraction, nil
}

func (c *Client) buildExtractionPrompt(request string) string {
	now := c.now()
	return fmt.Sprintf("%s\n\nToday is %s.", request, now.Format("Monday, January 2, 2006"))
}

// complete sends one system+user exchange and returns the assistant text
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", apperr.NewServiceUnavailable("rate limiter wait aborted", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", apperr.NewServiceUnavailable("chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.NewServiceUnavailable("empty response from API", nil)
	}

	return resp.Choices[0].Message.Content, nil
}

// ParseExtraction interprets model output as an Extraction. When the output
// holds no usable JSON object it returns the fallback record together with a
// PARSE_FAILURE error; the record is always non-nil.
func ParseExtraction(content string) (*booking.Extraction, error) {
	if findJSONStart(content) < 0 {
		return fallbackExtraction(content), apperr.NewParseFailure("model response holds no JSON object", nil)
	}

	var extraction booking.Extraction
	if err := json.Unmarshal([]byte(extractJSON(content)), &extraction); err != nil {
		return fallbackExtraction(content), apperr.NewParseFailure("model response is not valid JSON", err)
	}

	if extraction.ExtractedDetails == nil {
		extraction.ExtractedDetails = &booking.ExtractedDetails{}
	}
	if extraction.MissingInfo == nil {
		extraction.MissingInfo = []string{}
	}
	return &extraction, nil
}

func fallbackExtraction(content string) *booking.Extraction {
	return &booking.Extraction{
		ExtractedDetails: &booking.ExtractedDetails{},
		MissingInfo:      []string{},
		Suggestions:      booking.NewText(strings.TrimSpace(content)),
		NextSteps:        booking.NewText(fallbackNextSteps),
	}
}
