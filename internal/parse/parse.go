// Package parse extracts structured workout data from a transcript through
// an OpenAI-compatible chat completion API.
package parse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/workout"
)

// Parser converts a transcript into a structured workout.
type Parser interface {
	Parse(ctx context.Context, transcript string) (*workout.Parsed, error)
}

// Client is the LLM-backed Parser.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	APIKey      string
	BaseURL     string // empty for the default endpoint
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewClient creates a Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("parse: api key is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("parse: model is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

// systemPrompt instructs the model to emit only the workout JSON schema.
const systemPrompt = `You extract workout data from Portuguese gym-training voice transcripts.
Reply with a single JSON object and nothing else, using this schema:
{"resistance_exercises":[{"name":"","sets":0,"reps":[],"weights_kg":[],"rest_seconds":null,"perceived_difficulty":null,"exercise_type":"","notes":""}],
"aerobic_exercises":[{"name":"","duration_minutes":0,"distance_km":null,"intensity_level":"","notes":""}],
"body_weight_kg":null,"energy_level":null,"notes":""}
Omit exercises that were not mentioned. Use exercise_type "isometric" for held positions like prancha.`

// Parse sends the transcript for extraction. A response that cannot be
// decoded fails with ferr.ErrMalformed; upstream outages fail with
// ferr.ErrUnavailable.
func (c *Client) Parse(ctx context.Context, transcript string) (*workout.Parsed, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, fmt.Errorf("parse: empty transcript: %w", ferr.ErrBadInput)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("parse: empty completion: %w", ferr.ErrMalformed)
	}

	return Decode(resp.Choices[0].Message.Content)
}

// Decode unmarshals a model response into a Parsed workout. Models
// sometimes wrap the JSON in a markdown fence; that wrapping is stripped.
func Decode(raw string) (*workout.Parsed, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed workout.Parsed
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse: decode response: %v: %w", err, ferr.ErrMalformed)
	}
	return &parsed, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("parse: %v: %w", err, ferr.ErrUnavailable)
		}
	}
	return fmt.Errorf("parse: %v: %w", err, ferr.ErrUnavailable)
}
