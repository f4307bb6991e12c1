// Package transcribe converts voice-note audio into text through an
// OpenAI-compatible speech API.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tbaldin/ferro/internal/ferr"
)

// MaxAudioBytes caps uploads before they reach the API.
const MaxAudioBytes = 100 << 20

// Transcriber converts one audio message into its transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Client is the Whisper-backed Transcriber.
type Client struct {
	api   *openai.Client
	model string
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	APIKey  string
	BaseURL string // empty for the default endpoint
	Model   string // e.g. "whisper-large-v3"
}

// NewClient creates a Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("transcribe: api key is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("transcribe: model is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: opts.Model}, nil
}

// Transcribe sends the audio for transcription. Empty or oversized audio
// fails with ferr.ErrBadInput; upstream outages and rate limits fail with
// ferr.ErrUnavailable.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio: %w", ferr.ErrBadInput)
	}
	if len(audio) > MaxAudioBytes {
		return "", fmt.Errorf("transcribe: audio exceeds %d bytes: %w", MaxAudioBytes, ferr.ErrBadInput)
	}
	if filename == "" {
		filename = "audio.ogg"
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("transcribe: no speech detected: %w", ferr.ErrBadInput)
	}
	return text, nil
}

// classify maps API failures onto the shared error kinds so callers can
// tell "retry later" from "fix the input".
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("transcribe: %v: %w", err, ferr.ErrUnavailable)
		case apiErr.HTTPStatusCode == 400 || apiErr.HTTPStatusCode == 413:
			return fmt.Errorf("transcribe: %v: %w", err, ferr.ErrBadInput)
		}
	}
	return fmt.Errorf("transcribe: %v: %w", err, ferr.ErrUnavailable)
}
