package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/tbaldin/ferro/internal/ferr"
)

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(ClientOpts{Model: "whisper-large-v3"}); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewClient(ClientOpts{APIKey: "sk-test"}); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := NewClient(ClientOpts{APIKey: "sk-test", Model: "whisper-large-v3"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTranscribe_RejectsBadAudio(t *testing.T) {
	c, err := NewClient(ClientOpts{APIKey: "sk-test", Model: "whisper-large-v3"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := c.Transcribe(context.Background(), nil, "a.ogg"); !errors.Is(err, ferr.ErrBadInput) {
		t.Errorf("empty audio error = %v, want ErrBadInput", err)
	}

	huge := make([]byte, MaxAudioBytes+1)
	if _, err := c.Transcribe(context.Background(), huge, "a.ogg"); !errors.Is(err, ferr.ErrBadInput) {
		t.Errorf("oversized audio error = %v, want ErrBadInput", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{429, ferr.ErrUnavailable},
		{500, ferr.ErrUnavailable},
		{503, ferr.ErrUnavailable},
		{400, ferr.ErrBadInput},
		{413, ferr.ErrBadInput},
		{401, ferr.ErrUnavailable},
	}
	for _, tt := range tests {
		err := classify(&openai.APIError{HTTPStatusCode: tt.status})
		if !errors.Is(err, tt.want) {
			t.Errorf("classify(status %d) = %v, want %v", tt.status, err, tt.want)
		}
	}

	if err := classify(errors.New("dial tcp: refused")); !errors.Is(err, ferr.ErrUnavailable) {
		t.Errorf("network error = %v, want ErrUnavailable", err)
	}
}
