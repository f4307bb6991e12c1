package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/tbaldin/ferro/internal/bot"
)

// mockSession implements the session interface for testing.
type mockSession struct {
	mu       sync.Mutex
	opened   bool
	closed   bool
	handlers []interface{}
	sent     []*discordgo.MessageSend
	sendErr  error
	sendErrN int // fail this many sends before succeeding
}

func (m *mockSession) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	return nil
}

func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErrN > 0 {
		m.sendErrN--
		return nil, m.sendErr
	}
	m.sent = append(m.sent, data)
	return &discordgo.Message{ID: "1"}, nil
}

func (m *mockSession) AddHandler(handler interface{}) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	return func() {}
}

func (m *mockSession) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newConnectedAdapter(t *testing.T, mock *mockSession) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{Session: mock, ChannelID: "default-ch"})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := New(AdapterOpts{Session: &mockSession{}}); err != nil {
		t.Errorf("injected session should not need a token: %v", err)
	}
}

func TestConnect_OpensGateway(t *testing.T) {
	mock := &mockSession{}
	a := newConnectedAdapter(t, mock)

	if !mock.opened {
		t.Error("Connect should open the gateway session")
	}
	// Ready, Disconnect, Resumed handlers.
	if len(mock.handlers) != 3 {
		t.Errorf("handlers = %d, want 3", len(mock.handlers))
	}

	// Connect is idempotent.
	if err := a.Connect(context.Background()); err != nil {
		t.Errorf("second connect: %v", err)
	}
}

func TestSend_TextAndFile(t *testing.T) {
	mock := &mockSession{}
	a := newConnectedAdapter(t, mock)

	err := a.Send(context.Background(), bot.OutboundMessage{
		ChannelID: "ch1",
		Text:      "hello",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	err = a.Send(context.Background(), bot.OutboundMessage{
		Text: "your export",
		File: &bot.OutboundFile{Name: "workouts.csv", Data: []byte("date,exercise\n")},
	})
	if err != nil {
		t.Fatalf("send with file: %v", err)
	}

	if mock.sentCount() != 2 {
		t.Fatalf("sent = %d, want 2", mock.sentCount())
	}
	if mock.sent[0].Content != "hello" {
		t.Errorf("Content = %q, want %q", mock.sent[0].Content, "hello")
	}
	if len(mock.sent[1].Files) != 1 || mock.sent[1].Files[0].Name != "workouts.csv" {
		t.Errorf("Files = %+v, want the csv attachment", mock.sent[1].Files)
	}
}

func TestSend_RequiresChannel(t *testing.T) {
	mock := &mockSession{}
	a, err := New(AdapterOpts{Session: mock})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := a.Send(context.Background(), bot.OutboundMessage{Text: "hi"}); err == nil {
		t.Error("expected error with no channel configured")
	}
}

func TestSend_RetriesRateLimit(t *testing.T) {
	mock := &mockSession{
		sendErr: &discordgo.RESTError{
			Response: &http.Response{StatusCode: 429},
		},
		sendErrN: 2,
	}
	a := newConnectedAdapter(t, mock)
	a.baseBackoff = time.Millisecond
	a.maxBackoff = 2 * time.Millisecond

	err := a.Send(context.Background(), bot.OutboundMessage{ChannelID: "ch1", Text: "x"})
	if err != nil {
		t.Fatalf("send should succeed after retries: %v", err)
	}
	if mock.sentCount() != 1 {
		t.Errorf("sent = %d, want 1", mock.sentCount())
	}
}

func TestHandleMessage_FiltersBots(t *testing.T) {
	mock := &mockSession{}
	a := newConnectedAdapter(t, mock)
	a.SetBotUserID("bot-id")

	if _, err := a.Listen(context.Background()); err != nil {
		t.Fatalf("listen: %v", err)
	}

	a.handleMessage(context.Background(), &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "100",
			ChannelID: "ch1",
			Author:    &discordgo.User{ID: "bot-id", Username: "ferro"},
			Content:   "self",
		},
	})
	a.handleMessage(context.Background(), &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "101",
			ChannelID: "ch1",
			Author:    &discordgo.User{ID: "other-bot", Username: "other", Bot: true},
			Content:   "bot",
		},
	})
	a.handleMessage(context.Background(), &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "102",
			ChannelID: "ch1",
			Author:    &discordgo.User{ID: "u1", Username: "athlete", GlobalName: "Athlete"},
			Content:   "/status",
		},
	})

	select {
	case got := <-a.inbound:
		if got.UserID != "u1" || got.Text != "/status" {
			t.Errorf("inbound = %+v, want the human message", got)
		}
		if got.Platform != "discord" || got.FirstName != "Athlete" {
			t.Errorf("inbound = %+v, want platform and display name set", got)
		}
	default:
		t.Fatal("expected one inbound message")
	}
	select {
	case got := <-a.inbound:
		t.Fatalf("unexpected extra inbound message: %+v", got)
	default:
	}
}

func TestHandleMessage_DownloadsAudioAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oggbytes"))
	}))
	defer srv.Close()

	mock := &mockSession{}
	a, err := New(AdapterOpts{Session: mock, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := a.Listen(context.Background()); err != nil {
		t.Fatalf("listen: %v", err)
	}

	a.handleMessage(context.Background(), &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "103",
			ChannelID: "ch1",
			Author:    &discordgo.User{ID: "u1", Username: "athlete"},
			Attachments: []*discordgo.MessageAttachment{
				{ID: "a1", URL: srv.URL, Filename: "note.ogg", ContentType: "audio/ogg"},
			},
		},
	})

	got := <-a.inbound
	if string(got.Audio) != "oggbytes" || got.AudioName != "note.ogg" {
		t.Errorf("inbound audio = %q (%q), want downloaded bytes", got.Audio, got.AudioName)
	}
}

func TestFirstAudioAttachment(t *testing.T) {
	atts := []*discordgo.MessageAttachment{
		nil,
		{ID: "1", ContentType: "image/png"},
		{ID: "2", ContentType: "video/webm"},
		{ID: "3", ContentType: "audio/ogg"},
	}
	if got := firstAudioAttachment(atts); got == nil || got.ID != "2" {
		t.Errorf("firstAudioAttachment = %+v, want the first audio-or-video attachment", got)
	}
	if got := firstAudioAttachment(atts[:2]); got != nil {
		t.Errorf("firstAudioAttachment = %+v, want nil", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	mock := &mockSession{}
	a := newConnectedAdapter(t, mock)

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !mock.closed {
		t.Error("Close should close the gateway session")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if err := a.Connect(context.Background()); err == nil {
		t.Error("connect after close should fail")
	}
}
