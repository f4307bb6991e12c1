package bot

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/tbaldin/ferro/internal/export"
	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/models"
	"github.com/tbaldin/ferro/internal/session"
	"github.com/tbaldin/ferro/internal/users"
	"github.com/tbaldin/ferro/internal/workout"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openBotTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Exercise{},
		&models.WorkoutSession{},
		&models.WorkoutExercise{},
		&models.AerobicExercise{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	seed := []models.User{
		{UserID: "athlete", Username: "athlete", IsActive: true},
		{UserID: "admin", Username: "admin", IsAdmin: true, IsActive: true},
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}
	return db
}

// stubTranscriber returns a canned transcript or error.
type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return s.text, s.err
}

// stubParser returns a canned parsed workout or error.
type stubParser struct {
	parsed *workout.Parsed
	err    error
}

func (s stubParser) Parse(ctx context.Context, transcript string) (*workout.Parsed, error) {
	return s.parsed, s.err
}

type routerEnv struct {
	db       *gorm.DB
	adapter  *MockAdapter
	router   *Router
	sessions *session.Manager
}

func newRouterEnv(t *testing.T, tr stubTranscriber, pr stubParser) *routerEnv {
	t.Helper()
	db := openBotTestDB(t)

	sessions, err := session.NewManager(session.ManagerOpts{DB: db})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	workouts, err := workout.NewService(workout.ServiceOpts{DB: db})
	if err != nil {
		t.Fatalf("new workout service: %v", err)
	}
	userSvc, err := users.NewService(db)
	if err != nil {
		t.Fatalf("new users service: %v", err)
	}
	exporter, err := export.NewService(db)
	if err != nil {
		t.Fatalf("new export service: %v", err)
	}

	cmdHandler, err := NewCommandHandler(CommandHandlerOpts{
		Sessions: sessions,
		Workouts: workouts,
		Users:    userSvc,
		Exporter: exporter,
	})
	if err != nil {
		t.Fatalf("new command handler: %v", err)
	}

	adapter := NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock: %v", err)
	}

	router, err := NewRouter(RouterOpts{
		Sessions:    sessions,
		Workouts:    workouts,
		Users:       userSvc,
		Transcriber: tr,
		Parser:      pr,
		CmdHandler:  cmdHandler,
		Adapter:     adapter,
		BotUserID:   "ferro-bot",
		LLMModel:    "gpt-4o-mini",
		Out:         &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return &routerEnv{db: db, adapter: adapter, router: router, sessions: sessions}
}

func voiceMessage(userID string) InboundMessage {
	return InboundMessage{
		Platform:  "mock",
		ChannelID: "ch1",
		UserID:    userID,
		UserName:  userID,
		Audio:     []byte("oggdata"),
		AudioName: "note.ogg",
	}
}

func TestRouter_IgnoresSelfMessages(t *testing.T) {
	env := newRouterEnv(t, stubTranscriber{}, stubParser{})

	env.router.Handle(context.Background(), InboundMessage{
		ChannelID: "ch1",
		UserID:    "ferro-bot",
		Text:      "/help",
	})

	if n := env.adapter.SentCount(); n != 0 {
		t.Errorf("SentCount = %d, want 0", n)
	}
}

func TestRouter_RefusesUnauthorized(t *testing.T) {
	env := newRouterEnv(t, stubTranscriber{}, stubParser{})

	env.router.Handle(context.Background(), InboundMessage{
		ChannelID: "ch1",
		UserID:    "stranger",
		Text:      "/status",
	})

	sent, ok := env.adapter.LastSent()
	if !ok {
		t.Fatal("expected a refusal reply")
	}
	if sent.Text != "You are not authorized to use this bot." {
		t.Errorf("reply = %q, want refusal", sent.Text)
	}
}

func TestRouter_PlainTextGetsUsageHint(t *testing.T) {
	env := newRouterEnv(t, stubTranscriber{}, stubParser{})

	env.router.Handle(context.Background(), InboundMessage{
		ChannelID: "ch1",
		UserID:    "athlete",
		Text:      "hello there",
	})

	sent, ok := env.adapter.LastSent()
	if !ok {
		t.Fatal("expected a reply")
	}
	if !strings.Contains(sent.Text, "voice note") {
		t.Errorf("reply = %q, want usage hint", sent.Text)
	}
}

func TestRouter_VoicePipelineMergesWorkout(t *testing.T) {
	parsed := &workout.Parsed{
		Resistance: []workout.ResistanceEntry{
			{Name: "supino reto", Reps: []int{10, 8, 8}, WeightsKg: []float64{60, 70, 70}},
		},
	}
	env := newRouterEnv(t,
		stubTranscriber{text: "fiz supino reto tres series"},
		stubParser{parsed: parsed},
	)

	env.router.Handle(context.Background(), voiceMessage("athlete"))

	sent, ok := env.adapter.LastSent()
	if !ok {
		t.Fatal("expected a reply")
	}
	if !strings.Contains(sent.Text, "Started a new session") {
		t.Errorf("reply = %q, want new-session confirmation", sent.Text)
	}
	if !strings.Contains(sent.Text, "supino reto") {
		t.Errorf("reply = %q, want exercise name", sent.Text)
	}

	sess, err := env.sessions.Last("athlete")
	if err != nil || sess == nil {
		t.Fatalf("Last = %v, %v; want a session", sess, err)
	}
	if sess.AudioCount != 1 {
		t.Errorf("AudioCount = %d, want 1", sess.AudioCount)
	}
	if !strings.Contains(sess.Transcription, "fiz supino reto tres series") {
		t.Errorf("Transcript = %q, want raw transcript recorded", sess.Transcription)
	}

	var count int64
	if err := env.db.Model(&models.WorkoutExercise{}).Where("session_id = ?", sess.ID).Count(&count).Error; err != nil {
		t.Fatalf("count exercises: %v", err)
	}
	if count != 1 {
		t.Errorf("exercise rows = %d, want 1", count)
	}
}

func TestRouter_SecondVoiceReusesSession(t *testing.T) {
	parsed := &workout.Parsed{
		Resistance: []workout.ResistanceEntry{
			{Name: "remada", Reps: []int{12}, WeightsKg: []float64{50}},
		},
	}
	env := newRouterEnv(t, stubTranscriber{text: "remada"}, stubParser{parsed: parsed})

	env.router.Handle(context.Background(), voiceMessage("athlete"))
	env.router.Handle(context.Background(), voiceMessage("athlete"))

	sent, _ := env.adapter.LastSent()
	if !strings.Contains(sent.Text, "Added to your current session") {
		t.Errorf("reply = %q, want same-session confirmation", sent.Text)
	}

	var count int64
	if err := env.db.Model(&models.WorkoutSession{}).Where("user_id = ?", "athlete").Count(&count).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Errorf("sessions = %d, want 1", count)
	}
}

func TestRouter_TranscribeFailure(t *testing.T) {
	env := newRouterEnv(t,
		stubTranscriber{err: ferr.ErrUnavailable},
		stubParser{},
	)

	env.router.Handle(context.Background(), voiceMessage("athlete"))

	sent, ok := env.adapter.LastSent()
	if !ok {
		t.Fatal("expected a reply")
	}
	if !strings.Contains(sent.Text, "transcription service is unavailable") {
		t.Errorf("reply = %q, want unavailable message", sent.Text)
	}

	// No session should exist: transcription failed before session lookup.
	sess, err := env.sessions.Last("athlete")
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if sess != nil {
		t.Error("expected no session after transcription failure")
	}
}

func TestRouter_ParseFailureStillSavesTranscript(t *testing.T) {
	env := newRouterEnv(t,
		stubTranscriber{text: "treino confuso"},
		stubParser{err: ferr.ErrMalformed},
	)

	env.router.Handle(context.Background(), voiceMessage("athlete"))

	sent, _ := env.adapter.LastSent()
	if !strings.Contains(sent.Text, "transcript was saved") {
		t.Errorf("reply = %q, want saved-transcript message", sent.Text)
	}

	sess, err := env.sessions.Last("athlete")
	if err != nil || sess == nil {
		t.Fatalf("Last = %v, %v; want a session", sess, err)
	}
	if !strings.Contains(sess.Transcription, "treino confuso") {
		t.Errorf("Transcript = %q, want transcript recorded despite parse failure", sess.Transcription)
	}
}

func TestRouter_EmptyParseSavesTranscript(t *testing.T) {
	env := newRouterEnv(t,
		stubTranscriber{text: "hoje nao treinei"},
		stubParser{parsed: &workout.Parsed{}},
	)

	env.router.Handle(context.Background(), voiceMessage("athlete"))

	sent, _ := env.adapter.LastSent()
	if !strings.Contains(sent.Text, "could not find any exercises") {
		t.Errorf("reply = %q, want no-exercises message", sent.Text)
	}
}

func TestRouter_InvalidWorkoutRejected(t *testing.T) {
	parsed := &workout.Parsed{
		Resistance: []workout.ResistanceEntry{
			{Name: "supino", Reps: []int{10, 8}, WeightsKg: []float64{60}},
		},
	}
	env := newRouterEnv(t, stubTranscriber{text: "supino"}, stubParser{parsed: parsed})

	env.router.Handle(context.Background(), voiceMessage("athlete"))

	sent, _ := env.adapter.LastSent()
	if !strings.Contains(sent.Text, "did not add up") {
		t.Errorf("reply = %q, want validation message", sent.Text)
	}
}

func TestRouter_CommandDispatch(t *testing.T) {
	env := newRouterEnv(t, stubTranscriber{}, stubParser{})

	env.router.Handle(context.Background(), InboundMessage{
		ChannelID: "ch1",
		UserID:    "athlete",
		Text:      "/help",
	})

	sent, ok := env.adapter.LastSent()
	if !ok {
		t.Fatal("expected a reply")
	}
	if !strings.Contains(sent.Text, "/status") {
		t.Errorf("reply = %q, want help text", sent.Text)
	}
}

func TestRouter_ThrottlesRapidVoiceNotes(t *testing.T) {
	parsed := &workout.Parsed{
		Resistance: []workout.ResistanceEntry{
			{Name: "supino", Reps: []int{10}, WeightsKg: []float64{60}},
		},
	}
	env := newRouterEnv(t,
		stubTranscriber{text: "supino uma serie de dez"},
		stubParser{parsed: parsed},
	)
	env.router.voiceLimiter = newRateLimiter(1, time.Minute)

	env.router.Handle(context.Background(), voiceMessage("athlete"))
	env.router.Handle(context.Background(), voiceMessage("athlete"))

	sent, ok := env.adapter.LastSent()
	if !ok {
		t.Fatal("expected a reply")
	}
	if !strings.Contains(sent.Text, "too fast") {
		t.Errorf("reply = %q, want throttle message", sent.Text)
	}

	var count int64
	if err := env.db.Model(&models.WorkoutSession{}).Count(&count).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Errorf("sessions = %d, want 1 (second voice note dropped)", count)
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q, want unchanged", got)
	}
	// A cut at byte 5 lands inside the two-byte "ã" and must back up.
	got := truncate("flexão e prancha", 5)
	if got != "flex..." {
		t.Errorf("truncate = %q, want %q", got, "flex...")
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
}
