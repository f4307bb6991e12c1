package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/parse"
	"github.com/tbaldin/ferro/internal/session"
	"github.com/tbaldin/ferro/internal/transcribe"
	"github.com/tbaldin/ferro/internal/users"
	"github.com/tbaldin/ferro/internal/workout"
)

// commandPrefix is the prefix that triggers command handling.
const commandPrefix = "/"

// Router classifies inbound chat messages and routes them to the appropriate
// handler: the voice pipeline for audio messages, the command handler for
// "/" commands, or ignore for bot/unauthorized messages.
type Router struct {
	sessions    *session.Manager
	workouts    *workout.Service
	users       *users.Service
	transcriber transcribe.Transcriber
	parser      parse.Parser
	cmdHandler  *CommandHandler
	adapter     Adapter
	botUserID   string // the bot's own user ID (to filter self-messages)
	llmModel    string // recorded on sessions as the model used for parsing
	out         io.Writer

	voiceLimiter *rateLimiter
	cmdLimiter   *rateLimiter
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Sessions    *session.Manager
	Workouts    *workout.Service
	Users       *users.Service
	Transcriber transcribe.Transcriber
	Parser      parse.Parser
	CmdHandler  *CommandHandler
	Adapter     Adapter
	BotUserID   string    // bot's user ID for self-message filtering
	LLMModel    string    // model name recorded on session metadata
	Out         io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("bot: router: session manager is required")
	}
	if opts.Workouts == nil {
		return nil, fmt.Errorf("bot: router: workout service is required")
	}
	if opts.Users == nil {
		return nil, fmt.Errorf("bot: router: users service is required")
	}
	if opts.Transcriber == nil {
		return nil, fmt.Errorf("bot: router: transcriber is required")
	}
	if opts.Parser == nil {
		return nil, fmt.Errorf("bot: router: parser is required")
	}
	if opts.CmdHandler == nil {
		return nil, fmt.Errorf("bot: router: command handler is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: router: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		sessions:    opts.Sessions,
		workouts:    opts.Workouts,
		users:       opts.Users,
		transcriber: opts.Transcriber,
		parser:      opts.Parser,
		cmdHandler:  opts.CmdHandler,
		adapter:     opts.Adapter,
		botUserID:   opts.BotUserID,
		llmModel:    opts.LLMModel,
		out:         out,

		voiceLimiter: newRateLimiter(voiceLimit, limiterWindow),
		cmdLimiter:   newRateLimiter(commandLimit, limiterWindow),
	}, nil
}

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Bot self-message → ignore
//  2. Unauthorized user → refusal reply
//  3. Voice note → transcription pipeline
//  4. Command prefix "/" → command handler
//  5. Plain text → usage hint
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	if r.isSelfMessage(msg) {
		return
	}

	text := strings.TrimSpace(msg.Text)
	fmt.Fprintf(r.out, "bot: router: recv [ch=%s user=%s audio=%t] %q\n",
		msg.ChannelID, msg.UserName, msg.HasAudio(), truncate(text, 80))

	if !r.users.Authorized(msg.UserID) {
		fmt.Fprintf(r.out, "bot: router: → unauthorized %s\n", msg.UserID)
		r.reply(ctx, msg.ChannelID, "You are not authorized to use this bot.")
		return
	}
	r.users.Touch(msg.UserID, msg.UserName, msg.FirstName, msg.LastName)

	if msg.HasAudio() {
		if ok, retryIn := r.voiceLimiter.allow(msg.UserID); !ok {
			fmt.Fprintf(r.out, "bot: router: → throttled voice from %s\n", msg.UserID)
			r.reply(ctx, msg.ChannelID, throttleText(retryIn))
			return
		}
		fmt.Fprintf(r.out, "bot: router: → voice pipeline\n")
		r.handleVoice(ctx, msg)
		return
	}

	if strings.HasPrefix(text, commandPrefix) {
		if ok, retryIn := r.cmdLimiter.allow(msg.UserID); !ok {
			fmt.Fprintf(r.out, "bot: router: → throttled command from %s\n", msg.UserID)
			r.reply(ctx, msg.ChannelID, throttleText(retryIn))
			return
		}
		fmt.Fprintf(r.out, "bot: router: → command\n")
		r.handleCommand(ctx, msg, text)
		return
	}

	r.reply(ctx, msg.ChannelID, "Send a voice note describing your workout, or /help for commands.")
}

// handleVoice runs the full voice pipeline: transcribe the audio, attach the
// transcript to the user's session, parse exercises out of it, and merge them
// into the session's workout.
func (r *Router) handleVoice(ctx context.Context, msg InboundMessage) {
	start := time.Now()

	transcript, err := r.transcriber.Transcribe(ctx, msg.Audio, msg.AudioName)
	if err != nil {
		log.Printf("bot: router: transcribe for %s: %v", msg.UserID, err)
		r.reply(ctx, msg.ChannelID, transcribeErrorText(err))
		return
	}

	sess, created, err := r.sessions.GetOrCreate(msg.UserID)
	if err != nil {
		log.Printf("bot: router: session for %s: %v", msg.UserID, err)
		r.reply(ctx, msg.ChannelID, "Something went wrong saving your workout. Try again.")
		return
	}

	parsed, parseErr := r.parser.Parse(ctx, transcript)

	// The transcript is recorded even when parsing fails, so the audio is
	// never silently lost.
	elapsed := time.Since(start).Seconds()
	if _, err := r.sessions.UpdateMetadata(sess.ID, transcript, elapsed, r.llmModel, nil); err != nil {
		log.Printf("bot: router: update metadata for session %d: %v", sess.ID, err)
	}

	if parseErr != nil {
		log.Printf("bot: router: parse for %s: %v", msg.UserID, parseErr)
		r.reply(ctx, msg.ChannelID, parseErrorText(parseErr))
		return
	}

	if parsed.Empty() {
		r.reply(ctx, msg.ChannelID, "I heard you, but could not find any exercises in that note. The transcript was saved to your session.")
		return
	}

	if err := workout.Validate(parsed); err != nil {
		log.Printf("bot: router: validate for %s: %v", msg.UserID, err)
		r.reply(ctx, msg.ChannelID, fmt.Sprintf("That workout did not add up: %v", err))
		return
	}

	if _, err := r.workouts.AddExercises(sess.ID, parsed, msg.UserID); err != nil {
		log.Printf("bot: router: merge for %s: %v", msg.UserID, err)
		r.reply(ctx, msg.ChannelID, "Something went wrong saving your workout. Try again.")
		return
	}

	r.reply(ctx, msg.ChannelID, formatMergeReply(parsed, !created))
}

// handleCommand dispatches a "/" command and sends the response.
func (r *Router) handleCommand(ctx context.Context, msg InboundMessage, text string) {
	response, file := r.cmdHandler.Execute(msg.UserID, text)
	if err := r.adapter.Send(ctx, OutboundMessage{
		ChannelID: msg.ChannelID,
		Text:      response,
		File:      file,
	}); err != nil {
		log.Printf("bot: router: send command response: %v", err)
	}
}

// reply sends a plain text response to the channel.
func (r *Router) reply(ctx context.Context, channelID, text string) {
	if err := r.adapter.Send(ctx, OutboundMessage{
		ChannelID: channelID,
		Text:      text,
	}); err != nil {
		log.Printf("bot: router: send reply: %v", err)
	}
}

// isSelfMessage returns true if the message is from the bot itself.
func (r *Router) isSelfMessage(msg InboundMessage) bool {
	return r.botUserID != "" && msg.UserID == r.botUserID
}

// transcribeErrorText maps a transcription error to a user-facing message.
func transcribeErrorText(err error) string {
	switch {
	case errors.Is(err, ferr.ErrUnavailable):
		return "The transcription service is unavailable right now. Try again in a minute."
	case errors.Is(err, ferr.ErrBadInput):
		return "I could not read that audio. Try recording it again."
	default:
		return "Something went wrong processing your voice note."
	}
}

// SweepLimiters drops idle users from the rate limiter state.
func (r *Router) SweepLimiters() {
	n := r.voiceLimiter.sweep(limiterMaxIdle) + r.cmdLimiter.sweep(limiterMaxIdle)
	if n > 0 {
		log.Printf("bot: router: pruned %d idle rate limiter entries", n)
	}
}

// throttleText tells a rate-limited user when to come back.
func throttleText(retryIn time.Duration) string {
	secs := int(retryIn.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("You are sending messages too fast. Try again in %ds.", secs)
}

// parseErrorText maps a parse error to a user-facing message.
func parseErrorText(err error) string {
	switch {
	case errors.Is(err, ferr.ErrUnavailable):
		return "The workout parser is unavailable right now. Your transcript was saved; try again in a minute."
	case errors.Is(err, ferr.ErrMalformed):
		return "I could not make sense of that note. The transcript was saved to your session."
	default:
		return "Something went wrong understanding your workout."
	}
}

// truncate returns s truncated to at most maxLen bytes with "..." appended
// if needed. The cut never lands inside a multi-byte rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
