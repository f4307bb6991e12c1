// Package bot bridges the workout tracker to chat platforms (Discord, Slack).
package bot

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management and message sending/receiving for
// a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform  string    // e.g. "discord", "slack"
	ChannelID string    // platform-specific channel identifier
	UserID    string    // platform-specific user identifier
	UserName  string    // human-readable username
	FirstName string    // optional profile first name
	LastName  string    // optional profile last name
	Text      string    // raw message text
	Audio     []byte    // voice note payload (nil for text messages)
	AudioName string    // original filename of the voice note (e.g. "voice.ogg")
	Timestamp time.Time // when the message was sent
}

// HasAudio reports whether the message carries a voice note.
func (m InboundMessage) HasAudio() bool {
	return len(m.Audio) > 0
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string        // target channel
	Text      string        // message text (platform-native formatting)
	File      *OutboundFile // optional file attachment (exports)
}

// OutboundFile is a file attachment to include with an outbound message.
type OutboundFile struct {
	Name string
	Data []byte
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}
