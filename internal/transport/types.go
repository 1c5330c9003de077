package transport

import "context"

// Destination is an opaque platform-specific identifier for a place a
// notification can be delivered (Telegram: a chat id rendered as a string).
type Destination string

// ChannelDescriptor describes one channel the platform makes available.
// The directory matches Name against category keywords; ID is never inspected.
type ChannelDescriptor struct {
	ID   Destination `json:"id"`
	Name string      `json:"name"`
}

// Sender is the chat-platform boundary.
//
// Implementations must be safe for concurrent use: Send is called from
// multiple pipeline workers at once.
type Sender interface {
	// Channels returns the channels currently available for directory
	// construction. The result is a snapshot; callers must not mutate it.
	Channels(ctx context.Context) ([]ChannelDescriptor, error)

	Send(ctx context.Context, to Destination, text string) error
}
