// Package bridge connects Keeper to a single room on the platform.
//
// The bridge delivers room events on a channel and exposes the platform's
// action primitives through [Actor]. Everything else in the bot treats the
// room as an event source and an action sink; nothing outside this package
// knows about the wire protocol.
package bridge

import (
	"context"
	"time"
)

// Channel identifies where a chat-like message arrived. Values are bits so
// that a set of allowed channels is a single value.
type Channel int

const (
	// Public is the room's public chat.
	Public Channel = 1 << iota
	// DM is a direct message conversation with the bot.
	DM
	// Whisper is a private in-room whisper.
	Whisper
)

func (c Channel) String() string {
	switch c {
	case Public:
		return "public"
	case DM:
		return "dm"
	case Whisper:
		return "whisper"
	default:
		return "channel(?)"
	}
}

// Has reports whether c, interpreted as a set, contains ch.
func (c Channel) Has(ch Channel) bool {
	return c&ch != 0
}

// User is a room participant.
type User struct {
	// ID is the platform's opaque user identifier.
	ID string
	// Name is the user's display name.
	Name string
}

// Pose is a position and facing inside the room.
type Pose struct {
	X, Y, Z float64
	// Facing is the rotation about the vertical axis in degrees.
	Facing float64
}

// Kind is the type of a room event.
type Kind string

const (
	// Ready indicates the session is established. User is the bot itself.
	Ready Kind = "ready"
	// Join and Leave report roster changes.
	Join  Kind = "join"
	Leave Kind = "leave"
	// Chat is a chat-like message; Channel says which kind.
	Chat Kind = "chat"
	// Move reports a user's new pose.
	Move Kind = "move"
	// Emote reports a user playing an emote.
	Emote Kind = "emote"
	// Reaction reports a user reacting to another.
	Reaction Kind = "reaction"
	// Tip reports a wallet tip between users.
	Tip Kind = "tip"
	// Voice reports a voice state change.
	Voice Kind = "voice"
	// Moderation reports a platform-side moderation action in the room.
	Moderation Kind = "moderation"
	// TransportError reports an error on the connection. The session
	// continues; the client reconnects on its own.
	TransportError Kind = "error"
)

// Event is a single room event. Which fields are populated depends on Kind.
type Event struct {
	Kind    Kind
	User    User
	Channel Channel
	Text    string
	Pose    Pose
	Emote   string
	Amount  int
	Err     error
}

// OutfitItem is one equipped item in a user's outfit.
type OutfitItem struct {
	ID string `json:"id"`
}

// Actor is the set of actions the platform offers on a room.
// Calls resolve when the platform acknowledges the action and reject
// otherwise; the bridge does not retry.
type Actor interface {
	// SendChat sends a message to public chat.
	SendChat(ctx context.Context, text string) error
	// SendDM sends a direct message to a user.
	SendDM(ctx context.Context, userID, text string) error
	// SendWhisper whispers to a user in the room.
	SendWhisper(ctx context.Context, userID, text string) error
	// Teleport moves a user to a pose.
	Teleport(ctx context.Context, userID string, to Pose) error
	// Walk makes the bot walk to a pose.
	Walk(ctx context.Context, to Pose) error
	// PlayEmote plays an emote on a user.
	PlayEmote(ctx context.Context, userID, emoteID string) error
	// Kick removes a user from the room.
	Kick(ctx context.Context, userID string) error
	// Ban bans a user from the room for the given duration.
	Ban(ctx context.Context, userID string, d time.Duration) error
	// Mute mutes a user in the room for the given duration.
	Mute(ctx context.Context, userID string, d time.Duration) error
	// Outfit returns a user's current outfit.
	Outfit(ctx context.Context, userID string) ([]OutfitItem, error)
	// SetOutfit changes the bot's outfit.
	SetOutfit(ctx context.Context, items []OutfitItem) error
	// ColorOutfit changes the color of one part of the bot's outfit.
	ColorOutfit(ctx context.Context, part string, index int) error
	// BuyItem spends from the bot's wallet.
	BuyItem(ctx context.Context, kind string, amount int) error
	// Position returns a user's current pose.
	Position(ctx context.Context, userID string) (Pose, error)
}
