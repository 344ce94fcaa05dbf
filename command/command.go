// Package command implements Keeper's command surface.
//
// Each command is a Spec: a required role, an allowed channel set, and a
// handler. The table is data; authorization reads it without running any
// handler code, and tests can swap handlers freely.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solraven/keeper/ai"
	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/guard"
	"github.com/solraven/keeper/ledger"
	"github.com/solraven/keeper/perms"
	"github.com/solraven/keeper/tasks"
)

// EmoteDef describes one known emote.
type EmoteDef struct {
	// ID is the platform emote identifier.
	ID string
	// Interval is the wait between repetitions in a loop.
	Interval time.Duration
}

// Env is everything a handler may touch. One Env is shared by all
// invocations; it must not be modified after startup.
type Env struct {
	Log    *slog.Logger
	Actor  bridge.Actor
	Roster *bridge.Roster
	Perms  *perms.Registry
	Ledger *ledger.Ledger
	Tasks  *tasks.Registry
	Guard  *guard.Guard
	AI     *ai.Client
	Anchor *Anchor

	// Prefix is the configured command prefix, for help text.
	Prefix string
	// Commands is the command table, for help.
	Commands map[string]*Spec
	// Emotes is the emote table, keyed by lowercase keyword.
	Emotes map[string]EmoteDef
	// Presets is the teleport preset table, keyed by lowercase name.
	Presets map[string]bridge.Pose
	// Texts maps recitation names to file paths.
	Texts map[string]string
	// AIFallback is the reply used when the completion service fails.
	AIFallback string
}

// Invocation is one parsed command invocation. An Invocation and its fields
// must not be retained by any handler.
type Invocation struct {
	// User is the sender.
	User bridge.User
	// Channel is where the invocation arrived.
	Channel bridge.Channel
	// Name is the invoked command name, lowercased, without the prefix.
	Name string
	// Target is the resolved @-mention, if the invocation had one.
	Target bridge.User
	// Args is the whitespace-split arguments after the name, with the
	// target mention removed.
	Args []string
	// Text is everything after the name, untokenized.
	Text string
}

// Targeted reports whether the invocation carried an @-mention.
func (inv *Invocation) Targeted() bool {
	return inv.Target.ID != ""
}

// Func executes a command. A returned error is a user-facing rejection; the
// router reports it to the sender and logs it. Handlers reply on success
// themselves.
type Func func(ctx context.Context, env *Env, inv *Invocation) error

// Spec describes one command.
type Spec struct {
	// Name is the command name, lowercase.
	Name string
	// Role is the minimum role required.
	Role perms.Role
	// Channels is the set of channels the command may be invoked from.
	Channels bridge.Channel
	// Usage is a one-line usage string shown on bad invocations.
	Usage string
	// Fn is the handler.
	Fn Func
}

// Reply answers the sender on the channel the invocation arrived on.
// Send failures are logged, not surfaced; there is nobody left to tell.
func (e *Env) Reply(ctx context.Context, inv *Invocation, f string, args ...any) {
	text := fmt.Sprintf(f, args...)
	var err error
	switch inv.Channel {
	case bridge.DM:
		err = e.Actor.SendDM(ctx, inv.User.ID, text)
	case bridge.Whisper:
		err = e.Actor.SendWhisper(ctx, inv.User.ID, text)
	default:
		err = e.Actor.SendChat(ctx, "@"+inv.User.Name+" "+text)
	}
	if err != nil {
		e.Log.WarnContext(ctx, "reply failed",
			slog.String("to", inv.User.ID),
			slog.String("channel", inv.Channel.String()),
			slog.Any("err", err),
		)
	}
}

// usage is the standard bad-invocation rejection.
func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}
