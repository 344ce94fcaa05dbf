// Package route decides what happens to each chat-like message.
//
// A message passes through a fixed pipeline: sender screening, the bad-word
// filter, bare emote keywords, then prefix commands. Authorization checks
// the channel before the role, always; a command sent from the wrong
// channel is rejected the same way for everyone, leaking nothing about who
// holds which role.
package route

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/command"
	"github.com/solraven/keeper/metrics"
	"github.com/solraven/keeper/perms"
	"github.com/solraven/keeper/syncmap"
)

// Roles answers role lookups. Satisfied by the permission registry.
type Roles interface {
	RoleOf(id string) perms.Role
}

// Records answers sender and content screening. Satisfied by the ledger.
type Records interface {
	IsBanned(id string) bool
	IsMuted(id string) bool
	Contains(text string) bool
}

// Verdict is the outcome of authorizing one invocation.
type Verdict int

const (
	// Allow lets the command run.
	Allow Verdict = iota
	// WrongChannel rejects before any role is consulted.
	WrongChannel
	// InsufficientRole rejects a sender below the command's bar.
	InsufficientRole
)

// Router dispatches chat-like messages to commands.
type Router struct {
	// SelfID is the bot's own user id. Its messages are never dispatched.
	SelfID string
	// Env is the shared handler environment.
	Env *command.Env
	// Roles and Records screen senders.
	Roles   Roles
	Records Records
	// Rate bounds how fast any one user may run commands. Zero disables
	// limiting.
	Rate rate.Limit
	// Burst is the per-user burst when limiting.
	Burst int
	// Metrics observers are optional; nil observers count nothing.
	Metrics metrics.Metrics

	limits syncmap.Map[string, *userRate]
}

// userRate is one sender's command budget. warned records whether the
// current over-limit streak has been answered, so a flood draws exactly one
// reply rather than one per message.
type userRate struct {
	mu     sync.Mutex
	lim    *rate.Limiter
	warned bool
}

func (r *Router) log() *slog.Logger {
	if r.Env != nil && r.Env.Log != nil {
		return r.Env.Log
	}
	return slog.Default()
}

func (r *Router) count(o metrics.Observer, labels ...string) {
	if o == nil {
		return
	}
	o.Observe(1, labels...)
}

// allowRate reports whether the sender is within their command budget, and
// on the first refusal of a streak, that they should be told so.
func (r *Router) allowRate(id string) (ok, warn bool) {
	if r.Rate == 0 {
		return true, false
	}
	u, have := r.limits.Load(id)
	if !have {
		u, _ = r.limits.LoadOrStore(id, &userRate{lim: rate.NewLimiter(r.Rate, r.Burst)})
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.lim.Allow() {
		u.warned = false
		return true, false
	}
	warn = !u.warned
	u.warned = true
	return false, warn
}

// Authorize checks one command against a sender and channel. The channel
// check runs strictly first; a sender in the wrong channel never has their
// role consulted.
func (r *Router) Authorize(s *command.Spec, userID string, ch bridge.Channel) Verdict {
	if !s.Channels.Has(ch) {
		return WrongChannel
	}
	if r.Roles.RoleOf(userID) < s.Role {
		return InsufficientRole
	}
	return Allow
}

// HandleChat processes one chat-like event through the full pipeline.
func (r *Router) HandleChat(ctx context.Context, ev bridge.Event) {
	if ev.User.ID == r.SelfID {
		return
	}
	switch {
	case r.Records.IsBanned(ev.User.ID):
		r.count(r.Metrics.DenialCount, "banned")
		return
	case r.Records.IsMuted(ev.User.ID):
		r.count(r.Metrics.DenialCount, "muted")
		return
	}
	if r.Records.Contains(ev.Text) {
		r.count(r.Metrics.BadWordCount)
		inv := &command.Invocation{User: ev.User, Channel: ev.Channel}
		r.Env.Reply(ctx, inv, "watch your language, %s.", ev.User.Name)
		return
	}
	if r.bareEmote(ctx, ev) {
		return
	}
	if !strings.HasPrefix(ev.Text, r.Env.Prefix) {
		return
	}
	body := strings.TrimPrefix(ev.Text, r.Env.Prefix)
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	inv := &command.Invocation{
		User:    ev.User,
		Channel: ev.Channel,
		Name:    name,
		Text:    strings.TrimSpace(strings.TrimPrefix(body, fields[0])),
	}
	for _, f := range fields[1:] {
		if m, ok := strings.CutPrefix(f, "@"); ok && !inv.Targeted() {
			u, ok := r.Env.Roster.ByName(m)
			if !ok {
				r.Env.Reply(ctx, inv, "I can't see %s here.", m)
				return
			}
			inv.Target = u
			continue
		}
		inv.Args = append(inv.Args, f)
	}
	s := r.Env.Commands[name]
	if s == nil {
		r.count(r.Metrics.DenialCount, "unknown")
		r.Env.Reply(ctx, inv, "I don't know that command. Try %shelp.", r.Env.Prefix)
		return
	}
	if ok, warn := r.allowRate(ev.User.ID); !ok {
		r.count(r.Metrics.DenialCount, "ratelimited")
		if warn {
			r.Env.Reply(ctx, inv, "easy, %s. give it a moment.", ev.User.Name)
		}
		r.log().DebugContext(ctx, "rate limited",
			slog.String("user", ev.User.ID),
			slog.String("command", name),
		)
		return
	}
	switch r.Authorize(s, ev.User.ID, ev.Channel) {
	case WrongChannel:
		r.count(r.Metrics.DenialCount, "channel")
		r.Env.Reply(ctx, inv, "that command doesn't work here.")
		return
	case InsufficientRole:
		r.count(r.Metrics.DenialCount, "role")
		r.Env.Reply(ctx, inv, "you can't do that.")
		return
	}
	r.count(r.Metrics.CommandCount, name)
	if err := s.Fn(ctx, r.Env, inv); err != nil {
		r.Env.Reply(ctx, inv, "%s", err)
		r.log().InfoContext(ctx, "command rejected",
			slog.String("user", ev.User.ID),
			slog.String("command", name),
			slog.String("reason", err.Error()),
		)
	}
}

// bareEmote handles emote keywords typed without the prefix: "wave" starts
// the wave loop on the sender, "wave @user" on someone else. No role beyond
// basic is required on either form; emoting is meant to be frictionless.
// It reports whether the message was consumed.
func (r *Router) bareEmote(ctx context.Context, ev bridge.Event) bool {
	fields := strings.Fields(ev.Text)
	if len(fields) == 0 || len(fields) > 2 {
		return false
	}
	def, ok := r.Env.Emotes[strings.ToLower(fields[0])]
	if !ok {
		return false
	}
	who := ev.User
	if len(fields) == 2 {
		m, ok := strings.CutPrefix(fields[1], "@")
		if !ok {
			return false
		}
		u, ok := r.Env.Roster.ByName(m)
		if !ok {
			inv := &command.Invocation{User: ev.User, Channel: ev.Channel}
			r.Env.Reply(ctx, inv, "I can't see %s here.", m)
			return true
		}
		who = u
	}
	r.Env.Tasks.Start(ctx, who.ID, def.ID, def.Interval)
	r.log().InfoContext(ctx, "bare emote loop",
		slog.String("by", ev.User.ID),
		slog.String("user", who.ID),
		slog.String("emote", def.ID),
	)
	return true
}
