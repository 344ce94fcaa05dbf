// Package tasks runs Keeper's background emote loops.
//
// The registry owns every loop. At most one loop exists per user at any
// time; starting a new one cancels and replaces the old one. This is the
// core concurrency invariant of the bot.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Emoter plays an emote on a user. Satisfied by the bridge client.
type Emoter interface {
	PlayEmote(ctx context.Context, userID, emoteID string) error
}

// DefaultInterval is the wait between emote repetitions when the emote
// doesn't specify one.
const DefaultInterval = 3 * time.Second

// Registry manages one repeating emote loop per user.
type Registry struct {
	emoter  Emoter
	present func(userID string) bool

	mu    sync.Mutex
	loops map[string]*loop
}

type loop struct {
	emote  string
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a registry playing emotes through emoter. present reports
// whether a user is still in the room; a loop whose user is absent
// terminates itself.
func New(emoter Emoter, present func(userID string) bool) *Registry {
	return &Registry{
		emoter:  emoter,
		present: present,
		loops:   make(map[string]*loop),
	}
}

// Start begins a repeating emote for a user, replacing any loop already
// running for them. Each cycle re-validates presence, plays the emote, and
// waits interval before repeating. The loop self-terminates on the first
// action failure or once the user leaves; there are no retries.
func (r *Registry) Start(ctx context.Context, userID, emoteID string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &loop{emote: emoteID, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if old := r.loops[userID]; old != nil {
		old.cancel()
	}
	r.loops[userID] = l
	r.mu.Unlock()

	go r.run(ctx, l, userID, emoteID, interval)
}

func (r *Registry) run(ctx context.Context, l *loop, userID, emoteID string, interval time.Duration) {
	defer close(l.done)
	defer r.remove(userID, l)
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !r.present(userID) {
			slog.InfoContext(ctx, "emote loop target left",
				slog.String("user", userID),
				slog.String("emote", emoteID),
			)
			return
		}
		if err := r.emoter.PlayEmote(ctx, userID, emoteID); err != nil {
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "emote loop stopped on failure",
					slog.String("user", userID),
					slog.String("emote", emoteID),
					slog.Any("err", err),
				)
			}
			return
		}
		t.Reset(interval)
	}
}

// remove drops the registry entry, but only if it is still ours; the loop
// may already have been replaced by a newer Start.
func (r *Registry) remove(userID string, l *loop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loops[userID] == l {
		delete(r.loops, userID)
	}
}

// Stop cancels a user's loop, reporting false if none was active.
func (r *Registry) Stop(userID string) bool {
	r.mu.Lock()
	l := r.loops[userID]
	delete(r.loops, userID)
	r.mu.Unlock()
	if l == nil {
		return false
	}
	l.cancel()
	<-l.done
	return true
}

// Active returns the emote a user is looping, if any.
func (r *Registry) Active(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.loops[userID]
	if l == nil {
		return "", false
	}
	return l.emote, true
}

// Len returns the number of running loops.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loops)
}

// StopAll cancels every loop, typically at shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	ls := make([]*loop, 0, len(r.loops))
	for id, l := range r.loops {
		ls = append(ls, l)
		delete(r.loops, id)
	}
	r.mu.Unlock()
	for _, l := range ls {
		l.cancel()
		<-l.done
	}
}
