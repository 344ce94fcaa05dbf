// Package guard enforces frozen positions and corrects movement glitches.
package guard

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/store"
)

const frozenDoc = "frozenUsers"

// Tolerance is the per-axis slack allowed before a frozen user is snapped
// back to their locked pose.
const Tolerance = 0.01

// lastTTL bounds how long a non-frozen user's cached pose is kept without a
// new movement event.
const lastTTL = 10 * time.Minute

// Teleporter moves a user. Satisfied by the bridge client.
type Teleporter interface {
	Teleport(ctx context.Context, userID string, to bridge.Pose) error
}

// Config tunes the anti-glitch branch for non-frozen users.
type Config struct {
	// MaxVertical is the vertical delta beyond which a movement is
	// confirmed with a teleport.
	MaxVertical float64
	// MaxStep is the Euclidean displacement beyond which a movement is
	// confirmed with a teleport.
	MaxStep float64
}

type frozenFile struct {
	Locked map[string]pose `json:"locked"`
}

type pose struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Facing float64 `json:"facing"`
}

// Guard watches movement events. Frozen users are snapped back to their
// locked pose; everyone else gets a confirming teleport when a movement
// jumps too far from their last known pose.
type Guard struct {
	tp  Teleporter
	st  *store.Store
	cfg Config

	mu     sync.Mutex
	frozen map[string]bridge.Pose
	last   cache.Cache[string, bridge.Pose]
}

// Load reads the frozen-position map from the store. A read failure
// degrades to no locks.
func Load(st *store.Store, tp Teleporter, cfg Config) *Guard {
	var doc frozenFile
	if err := st.Load(frozenDoc, &doc); err != nil {
		slog.Error("couldn't load frozen positions; starting empty", slog.Any("err", err))
	}
	g := &Guard{
		tp:     tp,
		st:     st,
		cfg:    cfg,
		frozen: make(map[string]bridge.Pose, len(doc.Locked)),
		last:   cache.NewCache[string, bridge.Pose]().WithTTL(lastTTL),
	}
	for id, p := range doc.Locked {
		g.frozen[id] = bridge.Pose{X: p.X, Y: p.Y, Z: p.Z, Facing: p.Facing}
	}
	return g
}

// HandleMove processes one movement event. The frozen branch and the
// anti-glitch branch are mutually exclusive: a frozen user is only ever
// compared against their lock, never against their movement history.
// It reports whether a teleport was issued.
func (g *Guard) HandleMove(ctx context.Context, userID string, to bridge.Pose) bool {
	g.mu.Lock()
	locked, ok := g.frozen[userID]
	g.mu.Unlock()
	if ok {
		if within(locked, to, Tolerance) {
			return false
		}
		if err := g.tp.Teleport(ctx, userID, locked); err != nil {
			slog.WarnContext(ctx, "freeze correction failed",
				slog.String("user", userID),
				slog.Any("err", err),
			)
		}
		return true
	}

	last, ok := g.last.Get(userID)
	g.last.Set(userID, to, 0)
	if !ok {
		return false
	}
	dy := math.Abs(to.Y - last.Y)
	if dy <= g.cfg.MaxVertical && dist(last, to) <= g.cfg.MaxStep {
		return false
	}
	// Confirm the reported pose rather than reverting it. This keeps the
	// platform's view and ours in sync after a large jump.
	if err := g.tp.Teleport(ctx, userID, to); err != nil {
		slog.WarnContext(ctx, "movement confirmation failed",
			slog.String("user", userID),
			slog.Any("err", err),
		)
	}
	return true
}

// Freeze locks a user at a pose. The lock holds until an explicit Unfreeze;
// it survives the user leaving and the bot restarting.
func (g *Guard) Freeze(userID string, at bridge.Pose) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frozen[userID] = at
	g.persist()
}

// Unfreeze releases a user's lock, reporting false if none existed.
func (g *Guard) Unfreeze(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.frozen[userID]; !ok {
		return false
	}
	delete(g.frozen, userID)
	g.persist()
	return true
}

// Frozen returns a user's locked pose, if any.
func (g *Guard) Frozen(userID string) (bridge.Pose, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.frozen[userID]
	return p, ok
}

// Forget drops a user's cached pose, typically when they leave. Locks are
// deliberately kept.
func (g *Guard) Forget(userID string) {
	g.last.Invalidate(userID)
}

// persist writes the frozen map. Callers must hold g.mu.
func (g *Guard) persist() {
	doc := frozenFile{Locked: make(map[string]pose, len(g.frozen))}
	for id, p := range g.frozen {
		doc.Locked[id] = pose{X: p.X, Y: p.Y, Z: p.Z, Facing: p.Facing}
	}
	if err := g.st.Save(frozenDoc, &doc); err != nil {
		slog.Error("couldn't persist frozen positions", slog.Any("err", err))
	}
}

func within(a, b bridge.Pose, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

func dist(a, b bridge.Pose) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
