package command

import (
	"log/slog"
	"sync"

	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/store"
)

const anchorDoc = "botLocation"

type anchorFile struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Facing float64 `json:"facing"`
}

// Anchor is the bot's persisted idle location. It is read at connect time to
// re-place the bot and mutated only by the sethere command.
type Anchor struct {
	mu   sync.Mutex
	st   *store.Store
	pose bridge.Pose
}

// LoadAnchor reads the anchor pose, degrading to the origin on a read error.
func LoadAnchor(st *store.Store) *Anchor {
	var doc anchorFile
	if err := st.Load(anchorDoc, &doc); err != nil {
		slog.Error("couldn't load bot anchor; using origin", slog.Any("err", err))
	}
	return &Anchor{
		st:   st,
		pose: bridge.Pose{X: doc.X, Y: doc.Y, Z: doc.Z, Facing: doc.Facing},
	}
}

// Pose returns the anchor pose.
func (a *Anchor) Pose() bridge.Pose {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pose
}

// Set moves the anchor and persists it.
func (a *Anchor) Set(p bridge.Pose) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pose = p
	doc := anchorFile{X: p.X, Y: p.Y, Z: p.Z, Facing: p.Facing}
	if err := a.st.Save(anchorDoc, &doc); err != nil {
		slog.Error("couldn't persist bot anchor", slog.Any("err", err))
	}
}
