package guard_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/guard"
	"github.com/solraven/keeper/store"
)

type fakeTeleporter struct {
	calls []teleport
}

type teleport struct {
	userID string
	to     bridge.Pose
}

func (f *fakeTeleporter) Teleport(ctx context.Context, userID string, to bridge.Pose) error {
	f.calls = append(f.calls, teleport{userID, to})
	return nil
}

func open(t *testing.T) (*guard.Guard, *fakeTeleporter) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tp := &fakeTeleporter{}
	return guard.Load(st, tp, guard.Config{MaxVertical: 5, MaxStep: 20}), tp
}

func TestFrozenCorrection(t *testing.T) {
	g, tp := open(t)
	p := bridge.Pose{X: 1, Y: 2, Z: 3, Facing: 90}
	g.Freeze("u", p)

	if g.HandleMove(context.Background(), "u", bridge.Pose{X: 2, Y: 2, Z: 3, Facing: 90}) != true {
		t.Fatal("deviation not corrected")
	}
	want := []teleport{{"u", p}}
	if d := cmp.Diff(want, tp.calls, cmp.AllowUnexported(teleport{})); d != "" {
		t.Errorf("wrong corrections (-want +got):\n%s", d)
	}
}

func TestFrozenTolerance(t *testing.T) {
	g, tp := open(t)
	p := bridge.Pose{X: 1, Y: 2, Z: 3}
	g.Freeze("u", p)
	if g.HandleMove(context.Background(), "u", bridge.Pose{X: 1.001, Y: 2, Z: 3}) {
		t.Error("movement inside tolerance corrected")
	}
	if len(tp.calls) != 0 {
		t.Errorf("teleports issued inside tolerance: %v", tp.calls)
	}
}

func TestUnfreeze(t *testing.T) {
	g, tp := open(t)
	g.Freeze("u", bridge.Pose{})
	if !g.Unfreeze("u") {
		t.Error("unfreeze reported no lock")
	}
	if g.Unfreeze("u") {
		t.Error("second unfreeze reported a lock")
	}
	// Seed the movement cache, then jump inside the glitch thresholds.
	g.HandleMove(context.Background(), "u", bridge.Pose{X: 5})
	g.HandleMove(context.Background(), "u", bridge.Pose{X: 6})
	if len(tp.calls) != 0 {
		t.Errorf("teleports issued after unfreeze: %v", tp.calls)
	}
}

func TestGlitchConfirmation(t *testing.T) {
	g, tp := open(t)
	ctx := context.Background()
	g.HandleMove(ctx, "u", bridge.Pose{X: 0, Y: 0, Z: 0})
	// Small step: no action.
	if g.HandleMove(ctx, "u", bridge.Pose{X: 1, Y: 0, Z: 0}) {
		t.Error("small step confirmed")
	}
	// Vertical jump past the threshold: confirm the new pose, not the old.
	to := bridge.Pose{X: 1, Y: 10, Z: 0}
	if !g.HandleMove(ctx, "u", to) {
		t.Fatal("vertical jump not confirmed")
	}
	got := tp.calls[len(tp.calls)-1]
	if got.to != to {
		t.Errorf("confirmed wrong pose: got %+v, want %+v", got.to, to)
	}
}

func TestGlitchStepDistance(t *testing.T) {
	g, tp := open(t)
	ctx := context.Background()
	g.HandleMove(ctx, "u", bridge.Pose{})
	if !g.HandleMove(ctx, "u", bridge.Pose{X: 30}) {
		t.Fatal("long step not confirmed")
	}
	if len(tp.calls) != 1 {
		t.Errorf("want one confirmation, got %d", len(tp.calls))
	}
}

func TestFirstMoveNeverCorrects(t *testing.T) {
	g, tp := open(t)
	if g.HandleMove(context.Background(), "u", bridge.Pose{X: 1000}) {
		t.Error("first observed move corrected")
	}
	if len(tp.calls) != 0 {
		t.Errorf("teleports on first move: %v", tp.calls)
	}
}

func TestLocksPersist(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	tp := &fakeTeleporter{}
	g := guard.Load(st, tp, guard.Config{MaxVertical: 5, MaxStep: 20})
	p := bridge.Pose{X: 7, Y: 8, Z: 9, Facing: 180}
	g.Freeze("u", p)

	st2, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	g2 := guard.Load(st2, tp, guard.Config{MaxVertical: 5, MaxStep: 20})
	got, ok := g2.Frozen("u")
	if !ok {
		t.Fatal("lock lost across reload")
	}
	if got != p {
		t.Errorf("reloaded lock: got %+v, want %+v", got, p)
	}
}
