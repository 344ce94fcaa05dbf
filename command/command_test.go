package command

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/guard"
	"github.com/solraven/keeper/ledger"
	"github.com/solraven/keeper/perms"
	"github.com/solraven/keeper/store"
	"github.com/solraven/keeper/tasks"
)

// fakeActor records every action and answers with canned results.
type fakeActor struct {
	chats    []string
	dms      []string
	whispers []string
	kicks    []string
	bans     []string
	mutes    []string
	tps      []string
	walks    []bridge.Pose
	emotes   []string
	buys     []string

	pos     bridge.Pose
	outfit  []bridge.OutfitItem
	worn    []bridge.OutfitItem
	colored []string
}

func (a *fakeActor) SendChat(ctx context.Context, text string) error {
	a.chats = append(a.chats, text)
	return nil
}

func (a *fakeActor) SendDM(ctx context.Context, userID, text string) error {
	a.dms = append(a.dms, userID+": "+text)
	return nil
}

func (a *fakeActor) SendWhisper(ctx context.Context, userID, text string) error {
	a.whispers = append(a.whispers, userID+": "+text)
	return nil
}

func (a *fakeActor) Teleport(ctx context.Context, userID string, to bridge.Pose) error {
	a.tps = append(a.tps, userID)
	return nil
}

func (a *fakeActor) Walk(ctx context.Context, to bridge.Pose) error {
	a.walks = append(a.walks, to)
	return nil
}

func (a *fakeActor) PlayEmote(ctx context.Context, userID, emoteID string) error {
	a.emotes = append(a.emotes, userID+":"+emoteID)
	return nil
}

func (a *fakeActor) Kick(ctx context.Context, userID string) error {
	a.kicks = append(a.kicks, userID)
	return nil
}

func (a *fakeActor) Ban(ctx context.Context, userID string, d time.Duration) error {
	a.bans = append(a.bans, userID)
	return nil
}

func (a *fakeActor) Mute(ctx context.Context, userID string, d time.Duration) error {
	a.mutes = append(a.mutes, userID)
	return nil
}

func (a *fakeActor) Outfit(ctx context.Context, userID string) ([]bridge.OutfitItem, error) {
	return a.outfit, nil
}

func (a *fakeActor) SetOutfit(ctx context.Context, items []bridge.OutfitItem) error {
	a.worn = items
	return nil
}

func (a *fakeActor) ColorOutfit(ctx context.Context, part string, index int) error {
	a.colored = append(a.colored, part)
	return nil
}

func (a *fakeActor) BuyItem(ctx context.Context, kind string, amount int) error {
	a.buys = append(a.buys, kind)
	return nil
}

func (a *fakeActor) Position(ctx context.Context, userID string) (bridge.Pose, error) {
	return a.pos, nil
}

type tWriter struct{ t *testing.T }

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(tWriter{t}, nil))
}

func testEnv(t *testing.T) (*Env, *fakeActor) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := &fakeActor{pos: bridge.Pose{X: 5, Y: 1, Z: 5}}
	roster := bridge.NewRoster()
	env := &Env{
		Log:    testLogger(t),
		Actor:  a,
		Roster: roster,
		Perms:  perms.Load(st),
		Ledger: ledger.Load(st),
		Tasks:  tasks.New(a, roster.Present),
		Guard:  guard.Load(st, a, guard.Config{MaxVertical: 4, MaxStep: 25}),
		Anchor: LoadAnchor(st),
		Prefix: "!",
		Emotes: map[string]EmoteDef{
			"dance": {ID: "emote-dance-1", Interval: 50 * time.Millisecond},
		},
		Presets: map[string]bridge.Pose{
			"stage": {X: 10, Y: 0, Z: 10},
		},
		AIFallback: "ask me later.",
	}
	env.Commands = Table()
	return env, a
}

var (
	alice = bridge.User{ID: "u1", Name: "alice"}
	bob   = bridge.User{ID: "u2", Name: "bob"}
)

func TestBanWritesLedgerAndRoom(t *testing.T) {
	env, a := testEnv(t)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "ban", Target: bob, Args: []string{"5"}}
	if err := BanUser(context.Background(), env, inv); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !env.Ledger.IsBanned(bob.ID) {
		t.Error("bob not banned in ledger")
	}
	if want := []string{bob.ID}; !cmp.Equal(a.bans, want) {
		t.Errorf("room bans = %v, want %v", a.bans, want)
	}
}

func TestBanRejectsProtected(t *testing.T) {
	env, a := testEnv(t)
	env.Perms.Promote(bob.ID)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "ban", Target: bob}
	if err := BanUser(context.Background(), env, inv); err == nil {
		t.Fatal("banning a mod succeeded")
	}
	if len(a.bans) != 0 {
		t.Errorf("room ban issued despite protection: %v", a.bans)
	}
	if env.Ledger.IsBanned(bob.ID) {
		t.Error("ledger ban recorded despite protection")
	}
}

func TestUnbanLifts(t *testing.T) {
	env, _ := testEnv(t)
	env.Ledger.Ban(bob.ID, 0)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "unban", Target: bob}
	if err := UnbanUser(context.Background(), env, inv); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if env.Ledger.IsBanned(bob.ID) {
		t.Error("bob still banned")
	}
}

func TestMuteRequiresDuration(t *testing.T) {
	env, _ := testEnv(t)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "mute", Target: bob}
	err := MuteUser(context.Background(), env, inv)
	if err == nil || !strings.HasPrefix(err.Error(), "usage:") {
		t.Errorf("err = %v, want usage rejection", err)
	}
}

func TestGrantOwnerClearsModRole(t *testing.T) {
	env, _ := testEnv(t)
	env.Perms.Promote(bob.ID)
	inv := &Invocation{User: alice, Channel: bridge.DM, Name: "owner", Target: bob}
	if err := GrantOwner(context.Background(), env, inv); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if got := env.Perms.RoleOf(bob.ID); got != perms.Owner {
		t.Errorf("role = %v, want owner", got)
	}
}

func TestRevokeOwnSeatRejected(t *testing.T) {
	env, _ := testEnv(t)
	env.Perms.GrantOwner(alice.ID)
	inv := &Invocation{User: alice, Channel: bridge.DM, Name: "unowner", Target: alice}
	if err := RevokeOwner(context.Background(), env, inv); err == nil {
		t.Fatal("self-revoke succeeded")
	}
	if got := env.Perms.RoleOf(alice.ID); got != perms.Owner {
		t.Errorf("role = %v, want owner", got)
	}
}

func TestTeleportPreset(t *testing.T) {
	env, a := testEnv(t)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "tp", Args: []string{"stage"}}
	if err := TeleportPreset(context.Background(), env, inv); err != nil {
		t.Fatalf("tp: %v", err)
	}
	if want := []string{alice.ID}; !cmp.Equal(a.tps, want) {
		t.Errorf("teleports = %v, want %v", a.tps, want)
	}
}

func TestTeleportPresetUnknown(t *testing.T) {
	env, a := testEnv(t)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "tp", Args: []string{"moon"}}
	if err := TeleportPreset(context.Background(), env, inv); err == nil {
		t.Fatal("unknown preset succeeded")
	}
	if len(a.tps) != 0 {
		t.Errorf("teleport issued for unknown preset: %v", a.tps)
	}
}

func TestSetAnchorPersists(t *testing.T) {
	env, a := testEnv(t)
	a.pos = bridge.Pose{X: 3, Y: 0, Z: 7, Facing: 90}
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "sethere"}
	if err := SetAnchor(context.Background(), env, inv); err != nil {
		t.Fatalf("sethere: %v", err)
	}
	if got := env.Anchor.Pose(); !cmp.Equal(got, a.pos) {
		t.Errorf("anchor = %+v, want %+v", got, a.pos)
	}
}

func TestLoopOnOtherRequiresMod(t *testing.T) {
	env, _ := testEnv(t)
	env.Roster.Put(alice)
	env.Roster.Put(bob)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "loop", Target: bob, Args: []string{"dance"}}
	if err := Loop(context.Background(), env, inv); err == nil {
		t.Fatal("basic user looped an emote on someone else")
	}
	env.Perms.Promote(alice.ID)
	if err := Loop(context.Background(), env, inv); err != nil {
		t.Fatalf("mod loop on other: %v", err)
	}
	t.Cleanup(env.Tasks.StopAll)
	if got, ok := env.Tasks.Active(bob.ID); !ok || got != "emote-dance-1" {
		t.Errorf("active = %q, %v; want emote-dance-1, true", got, ok)
	}
}

func TestStopLoopNoneRunning(t *testing.T) {
	env, _ := testEnv(t)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "stop"}
	if err := StopLoop(context.Background(), env, inv); err == nil {
		t.Fatal("stop with no loop succeeded")
	}
}

func TestFreezeLocksAtCurrentPose(t *testing.T) {
	env, a := testEnv(t)
	a.pos = bridge.Pose{X: 2, Y: 0, Z: 2}
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "freeze", Target: bob}
	if err := Freeze(context.Background(), env, inv); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if got, ok := env.Guard.Frozen(bob.ID); !ok || !cmp.Equal(got, a.pos) {
		t.Errorf("frozen = %+v, %v; want %+v, true", got, ok, a.pos)
	}
}

func TestHelpListsByRole(t *testing.T) {
	env, a := testEnv(t)
	inv := &Invocation{User: alice, Channel: bridge.Public, Name: "help"}
	if err := Help(context.Background(), env, inv); err != nil {
		t.Fatalf("help: %v", err)
	}
	if len(a.chats) != 1 {
		t.Fatalf("chats = %v, want one reply", a.chats)
	}
	if strings.Contains(a.chats[0], "!promote") {
		t.Errorf("basic user shown an owner command: %q", a.chats[0])
	}
	if !strings.Contains(a.chats[0], "!help") {
		t.Errorf("help not listed: %q", a.chats[0])
	}
}

func TestReplyFollowsChannel(t *testing.T) {
	env, a := testEnv(t)
	env.Reply(context.Background(), &Invocation{User: alice, Channel: bridge.DM}, "hi")
	env.Reply(context.Background(), &Invocation{User: alice, Channel: bridge.Whisper}, "hi")
	env.Reply(context.Background(), &Invocation{User: alice, Channel: bridge.Public}, "hi")
	if len(a.dms) != 1 || len(a.whispers) != 1 || len(a.chats) != 1 {
		t.Errorf("dms=%v whispers=%v chats=%v, want one each", a.dms, a.whispers, a.chats)
	}
	if want := "@alice hi"; a.chats[0] != want {
		t.Errorf("public reply = %q, want %q", a.chats[0], want)
	}
}

func TestSplitBreaksAtSpaces(t *testing.T) {
	got := split("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if !cmp.Equal(got, want) {
		t.Errorf("split = %v, want %v", got, want)
	}
}
