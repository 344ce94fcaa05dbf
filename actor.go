package main

import (
	"context"
	"time"

	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/metrics"
)

// timedActor observes the acknowledgement latency of every platform action.
type timedActor struct {
	a   bridge.Actor
	lat metrics.Observer
}

func (t timedActor) obs(op string, start time.Time) {
	if t.lat != nil {
		t.lat.Observe(time.Since(start).Seconds(), op)
	}
}

func (t timedActor) SendChat(ctx context.Context, text string) error {
	defer t.obs("chat", time.Now())
	return t.a.SendChat(ctx, text)
}

func (t timedActor) SendDM(ctx context.Context, userID, text string) error {
	defer t.obs("dm", time.Now())
	return t.a.SendDM(ctx, userID, text)
}

func (t timedActor) SendWhisper(ctx context.Context, userID, text string) error {
	defer t.obs("whisper", time.Now())
	return t.a.SendWhisper(ctx, userID, text)
}

func (t timedActor) Teleport(ctx context.Context, userID string, to bridge.Pose) error {
	defer t.obs("teleport", time.Now())
	return t.a.Teleport(ctx, userID, to)
}

func (t timedActor) Walk(ctx context.Context, to bridge.Pose) error {
	defer t.obs("walk", time.Now())
	return t.a.Walk(ctx, to)
}

func (t timedActor) PlayEmote(ctx context.Context, userID, emoteID string) error {
	defer t.obs("emote", time.Now())
	return t.a.PlayEmote(ctx, userID, emoteID)
}

func (t timedActor) Kick(ctx context.Context, userID string) error {
	defer t.obs("kick", time.Now())
	return t.a.Kick(ctx, userID)
}

func (t timedActor) Ban(ctx context.Context, userID string, d time.Duration) error {
	defer t.obs("ban", time.Now())
	return t.a.Ban(ctx, userID, d)
}

func (t timedActor) Mute(ctx context.Context, userID string, d time.Duration) error {
	defer t.obs("mute", time.Now())
	return t.a.Mute(ctx, userID, d)
}

func (t timedActor) Outfit(ctx context.Context, userID string) ([]bridge.OutfitItem, error) {
	defer t.obs("outfit", time.Now())
	return t.a.Outfit(ctx, userID)
}

func (t timedActor) SetOutfit(ctx context.Context, items []bridge.OutfitItem) error {
	defer t.obs("setoutfit", time.Now())
	return t.a.SetOutfit(ctx, items)
}

func (t timedActor) ColorOutfit(ctx context.Context, part string, index int) error {
	defer t.obs("coloroutfit", time.Now())
	return t.a.ColorOutfit(ctx, part, index)
}

func (t timedActor) BuyItem(ctx context.Context, kind string, amount int) error {
	defer t.obs("buy", time.Now())
	return t.a.BuyItem(ctx, kind, amount)
}

func (t timedActor) Position(ctx context.Context, userID string) (bridge.Pose, error) {
	defer t.obs("position", time.Now())
	return t.a.Position(ctx, userID)
}
