package main

import (
	"context"
	"log/slog"

	"github.com/solraven/keeper/bridge"
)

// loop consumes room events until the context closes or the bridge gives up.
func (k *Keeper) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-k.client.Events():
			if !ok {
				return
			}
			k.handle(ctx, ev)
		}
	}
}

func (k *Keeper) handle(ctx context.Context, ev bridge.Event) {
	if k.mets.EventCount != nil {
		k.mets.EventCount.Observe(1, string(ev.Kind))
	}
	switch ev.Kind {
	case bridge.Ready:
		k.self = ev.User
		k.router.SelfID = ev.User.ID
		slog.InfoContext(ctx, "session ready",
			slog.String("id", ev.User.ID),
			slog.String("name", ev.User.Name),
		)
		// Re-place the bot at its anchor; the platform spawns it wherever
		// it likes.
		if err := k.env.Actor.Teleport(ctx, ev.User.ID, k.env.Anchor.Pose()); err != nil {
			slog.WarnContext(ctx, "couldn't return to anchor", slog.Any("err", err))
		}
	case bridge.Join:
		slog.InfoContext(ctx, "join",
			slog.String("id", ev.User.ID),
			slog.String("name", ev.User.Name),
		)
		k.greet(ctx, ev.User)
	case bridge.Leave:
		slog.InfoContext(ctx, "leave", slog.String("id", ev.User.ID))
		k.env.Tasks.Stop(ev.User.ID)
		k.env.Guard.Forget(ev.User.ID)
	case bridge.Chat:
		k.router.HandleChat(ctx, ev)
	case bridge.Move:
		// The guard watches everyone but the bot. Keeper moves itself by
		// Walk and Teleport; correcting those would fight the platform.
		if ev.User.ID == k.self.ID {
			return
		}
		if k.env.Guard.HandleMove(ctx, ev.User.ID, ev.Pose) {
			if k.mets.CorrectionCount != nil {
				k.mets.CorrectionCount.Observe(1)
			}
		}
	case bridge.TransportError:
		if k.mets.ReconnectCount != nil {
			k.mets.ReconnectCount.Observe(1)
		}
		slog.WarnContext(ctx, "transport error", slog.Any("err", ev.Err))
	case bridge.Moderation:
		slog.InfoContext(ctx, "platform moderation",
			slog.String("user", ev.User.ID),
			slog.String("action", ev.Text),
		)
	default:
		slog.DebugContext(ctx, "event",
			slog.String("kind", string(ev.Kind)),
			slog.String("user", ev.User.ID),
		)
	}
}
