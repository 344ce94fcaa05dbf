package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// TeleportPreset sends the caller to a named location.
func TeleportPreset(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) == 0 {
		names := slices.Sorted(maps.Keys(env.Presets))
		if len(names) == 0 {
			return errors.New("no teleport presets configured")
		}
		return fmt.Errorf("usage: tp <%s>", strings.Join(names, "|"))
	}
	name := strings.ToLower(inv.Args[0])
	p, ok := env.Presets[name]
	if !ok {
		return fmt.Errorf("no preset named %q", name)
	}
	if err := env.Actor.Teleport(ctx, inv.User.ID, p); err != nil {
		env.Log.WarnContext(ctx, "preset teleport failed",
			slog.String("user", inv.User.ID),
			slog.String("preset", name),
			slog.Any("err", err),
		)
		return errors.New("couldn't teleport you")
	}
	return nil
}

// Bring teleports the target to the caller.
func Bring(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("bring @user")
	}
	if env.Perms.Protected(inv.Target.ID) && inv.Target.ID != inv.User.ID {
		return errProtected
	}
	at, err := env.Actor.Position(ctx, inv.User.ID)
	if err != nil {
		return errors.New("couldn't find your position")
	}
	if err := env.Actor.Teleport(ctx, inv.Target.ID, at); err != nil {
		return errors.New("couldn't teleport them")
	}
	return nil
}

// Summon teleports the target to the bot.
func Summon(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("summon @user")
	}
	if env.Perms.Protected(inv.Target.ID) && inv.Target.ID != inv.User.ID {
		return errProtected
	}
	if err := env.Actor.Teleport(ctx, inv.Target.ID, env.Anchor.Pose()); err != nil {
		return errors.New("couldn't teleport them")
	}
	return nil
}

// Come walks the bot to the caller.
func Come(ctx context.Context, env *Env, inv *Invocation) error {
	at, err := env.Actor.Position(ctx, inv.User.ID)
	if err != nil {
		return errors.New("couldn't find your position")
	}
	if err := env.Actor.Walk(ctx, at); err != nil {
		return errors.New("couldn't walk there")
	}
	return nil
}

// SetAnchor moves the bot's idle anchor to the caller's position.
func SetAnchor(ctx context.Context, env *Env, inv *Invocation) error {
	at, err := env.Actor.Position(ctx, inv.User.ID)
	if err != nil {
		return errors.New("couldn't find your position")
	}
	env.Anchor.Set(at)
	env.Log.InfoContext(ctx, "anchor moved",
		slog.String("by", inv.User.ID),
	)
	env.Reply(ctx, inv, "I'll stay here now.")
	return nil
}

// Freeze locks the target at their current position.
func Freeze(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("freeze @user")
	}
	if env.Perms.Protected(inv.Target.ID) {
		return errProtected
	}
	at, err := env.Actor.Position(ctx, inv.Target.ID)
	if err != nil {
		return errors.New("couldn't find their position")
	}
	env.Guard.Freeze(inv.Target.ID, at)
	env.Log.InfoContext(ctx, "froze",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "froze %s.", inv.Target.Name)
	return nil
}

// Unfreeze releases the target's position lock.
func Unfreeze(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("unfreeze @user")
	}
	if !env.Guard.Unfreeze(inv.Target.ID) {
		env.Reply(ctx, inv, "%s isn't frozen.", inv.Target.Name)
		return nil
	}
	env.Log.InfoContext(ctx, "unfroze",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "unfroze %s.", inv.Target.Name)
	return nil
}
