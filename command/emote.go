package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/solraven/keeper/perms"
)

// Loop starts a repeating emote on the caller, or on a target if the caller
// is a mod.
func Loop(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) == 0 {
		names := slices.Sorted(maps.Keys(env.Emotes))
		return fmt.Errorf("usage: loop <%s> [@user]", strings.Join(names, "|"))
	}
	def, ok := env.Emotes[strings.ToLower(inv.Args[0])]
	if !ok {
		return fmt.Errorf("I don't know the emote %q", inv.Args[0])
	}
	who := inv.User
	if inv.Targeted() && inv.Target.ID != inv.User.ID {
		if !env.Perms.IsAtLeast(inv.User.ID, perms.Mod) {
			return errors.New("only mods can loop emotes on others")
		}
		who = inv.Target
	}
	env.Tasks.Start(ctx, who.ID, def.ID, def.Interval)
	env.Log.InfoContext(ctx, "emote loop started",
		slog.String("by", inv.User.ID),
		slog.String("user", who.ID),
		slog.String("emote", def.ID),
	)
	return nil
}

// StopLoop stops the caller's emote loop, or a target's if the caller is a
// mod.
func StopLoop(ctx context.Context, env *Env, inv *Invocation) error {
	who := inv.User
	if inv.Targeted() && inv.Target.ID != inv.User.ID {
		if !env.Perms.IsAtLeast(inv.User.ID, perms.Mod) {
			return errors.New("only mods can stop others' loops")
		}
		who = inv.Target
	}
	if !env.Tasks.Stop(who.ID) {
		return errors.New("no loop running")
	}
	return nil
}

// EmoteAll plays an emote once on everyone present.
func EmoteAll(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return usage("emoteall <emote>")
	}
	def, ok := env.Emotes[strings.ToLower(inv.Args[0])]
	if !ok {
		return fmt.Errorf("I don't know the emote %q", inv.Args[0])
	}
	for _, u := range env.Roster.Users() {
		if err := env.Actor.PlayEmote(ctx, u.ID, def.ID); err != nil {
			env.Log.WarnContext(ctx, "emoteall skip",
				slog.String("user", u.ID),
				slog.String("emote", def.ID),
				slog.Any("err", err),
			)
		}
	}
	return nil
}
