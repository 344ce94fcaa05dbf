package command

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// errProtected rejects punitive actions against staff.
var errProtected = errors.New("that user is protected")

// KickUser removes the target from the room.
func KickUser(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("kick @user")
	}
	if env.Perms.Protected(inv.Target.ID) {
		return errProtected
	}
	if err := env.Actor.Kick(ctx, inv.Target.ID); err != nil {
		env.Log.WarnContext(ctx, "kick failed",
			slog.String("user", inv.Target.ID),
			slog.Any("err", err),
		)
		return errors.New("couldn't kick them")
	}
	env.Log.InfoContext(ctx, "kicked",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "kicked %s.", inv.Target.Name)
	return nil
}

// BanUser bans the target from the room and from using commands. With no
// duration the ban is permanent.
func BanUser(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("ban @user [minutes]")
	}
	if env.Perms.Protected(inv.Target.ID) {
		return errProtected
	}
	minutes := 0
	if len(inv.Args) > 0 {
		m, err := strconv.Atoi(inv.Args[0])
		if err != nil || m < 0 {
			return usage("ban @user [minutes]")
		}
		minutes = m
	}
	env.Ledger.Ban(inv.Target.ID, minutes)
	if err := env.Actor.Ban(ctx, inv.Target.ID, time.Duration(minutes)*time.Minute); err != nil {
		env.Log.WarnContext(ctx, "room ban failed",
			slog.String("user", inv.Target.ID),
			slog.Any("err", err),
		)
	}
	env.Log.InfoContext(ctx, "banned",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
		slog.Int("minutes", minutes),
	)
	if minutes == 0 {
		env.Reply(ctx, inv, "banned %s permanently.", inv.Target.Name)
	} else {
		env.Reply(ctx, inv, "banned %s for %d minutes.", inv.Target.Name, minutes)
	}
	return nil
}

// UnbanUser lifts the command ban on the target.
func UnbanUser(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("unban @user")
	}
	if !env.Ledger.Unban(inv.Target.ID) {
		env.Reply(ctx, inv, "%s isn't banned.", inv.Target.Name)
		return nil
	}
	env.Log.InfoContext(ctx, "unbanned",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "unbanned %s.", inv.Target.Name)
	return nil
}

// MuteUser mutes the target in the room and ignores their messages for the
// given number of minutes.
func MuteUser(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() || len(inv.Args) == 0 {
		return usage("mute @user <minutes>")
	}
	if env.Perms.Protected(inv.Target.ID) {
		return errProtected
	}
	minutes, err := strconv.Atoi(inv.Args[0])
	if err != nil || minutes <= 0 {
		return usage("mute @user <minutes>")
	}
	env.Ledger.Mute(inv.Target.ID, minutes)
	if err := env.Actor.Mute(ctx, inv.Target.ID, time.Duration(minutes)*time.Minute); err != nil {
		env.Log.WarnContext(ctx, "room mute failed",
			slog.String("user", inv.Target.ID),
			slog.Any("err", err),
		)
	}
	env.Log.InfoContext(ctx, "muted",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
		slog.Int("minutes", minutes),
	)
	env.Reply(ctx, inv, "muted %s for %d minutes.", inv.Target.Name, minutes)
	return nil
}

// UnmuteUser lifts the message mute on the target.
func UnmuteUser(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("unmute @user")
	}
	if !env.Ledger.Unmute(inv.Target.ID) {
		env.Reply(ctx, inv, "%s isn't muted.", inv.Target.Name)
		return nil
	}
	env.Log.InfoContext(ctx, "unmuted",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "unmuted %s.", inv.Target.Name)
	return nil
}

// BadWord manages the bad-word list.
func BadWord(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) < 1 {
		return usage("badword <add|remove|list> [word]")
	}
	switch strings.ToLower(inv.Args[0]) {
	case "add":
		if len(inv.Args) < 2 {
			return usage("badword add <word>")
		}
		if !env.Ledger.AddWord(inv.Args[1]) {
			env.Reply(ctx, inv, "already listed.")
			return nil
		}
		env.Reply(ctx, inv, "added.")
	case "remove":
		if len(inv.Args) < 2 {
			return usage("badword remove <word>")
		}
		if !env.Ledger.RemoveWord(inv.Args[1]) {
			env.Reply(ctx, inv, "not listed.")
			return nil
		}
		env.Reply(ctx, inv, "removed.")
	case "list":
		ws := env.Ledger.Words()
		if len(ws) == 0 {
			env.Reply(ctx, inv, "no bad words listed.")
			return nil
		}
		env.Reply(ctx, inv, "bad words: %s", strings.Join(ws, ", "))
	default:
		return usage("badword <add|remove|list> [word]")
	}
	return nil
}
