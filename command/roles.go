package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/solraven/keeper/perms"
)

// Promote grants the target the mod role.
func Promote(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("promote @user")
	}
	if !env.Perms.Promote(inv.Target.ID) {
		env.Reply(ctx, inv, "%s is already staff.", inv.Target.Name)
		return nil
	}
	env.Log.InfoContext(ctx, "promoted",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "%s is now a mod.", inv.Target.Name)
	return nil
}

// Demote removes the target from the mod set.
func Demote(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("demote @user")
	}
	if !env.Perms.Demote(inv.Target.ID) {
		env.Reply(ctx, inv, "%s is not a mod.", inv.Target.Name)
		return nil
	}
	env.Log.InfoContext(ctx, "demoted",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "%s is no longer a mod.", inv.Target.Name)
	return nil
}

// GrantOwner makes the target an owner, removing them from the mod set.
func GrantOwner(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("owner @user")
	}
	if !env.Perms.GrantOwner(inv.Target.ID) {
		env.Reply(ctx, inv, "%s is already an owner.", inv.Target.Name)
		return nil
	}
	env.Log.InfoContext(ctx, "granted ownership",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "%s is now an owner.", inv.Target.Name)
	return nil
}

// RevokeOwner removes the target from the owner set. Revoking yourself is
// always rejected.
func RevokeOwner(ctx context.Context, env *Env, inv *Invocation) error {
	if !inv.Targeted() {
		return usage("unowner @user")
	}
	err := env.Perms.RevokeOwner(inv.User.ID, inv.Target.ID)
	switch {
	case errors.Is(err, perms.ErrSelfRevoke):
		return errors.New("you can't revoke your own ownership")
	case err != nil:
		env.Reply(ctx, inv, "%s is not an owner.", inv.Target.Name)
		return nil
	}
	env.Log.InfoContext(ctx, "revoked ownership",
		slog.String("by", inv.User.ID),
		slog.String("user", inv.Target.ID),
	)
	env.Reply(ctx, inv, "%s is no longer an owner.", inv.Target.Name)
	return nil
}
