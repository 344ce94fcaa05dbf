package command

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
)

// Buy spends from the bot's wallet.
func Buy(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) < 2 {
		return usage("buy <kind> <amount>")
	}
	amount, err := strconv.Atoi(inv.Args[1])
	if err != nil || amount <= 0 {
		return usage("buy <kind> <amount>")
	}
	if err := env.Actor.BuyItem(ctx, inv.Args[0], amount); err != nil {
		env.Log.WarnContext(ctx, "purchase failed",
			slog.String("kind", inv.Args[0]),
			slog.Int("amount", amount),
			slog.Any("err", err),
		)
		return errors.New("purchase failed")
	}
	env.Log.InfoContext(ctx, "purchased",
		slog.String("by", inv.User.ID),
		slog.String("kind", inv.Args[0]),
		slog.Int("amount", amount),
	)
	env.Reply(ctx, inv, "bought %d %s.", amount, inv.Args[0])
	return nil
}
