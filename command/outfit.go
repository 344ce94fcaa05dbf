package command

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/solraven/keeper/bridge"
)

// Outfit inspects a user's outfit, changes the bot's, or recolors one part
// of the bot's.
func Outfit(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return usage("outfit <get @user|wear <ids>|color <part> <index>>")
	}
	switch strings.ToLower(inv.Args[0]) {
	case "get":
		if !inv.Targeted() {
			return usage("outfit get @user")
		}
		items, err := env.Actor.Outfit(ctx, inv.Target.ID)
		if err != nil {
			return errors.New("couldn't fetch their outfit")
		}
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		env.Reply(ctx, inv, "%s is wearing: %s", inv.Target.Name, strings.Join(ids, " "))
	case "wear":
		if len(inv.Args) < 2 {
			return usage("outfit wear <ids>")
		}
		items := make([]bridge.OutfitItem, len(inv.Args[1:]))
		for i, id := range inv.Args[1:] {
			items[i] = bridge.OutfitItem{ID: id}
		}
		if err := env.Actor.SetOutfit(ctx, items); err != nil {
			return errors.New("couldn't change my outfit")
		}
		env.Reply(ctx, inv, "outfit changed.")
	case "color":
		if len(inv.Args) < 3 {
			return usage("outfit color <part> <index>")
		}
		index, err := strconv.Atoi(inv.Args[2])
		if err != nil || index < 0 {
			return usage("outfit color <part> <index>")
		}
		if err := env.Actor.ColorOutfit(ctx, inv.Args[1], index); err != nil {
			return errors.New("couldn't recolor that part")
		}
		env.Reply(ctx, inv, "recolored %s.", inv.Args[1])
	default:
		return usage("outfit <get @user|wear <ids>|color <part> <index>>")
	}
	return nil
}
