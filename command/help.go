package command

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Help lists the commands available to the sender, or shows usage for one.
func Help(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) > 0 {
		name := strings.ToLower(strings.TrimPrefix(inv.Args[0], env.Prefix))
		s := env.Commands[name]
		if s == nil {
			return fmt.Errorf("no command named %q", name)
		}
		env.Reply(ctx, inv, "%s%s", env.Prefix, s.Usage)
		return nil
	}
	role := env.Perms.RoleOf(inv.User.ID)
	var names []string
	for name, s := range env.Commands {
		if role >= s.Role {
			names = append(names, env.Prefix+name)
		}
	}
	slices.Sort(names)
	env.Reply(ctx, inv, "commands: %s", strings.Join(names, " "))
	return nil
}
