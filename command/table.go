package command

import (
	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/perms"
)

const (
	anyChannel = bridge.Public | bridge.DM | bridge.Whisper
	private    = bridge.DM | bridge.Whisper
)

// Table returns the default command table. Role and channel requirements
// are data; the router owns enforcement.
func Table() map[string]*Spec {
	all := []*Spec{
		{Name: "help", Role: perms.Basic, Channels: anyChannel, Usage: "help [command]", Fn: Help},

		{Name: "promote", Role: perms.Owner, Channels: anyChannel, Usage: "promote @user", Fn: Promote},
		{Name: "demote", Role: perms.Owner, Channels: anyChannel, Usage: "demote @user", Fn: Demote},
		{Name: "owner", Role: perms.Owner, Channels: private, Usage: "owner @user", Fn: GrantOwner},
		{Name: "unowner", Role: perms.Owner, Channels: private, Usage: "unowner @user", Fn: RevokeOwner},

		{Name: "kick", Role: perms.Mod, Channels: anyChannel, Usage: "kick @user", Fn: KickUser},
		{Name: "ban", Role: perms.Mod, Channels: anyChannel, Usage: "ban @user [minutes]", Fn: BanUser},
		{Name: "unban", Role: perms.Mod, Channels: anyChannel, Usage: "unban @user", Fn: UnbanUser},
		{Name: "mute", Role: perms.Mod, Channels: anyChannel, Usage: "mute @user <minutes>", Fn: MuteUser},
		{Name: "unmute", Role: perms.Mod, Channels: anyChannel, Usage: "unmute @user", Fn: UnmuteUser},
		{Name: "badword", Role: perms.Mod, Channels: private, Usage: "badword <add|remove> <word>", Fn: BadWord},

		{Name: "tp", Role: perms.Basic, Channels: bridge.Public, Usage: "tp <preset>", Fn: TeleportPreset},
		{Name: "bring", Role: perms.Mod, Channels: anyChannel, Usage: "bring @user", Fn: Bring},
		{Name: "summon", Role: perms.Mod, Channels: anyChannel, Usage: "summon @user", Fn: Summon},
		{Name: "come", Role: perms.Mod, Channels: bridge.Public, Usage: "come", Fn: Come},
		{Name: "sethere", Role: perms.Mod, Channels: bridge.Public, Usage: "sethere", Fn: SetAnchor},
		{Name: "freeze", Role: perms.Mod, Channels: anyChannel, Usage: "freeze @user", Fn: Freeze},
		{Name: "unfreeze", Role: perms.Mod, Channels: anyChannel, Usage: "unfreeze @user", Fn: Unfreeze},

		{Name: "loop", Role: perms.Basic, Channels: anyChannel, Usage: "loop <emote> [@user]", Fn: Loop},
		{Name: "stop", Role: perms.Basic, Channels: anyChannel, Usage: "stop [@user]", Fn: StopLoop},
		{Name: "emoteall", Role: perms.Mod, Channels: bridge.Public, Usage: "emoteall <emote>", Fn: EmoteAll},

		{Name: "outfit", Role: perms.Owner, Channels: private, Usage: "outfit <get @user|wear <ids>|color <part> <index>>", Fn: Outfit},
		{Name: "buy", Role: perms.Owner, Channels: private, Usage: "buy <kind> <amount>", Fn: Buy},

		{Name: "ask", Role: perms.Basic, Channels: anyChannel, Usage: "ask <question>", Fn: Ask},
		{Name: "say", Role: perms.Mod, Channels: private, Usage: "say <text>", Fn: Say},
		{Name: "recite", Role: perms.Mod, Channels: private, Usage: "recite <name>", Fn: Recite},
	}
	m := make(map[string]*Spec, len(all))
	for _, s := range all {
		m[s.Name] = s
	}
	return m
}
