package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sentinel-warden/internal/customcmd"
	"sentinel-warden/internal/modules/audit"
)

const customUsage = "Usage: customcom add|edit <name> <text>, customcom remove <name>, customcom removeall, customcom list"

func (b *builtins) customCommand(ctx context.Context, call *Call) error {
	if len(call.Args) == 0 {
		return call.Reply(ctx, customUsage)
	}
	guildID := call.Msg.GuildID
	switch strings.ToLower(call.Args[0]) {
	case "add":
		if len(call.Args) < 3 {
			return call.Reply(ctx, customUsage)
		}
		cmd, err := b.svc.Custom.Create(ctx, guildID, call.Msg.AuthorID, call.Args[1], call.Text(2))
		switch {
		case errors.Is(err, customcmd.ErrAlreadyBuiltin):
			return call.Reply(ctx, fmt.Sprintf("`%s` is already a built-in command.", customcmd.NormalizeName(call.Args[1])))
		case errors.Is(err, customcmd.ErrAlreadyExists):
			return call.Reply(ctx, fmt.Sprintf("`%s` already exists, use `customcom edit` to change it.", customcmd.NormalizeName(call.Args[1])))
		case errors.Is(err, customcmd.ErrInvalidName):
			return call.Reply(ctx, "Command names must start with a letter and can't contain spaces.")
		case errors.Is(err, customcmd.ErrEmptyBody):
			return call.Reply(ctx, customUsage)
		case err != nil:
			return b.failed(ctx, call, "custom command create failed", err)
		}
		b.svc.Audit.Log(ctx, audit.LevelInfo, guildID, call.Msg.AuthorID, audit.EventCustomCommand, "added "+cmd.Name)
		return call.Reply(ctx, fmt.Sprintf("Custom command `%s%s` added.", call.Msg.Prefix, cmd.Name))
	case "edit":
		if len(call.Args) < 3 {
			return call.Reply(ctx, customUsage)
		}
		name := customcmd.NormalizeName(call.Args[1])
		err := b.svc.Custom.Update(ctx, guildID, call.Msg.AuthorID, name, call.Text(2))
		switch {
		case errors.Is(err, customcmd.ErrNotFound):
			return call.Reply(ctx, fmt.Sprintf("There is no custom command named `%s`.", name))
		case errors.Is(err, customcmd.ErrEmptyBody):
			return call.Reply(ctx, customUsage)
		case err != nil:
			return b.failed(ctx, call, "custom command update failed", err)
		}
		b.svc.Audit.Log(ctx, audit.LevelInfo, guildID, call.Msg.AuthorID, audit.EventCustomCommand, "edited "+name)
		return call.Reply(ctx, fmt.Sprintf("Custom command `%s%s` updated.", call.Msg.Prefix, name))
	case "remove":
		if len(call.Args) < 2 {
			return call.Reply(ctx, customUsage)
		}
		name := customcmd.NormalizeName(call.Args[1])
		err := b.svc.Custom.Delete(ctx, guildID, name)
		if errors.Is(err, customcmd.ErrNotFound) {
			return call.Reply(ctx, fmt.Sprintf("There is no custom command named `%s`.", name))
		}
		if err != nil {
			return b.failed(ctx, call, "custom command delete failed", err)
		}
		b.svc.Audit.Log(ctx, audit.LevelInfo, guildID, call.Msg.AuthorID, audit.EventCustomCommand, "removed "+name)
		return call.Reply(ctx, fmt.Sprintf("Custom command `%s` removed.", name))
	case "removeall":
		removed, err := b.svc.Custom.DeleteAll(ctx, guildID)
		if err != nil {
			return b.failed(ctx, call, "custom command delete all failed", err)
		}
		if removed == 0 {
			return call.Reply(ctx, "This server has no custom commands.")
		}
		b.svc.Audit.Log(ctx, audit.LevelInfo, guildID, call.Msg.AuthorID, audit.EventCustomCommand, fmt.Sprintf("removed all (%d)", removed))
		return call.Reply(ctx, fmt.Sprintf("Removed %d custom command(s).", removed))
	case "list":
		cmds, err := b.svc.Custom.List(ctx, guildID)
		if err != nil {
			return b.failed(ctx, call, "custom command list failed", err)
		}
		if len(cmds) == 0 {
			return call.Reply(ctx, "This server has no custom commands.")
		}
		lines := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			lines = append(lines, fmt.Sprintf("`%s%s` %s", call.Msg.Prefix, cmd.Name, truncate(firstLine(cmd.Body), 60)))
		}
		title := fmt.Sprintf("Custom commands (%d)", len(cmds))
		return call.ReplyEmbed(ctx, commandEmbed(title, truncate(strings.Join(lines, "\n"), 4096), b.svc.Colors.Action, nil))
	default:
		return call.Reply(ctx, customUsage)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
