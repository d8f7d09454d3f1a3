package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sentinel-warden/internal/moderation"
	"sentinel-warden/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
)

func pastTense(kind moderation.Kind) string {
	if kind == moderation.Mute {
		return "muted"
	}
	return "blacklisted"
}

func (b *builtins) moderationCommand(kind moderation.Kind) Handler {
	return func(ctx context.Context, call *Call) error {
		if len(call.Args) == 0 {
			return call.Reply(ctx, "Usage: "+call.Name+" add|remove|removeall|list")
		}
		switch strings.ToLower(call.Args[0]) {
		case "add":
			return b.moderationAdd(ctx, call, kind)
		case "remove":
			return b.moderationRemove(ctx, call, kind)
		case "removeall":
			return b.moderationRemoveAll(ctx, call, kind)
		case "list":
			return b.moderationList(ctx, call, kind)
		default:
			return call.Reply(ctx, "Usage: "+call.Name+" add|remove|removeall|list")
		}
	}
}

func (b *builtins) moderationAdd(ctx context.Context, call *Call, kind moderation.Kind) error {
	if len(call.Args) < 2 {
		return call.Reply(ctx, fmt.Sprintf("Usage: %s add <user> [reason]", call.Name))
	}
	userID, ok := parseUser(call.Args[1])
	if !ok {
		return call.Reply(ctx, "I couldn't find that user. Mention them or use their id.")
	}
	reason := call.Text(2)
	if err := moderation.ValidateReason(reason); err != nil {
		return call.Reply(ctx, fmt.Sprintf("The reason can be at most %d characters long.", moderation.MaxReasonLength))
	}

	entry, err := b.svc.Ledger.Add(ctx, kind, call.Msg.GuildID, userID, call.Msg.AuthorID, reason)
	if errors.Is(err, moderation.ErrAlreadyExists) {
		return call.Reply(ctx, withReason(fmt.Sprintf("%s is already %s.", mention(userID), pastTense(kind)), entry.Reason))
	}
	if err != nil {
		return b.failed(ctx, call, "moderation add failed", err)
	}
	b.svc.Audit.Log(ctx, audit.LevelInfo, call.Msg.GuildID, userID, audit.EventModerationAdded, fmt.Sprintf("%s by %s", kind, call.Msg.AuthorID))
	return call.Reply(ctx, withReason(fmt.Sprintf("%s is now %s.", mention(userID), pastTense(kind)), reason))
}

func (b *builtins) moderationRemove(ctx context.Context, call *Call, kind moderation.Kind) error {
	if len(call.Args) < 2 {
		return call.Reply(ctx, fmt.Sprintf("Usage: %s remove <user>", call.Name))
	}
	userID, ok := parseUser(call.Args[1])
	if !ok {
		return call.Reply(ctx, "I couldn't find that user. Mention them or use their id.")
	}
	err := b.svc.Ledger.Remove(ctx, kind, call.Msg.GuildID, userID)
	if errors.Is(err, moderation.ErrNotFound) {
		return call.Reply(ctx, fmt.Sprintf("%s is not %s.", mention(userID), pastTense(kind)))
	}
	if err != nil {
		return b.failed(ctx, call, "moderation remove failed", err)
	}
	b.svc.Audit.Log(ctx, audit.LevelInfo, call.Msg.GuildID, userID, audit.EventModerationRemoved, fmt.Sprintf("%s by %s", kind, call.Msg.AuthorID))
	return call.Reply(ctx, fmt.Sprintf("%s is no longer %s.", mention(userID), pastTense(kind)))
}

func (b *builtins) moderationRemoveAll(ctx context.Context, call *Call, kind moderation.Kind) error {
	removed, err := b.svc.Ledger.RemoveAll(ctx, kind, call.Msg.GuildID)
	if err != nil {
		return b.failed(ctx, call, "moderation remove all failed", err)
	}
	if removed == 0 {
		return call.Reply(ctx, fmt.Sprintf("Nobody is %s.", pastTense(kind)))
	}
	b.svc.Audit.Log(ctx, audit.LevelInfo, call.Msg.GuildID, "", audit.EventModerationRemoved, fmt.Sprintf("%d %s entries by %s", removed, kind, call.Msg.AuthorID))
	return call.Reply(ctx, fmt.Sprintf("Removed %d %s member(s).", removed, pastTense(kind)))
}

func (b *builtins) moderationList(ctx context.Context, call *Call, kind moderation.Kind) error {
	entries, err := b.svc.Ledger.List(ctx, kind, call.Msg.GuildID)
	if err != nil {
		return b.failed(ctx, call, "moderation list failed", err)
	}
	if len(entries) == 0 {
		return call.Reply(ctx, fmt.Sprintf("Nobody is %s.", pastTense(kind)))
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(entries))
	for i, entry := range entries {
		if i == 25 {
			break
		}
		value := fmt.Sprintf("by %s on %s", mention(entry.CreatedBy), entry.CreatedAt.Format("2006-01-02"))
		if entry.Reason != "" {
			value = entry.Reason + "\n" + value
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: entry.DisplayName, Value: value})
	}
	title := fmt.Sprintf("%s members (%d)", strings.ToUpper(pastTense(kind)[:1])+pastTense(kind)[1:], len(entries))
	return call.ReplyEmbed(ctx, commandEmbed(title, "", b.svc.Colors.Warning, fields))
}

func withReason(text, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return text
	}
	return text + " Reason: " + reason
}
