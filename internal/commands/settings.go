package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinel-warden/internal/analytics"
	"sentinel-warden/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
)

const configUsage = "Usage: config invisible on|off, config reactions on|off, config pfilter, config show"

func (b *builtins) configure(ctx context.Context, call *Call) error {
	if len(call.Args) == 0 {
		return call.Reply(ctx, configUsage)
	}
	guildID := call.Msg.GuildID
	switch strings.ToLower(call.Args[0]) {
	case "invisible", "reactions":
		if len(call.Args) < 2 {
			return call.Reply(ctx, configUsage)
		}
		enabled, ok := parseSwitch(call.Args[1])
		if !ok {
			return call.Reply(ctx, configUsage)
		}
		setting := strings.ToLower(call.Args[0])
		var err error
		if setting == "invisible" {
			err = b.svc.Policies.SetBlockInvisible(ctx, guildID, enabled)
		} else {
			err = b.svc.Policies.SetBotWordReactions(ctx, guildID, enabled)
		}
		if err != nil {
			return b.failed(ctx, call, "policy update failed", err)
		}
		b.svc.Audit.Log(ctx, audit.LevelInfo, guildID, call.Msg.AuthorID, audit.EventPolicyChanged, fmt.Sprintf("%s=%s", setting, onOff(enabled)))
		return call.Reply(ctx, fmt.Sprintf("%s is now %s.", settingLabel(setting), onOff(enabled)))
	case "pfilter":
		channelName := call.Msg.ChannelID
		if b.reg.directory != nil {
			if name := b.reg.directory.ChannelName(ctx, call.Msg.ChannelID); name != "" {
				channelName = name
			}
		}
		enabled, err := b.svc.Policies.ToggleProfanityFilter(ctx, guildID, call.Msg.ChannelID, channelName, call.Msg.AuthorID)
		if err != nil {
			return b.failed(ctx, call, "profanity filter toggle failed", err)
		}
		b.svc.Audit.Log(ctx, audit.LevelInfo, guildID, call.Msg.AuthorID, audit.EventPolicyChanged, fmt.Sprintf("pfilter %s=%s", call.Msg.ChannelID, onOff(enabled)))
		return call.Reply(ctx, fmt.Sprintf("Profanity filter in <#%s> is now %s.", call.Msg.ChannelID, onOff(enabled)))
	case "show":
		row, channels, err := b.svc.Policies.Settings(ctx, guildID)
		if err != nil {
			return b.failed(ctx, call, "policy read failed", err)
		}
		filtered := "none"
		if len(channels) > 0 {
			names := make([]string, 0, len(channels))
			for _, ch := range channels {
				names = append(names, "<#"+ch.ChannelID+">")
			}
			filtered = strings.Join(names, " ")
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: settingLabel("invisible"), Value: onOff(row.BlockInvisibleMembers), Inline: true},
			{Name: settingLabel("reactions"), Value: onOff(row.BotWordReactions), Inline: true},
			{Name: "Profanity filter", Value: truncate(filtered, 1024)},
		}
		return call.ReplyEmbed(ctx, commandEmbed("Server settings", "", b.svc.Colors.Action, fields))
	default:
		return call.Reply(ctx, configUsage)
	}
}

func (b *builtins) modstats(ctx context.Context, call *Call) error {
	window := 24 * time.Hour
	label := "last 24 hours"
	if len(call.Args) > 0 {
		switch strings.ToLower(call.Args[0]) {
		case "day":
		case "week":
			window = 7 * 24 * time.Hour
			label = "last 7 days"
		default:
			return call.Reply(ctx, "Usage: modstats [day|week]")
		}
	}
	report, err := b.svc.Analytics.Report(ctx, call.Msg.GuildID, b.svc.Now().Add(-window))
	if err != nil {
		return b.failed(ctx, call, "moderation report failed", err)
	}
	return call.ReplyEmbed(ctx, reportEmbed(report, label, b.svc.Colors.Action))
}

func reportEmbed(report analytics.Report, label string, color int) *discordgo.MessageEmbed {
	description := fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d",
		report.Total, report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit])
	var fields []*discordgo.MessageEmbedField
	for _, event := range report.Events() {
		if len(fields) == 25 {
			break
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: event, Value: fmt.Sprintf("%d", report.ByEvent[event]), Inline: true})
	}
	return commandEmbed("Moderation activity ("+label+")", description, color, fields)
}

func settingLabel(setting string) string {
	switch setting {
	case "invisible":
		return "Block invisible members"
	case "reactions":
		return "Bot word reactions"
	default:
		return setting
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
