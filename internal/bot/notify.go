package bot

import (
	"context"
	"time"

	"sentinel-warden/internal/config"
	"sentinel-warden/internal/modules/audit"
	"sentinel-warden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type embedSender interface {
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// auditNotifier forwards WARN and CRIT audit events to the configured log channel.
func auditNotifier(sender embedSender, notify config.NotifyConfig, logger *zap.Logger) func(context.Context, storage.AuditLog) {
	return func(ctx context.Context, entry storage.AuditLog) {
		if entry.Level == audit.LevelInfo {
			return
		}
		if err := sender.SendEmbed(ctx, notify.LogChannelID, auditEmbed(entry, notify.EmbedColors)); err != nil {
			logger.Warn("audit notification failed",
				zap.String("guild_id", entry.GuildID),
				zap.String("event", entry.Event),
				zap.Error(err),
			)
		}
	}
}

func auditEmbed(entry storage.AuditLog, colors config.EmbedColors) *discordgo.MessageEmbed {
	color := colors.Warning
	if entry.Level == audit.LevelCrit {
		color = colors.Error
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Level", Value: entry.Level, Inline: true},
		{Name: "Guild", Value: entry.GuildID, Inline: true},
	}
	if entry.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "User", Value: "<@" + entry.UserID + ">", Inline: true})
	}
	description := entry.Details
	if description == "" {
		description = "-"
	}
	return &discordgo.MessageEmbed{
		Title:       entry.Event,
		Description: description,
		Color:       color,
		Timestamp:   entry.CreatedAt.Format(time.RFC3339),
		Fields:      fields,
	}
}
