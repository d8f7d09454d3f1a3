package audit

import (
	"context"
	"time"

	"sentinel-warden/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Event names recorded by the message pipeline and the admin commands.
const (
	EventInvisibleDeleted  = "invisible_deleted"
	EventProfanityCensored = "profanity_censored"
	EventMutedDeleted      = "muted_deleted"
	EventBlacklistDenied   = "blacklist_denied"
	EventExclusiveDenied   = "exclusive_denied"
	EventModerationAdded   = "moderation_added"
	EventModerationRemoved = "moderation_removed"
	EventCustomCommand     = "custom_command_changed"
	EventPolicyChanged     = "policy_changed"
)

type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

// Log records an event. A nil Logger is a no-op; persistence failures are
// logged and otherwise ignored.
func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	if l == nil {
		return
	}
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit persist failed", zap.String("event", event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}

// Cleanup drops entries older than retentionDays.
func (l *Logger) Cleanup(ctx context.Context, retentionDays int) {
	if l == nil || l.store == nil || retentionDays <= 0 {
		return
	}
	if err := l.store.CleanupAuditLogs(ctx, retentionDays); err != nil {
		l.logger.Warn("audit cleanup failed", zap.Error(err))
	}
}
