package storage

import "time"

type GuildPolicy struct {
	GuildID               string `gorm:"primaryKey;size:32"`
	BlockInvisibleMembers bool   `gorm:"not null;default:false"`
	BotWordReactions      bool   `gorm:"not null;default:false"`
	MsgOnJoin             bool   `gorm:"not null;default:false"`
	MsgOnLeave            bool   `gorm:"not null;default:false"`
	MsgOnServerUpdate     bool   `gorm:"not null;default:false"`
	MsgOnMemberUpdate     bool   `gorm:"not null;default:false"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type ProfanityFilterChannel struct {
	ChannelID   string `gorm:"primaryKey;size:32"`
	GuildID     string `gorm:"index;size:32;not null"`
	ChannelName string `gorm:"size:100"`
	EnabledBy   string `gorm:"size:32"`
	CreatedAt   time.Time
}

const (
	KindBlacklist = "blacklist"
	KindMute      = "mute"
)

type ModerationEntry struct {
	ID        uint   `gorm:"primaryKey"`
	Kind      string `gorm:"size:16;not null;uniqueIndex:idx_moderation_key"`
	GuildID   string `gorm:"size:32;not null;uniqueIndex:idx_moderation_key"`
	UserID    string `gorm:"size:32;not null;uniqueIndex:idx_moderation_key"`
	Reason    string `gorm:"size:64"`
	CreatedBy string `gorm:"size:32"`
	CreatedAt time.Time
}

type CustomCommand struct {
	ID        uint   `gorm:"primaryKey"`
	GuildID   string `gorm:"size:32;not null;uniqueIndex:idx_custom_command_key"`
	Name      string `gorm:"size:64;not null;uniqueIndex:idx_custom_command_key"`
	Body      string `gorm:"type:text;not null"`
	CreatedBy string `gorm:"size:32"`
	UpdatedBy string `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey"`
	GuildID   string    `gorm:"size:32;index"`
	UserID    string    `gorm:"size:32"`
	Level     string    `gorm:"size:8"`
	Event     string    `gorm:"size:64"`
	Details   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}
