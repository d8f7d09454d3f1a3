package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm/clause"
)

func (s *Store) GetGuildPolicy(ctx context.Context, guildID string) (GuildPolicy, error) {
	var policy GuildPolicy
	err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&policy).Error
	if err != nil {
		return GuildPolicy{}, translate(err)
	}
	return policy, nil
}

// EnsureGuildPolicy creates the default row for a guild if none exists yet.
func (s *Store) EnsureGuildPolicy(ctx context.Context, guildID string) (GuildPolicy, error) {
	policy := GuildPolicy{GuildID: guildID}
	err := s.db.WithContext(ctx).Where(GuildPolicy{GuildID: guildID}).FirstOrCreate(&policy).Error
	if err == nil {
		return policy, nil
	}
	err = translate(err)
	if errors.Is(err, ErrDuplicate) {
		return s.GetGuildPolicy(ctx, guildID)
	}
	return GuildPolicy{}, err
}

func (s *Store) UpsertGuildPolicy(ctx context.Context, policy GuildPolicy) error {
	policy.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"block_invisible_members",
			"bot_word_reactions",
			"msg_on_join",
			"msg_on_leave",
			"msg_on_server_update",
			"msg_on_member_update",
			"updated_at",
		}),
	}).Create(&policy).Error
	return translate(err)
}

func (s *Store) ProfanityFilterChannels(ctx context.Context, guildID string) ([]ProfanityFilterChannel, error) {
	var channels []ProfanityFilterChannel
	err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("channel_name").Find(&channels).Error
	if err != nil {
		return nil, translate(err)
	}
	return channels, nil
}

func (s *Store) AddProfanityFilterChannel(ctx context.Context, channel ProfanityFilterChannel) error {
	return translate(s.db.WithContext(ctx).Create(&channel).Error)
}

func (s *Store) RemoveProfanityFilterChannel(ctx context.Context, channelID string) error {
	res := s.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&ProfanityFilterChannel{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
