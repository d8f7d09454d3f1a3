package storage

import (
	"context"
	"time"
)

func (s *Store) GetCustomCommand(ctx context.Context, guildID, name string) (CustomCommand, error) {
	var cmd CustomCommand
	err := s.db.WithContext(ctx).Where("guild_id = ? AND name = ?", guildID, name).First(&cmd).Error
	if err != nil {
		return CustomCommand{}, translate(err)
	}
	return cmd, nil
}

func (s *Store) CreateCustomCommand(ctx context.Context, cmd *CustomCommand) error {
	return translate(s.db.WithContext(ctx).Create(cmd).Error)
}

func (s *Store) UpdateCustomCommand(ctx context.Context, guildID, name, body, editor string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&CustomCommand{}).
		Where("guild_id = ? AND name = ?", guildID, name).
		Updates(map[string]any{
			"body":       body,
			"updated_by": editor,
			"updated_at": at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCustomCommand(ctx context.Context, guildID, name string) error {
	res := s.db.WithContext(ctx).Where("guild_id = ? AND name = ?", guildID, name).Delete(&CustomCommand{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountCustomCommands(ctx context.Context, guildID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&CustomCommand{}).Where("guild_id = ?", guildID).Count(&count).Error
	return count, translate(err)
}

func (s *Store) DeleteCustomCommands(ctx context.Context, guildID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Delete(&CustomCommand{})
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) ListCustomCommands(ctx context.Context, guildID string) ([]CustomCommand, error) {
	var cmds []CustomCommand
	err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("name ASC").Find(&cmds).Error
	if err != nil {
		return nil, translate(err)
	}
	return cmds, nil
}
