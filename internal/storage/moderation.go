package storage

import "context"

func (s *Store) GetModerationEntry(ctx context.Context, kind, guildID, userID string) (ModerationEntry, error) {
	var entry ModerationEntry
	err := s.db.WithContext(ctx).
		Where("kind = ? AND guild_id = ? AND user_id = ?", kind, guildID, userID).
		First(&entry).Error
	if err != nil {
		return ModerationEntry{}, translate(err)
	}
	return entry, nil
}

func (s *Store) CreateModerationEntry(ctx context.Context, entry *ModerationEntry) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *Store) DeleteModerationEntry(ctx context.Context, kind, guildID, userID string) error {
	res := s.db.WithContext(ctx).
		Where("kind = ? AND guild_id = ? AND user_id = ?", kind, guildID, userID).
		Delete(&ModerationEntry{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountModerationEntries(ctx context.Context, kind, guildID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ModerationEntry{}).
		Where("kind = ? AND guild_id = ?", kind, guildID).
		Count(&count).Error
	return count, translate(err)
}

func (s *Store) DeleteModerationEntries(ctx context.Context, kind, guildID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("kind = ? AND guild_id = ?", kind, guildID).
		Delete(&ModerationEntry{})
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) ListModerationEntries(ctx context.Context, kind, guildID string) ([]ModerationEntry, error) {
	var entries []ModerationEntry
	err := s.db.WithContext(ctx).
		Where("kind = ? AND guild_id = ?", kind, guildID).
		Order("created_at").
		Find(&entries).Error
	if err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
