package storage

import (
	"context"
	"time"
)

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	return translate(s.db.WithContext(ctx).Create(&log).Error)
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	var logs []AuditLog
	err := s.db.WithContext(ctx).
		Where("guild_id = ? AND created_at >= ?", guildID, since).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return translate(s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&AuditLog{}).Error)
}
