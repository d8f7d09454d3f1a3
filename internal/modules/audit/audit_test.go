package audit

import (
	"context"
	"testing"
	"time"

	"sentinel-warden/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogPersistsAndNotifies(t *testing.T) {
	st, err := storage.Open("sqlite://:memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Migrate())

	logger := NewLogger(st, zap.NewNop())
	var notified []storage.AuditLog
	logger.SetNotifier(func(_ context.Context, entry storage.AuditLog) {
		notified = append(notified, entry)
	})

	ctx := context.Background()
	logger.Log(ctx, LevelWarn, "g1", "u1", EventMutedDeleted, "deleted")
	require.Len(t, notified, 1)
	require.Equal(t, EventMutedDeleted, notified[0].Event)

	logs, err := st.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, LevelWarn, logs[0].Level)

	logger.Cleanup(ctx, 30)
	logs, err = st.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestNilLogger(t *testing.T) {
	var logger *Logger
	logger.Log(context.Background(), LevelInfo, "g", "u", "e", "d")
	logger.Cleanup(context.Background(), 1)
}
