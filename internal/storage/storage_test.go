package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite://:memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())
	return store
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open("redis://localhost:6379", zap.NewNop())
	require.Error(t, err)
	require.NotContains(t, err.Error(), "localhost")
}

func TestUpsertGuildPolicy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetGuildPolicy(ctx, "g1")
	require.ErrorIs(t, err, ErrNotFound)

	policy, err := store.EnsureGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	require.False(t, policy.BlockInvisibleMembers)

	policy.BlockInvisibleMembers = true
	require.NoError(t, store.UpsertGuildPolicy(ctx, policy))

	again, err := store.EnsureGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	require.True(t, again.BlockInvisibleMembers)
	require.False(t, again.BotWordReactions)
}

func TestModerationEntryUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &ModerationEntry{Kind: KindMute, GuildID: "g1", UserID: "u1", Reason: "spam", CreatedBy: "admin"}
	require.NoError(t, store.CreateModerationEntry(ctx, entry))

	dup := &ModerationEntry{Kind: KindMute, GuildID: "g1", UserID: "u1", CreatedBy: "admin2"}
	err := store.CreateModerationEntry(ctx, dup)
	require.True(t, errors.Is(err, ErrDuplicate), "got %v", err)

	// Same user in the other registry is independent.
	require.NoError(t, store.CreateModerationEntry(ctx, &ModerationEntry{Kind: KindBlacklist, GuildID: "g1", UserID: "u1"}))

	got, err := store.GetModerationEntry(ctx, KindMute, "g1", "u1")
	require.NoError(t, err)
	require.Equal(t, "spam", got.Reason)

	require.NoError(t, store.DeleteModerationEntry(ctx, KindMute, "g1", "u1"))
	require.ErrorIs(t, store.DeleteModerationEntry(ctx, KindMute, "g1", "u1"), ErrNotFound)

	count, err := store.CountModerationEntries(ctx, KindBlacklist, "g1")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestCustomCommandLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCustomCommand(ctx, &CustomCommand{GuildID: "g1", Name: "rules", Body: "be nice", CreatedBy: "a"}))
	require.NoError(t, store.CreateCustomCommand(ctx, &CustomCommand{GuildID: "g1", Name: "faq", Body: "see pins", CreatedBy: "a"}))
	err := store.CreateCustomCommand(ctx, &CustomCommand{GuildID: "g1", Name: "faq", Body: "dup"})
	require.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, store.UpdateCustomCommand(ctx, "g1", "faq", "read the wiki", "b", time.Now()))
	require.ErrorIs(t, store.UpdateCustomCommand(ctx, "g1", "missing", "x", "b", time.Now()), ErrNotFound)

	cmds, err := store.ListCustomCommands(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	require.Equal(t, "faq", cmds[0].Name)
	require.Equal(t, "read the wiki", cmds[0].Body)
	require.Equal(t, "b", cmds[0].UpdatedBy)

	removed, err := store.DeleteCustomCommands(ctx, "g1")
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
}

func TestDeleteGuildCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EnsureGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	_, err = store.EnsureGuildPolicy(ctx, "g2")
	require.NoError(t, err)
	require.NoError(t, store.AddProfanityFilterChannel(ctx, ProfanityFilterChannel{ChannelID: "c1", GuildID: "g1", ChannelName: "general"}))
	require.NoError(t, store.CreateModerationEntry(ctx, &ModerationEntry{Kind: KindBlacklist, GuildID: "g1", UserID: "u1"}))
	require.NoError(t, store.CreateCustomCommand(ctx, &CustomCommand{GuildID: "g1", Name: "x", Body: "y"}))
	require.NoError(t, store.AddAuditLog(ctx, AuditLog{GuildID: "g1", Level: "INFO", Event: "test", CreatedAt: time.Now()}))

	require.NoError(t, store.DeleteGuild(ctx, "g1"))

	_, err = store.GetGuildPolicy(ctx, "g1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetGuildPolicy(ctx, "g2")
	require.NoError(t, err)

	channels, err := store.ProfanityFilterChannels(ctx, "g1")
	require.NoError(t, err)
	require.Empty(t, channels)
	_, err = store.GetModerationEntry(ctx, KindBlacklist, "g1", "u1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetCustomCommand(ctx, "g1", "x")
	require.ErrorIs(t, err, ErrNotFound)
	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Empty(t, logs)
}
