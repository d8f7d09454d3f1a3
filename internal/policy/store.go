// Package policy serves per-guild moderation flags to the message pipeline.
//
// Reads go through a small expiring cache. Every write made through this
// package drops the guild's cache entry so the next read sees it.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinel-warden/internal/storage"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var ErrNotConfigured = errors.New("guild policy not configured")

// Policy is the view of a guild's flags for one channel.
type Policy struct {
	GuildID               string
	BlockInvisibleMembers bool
	BotWordReactions      bool
	ProfanityFilter       bool
}

type guildState struct {
	policy   storage.GuildPolicy
	filtered map[string]struct{}
}

type Store struct {
	store *storage.Store
	cache *expirable.LRU[string, guildState]
}

func NewStore(store *storage.Store, size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = 1024
	}
	return &Store{
		store: store,
		cache: expirable.NewLRU[string, guildState](size, nil, ttl),
	}
}

func (s *Store) Get(ctx context.Context, guildID, channelID string) (Policy, error) {
	state, err := s.load(ctx, guildID)
	if err != nil {
		return Policy{}, err
	}
	_, filtered := state.filtered[channelID]
	return Policy{
		GuildID:               guildID,
		BlockInvisibleMembers: state.policy.BlockInvisibleMembers,
		BotWordReactions:      state.policy.BotWordReactions,
		ProfanityFilter:       filtered,
	}, nil
}

func (s *Store) load(ctx context.Context, guildID string) (guildState, error) {
	if state, ok := s.cache.Get(guildID); ok {
		return state, nil
	}
	row, err := s.store.GetGuildPolicy(ctx, guildID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return guildState{}, fmt.Errorf("%w: guild %s", ErrNotConfigured, guildID)
		}
		return guildState{}, err
	}
	channels, err := s.store.ProfanityFilterChannels(ctx, guildID)
	if err != nil {
		return guildState{}, err
	}
	state := guildState{policy: row, filtered: make(map[string]struct{}, len(channels))}
	for _, ch := range channels {
		state.filtered[ch.ChannelID] = struct{}{}
	}
	s.cache.Add(guildID, state)
	return state, nil
}

// Settings returns the raw row, used by the config command.
func (s *Store) Settings(ctx context.Context, guildID string) (storage.GuildPolicy, []storage.ProfanityFilterChannel, error) {
	row, err := s.store.GetGuildPolicy(ctx, guildID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.GuildPolicy{}, nil, ErrNotConfigured
		}
		return storage.GuildPolicy{}, nil, err
	}
	channels, err := s.store.ProfanityFilterChannels(ctx, guildID)
	if err != nil {
		return storage.GuildPolicy{}, nil, err
	}
	return row, channels, nil
}

func (s *Store) Ensure(ctx context.Context, guildID string) error {
	defer s.cache.Remove(guildID)
	_, err := s.store.EnsureGuildPolicy(ctx, guildID)
	return err
}

func (s *Store) SetBlockInvisible(ctx context.Context, guildID string, enabled bool) error {
	return s.update(ctx, guildID, func(p *storage.GuildPolicy) { p.BlockInvisibleMembers = enabled })
}

func (s *Store) SetBotWordReactions(ctx context.Context, guildID string, enabled bool) error {
	return s.update(ctx, guildID, func(p *storage.GuildPolicy) { p.BotWordReactions = enabled })
}

func (s *Store) update(ctx context.Context, guildID string, apply func(*storage.GuildPolicy)) error {
	defer s.cache.Remove(guildID)
	row, err := s.store.EnsureGuildPolicy(ctx, guildID)
	if err != nil {
		return err
	}
	apply(&row)
	return s.store.UpsertGuildPolicy(ctx, row)
}

// ToggleProfanityFilter flips filtering for a channel and reports the new state.
func (s *Store) ToggleProfanityFilter(ctx context.Context, guildID, channelID, channelName, userID string) (bool, error) {
	defer s.cache.Remove(guildID)
	err := s.store.RemoveProfanityFilterChannel(ctx, channelID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	err = s.store.AddProfanityFilterChannel(ctx, storage.ProfanityFilterChannel{
		ChannelID:   channelID,
		GuildID:     guildID,
		ChannelName: channelName,
		EnabledBy:   userID,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, guildID string) error {
	defer s.cache.Remove(guildID)
	return s.store.DeleteGuild(ctx, guildID)
}
