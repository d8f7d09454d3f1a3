package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"sentinel-warden/internal/storage"
)

type Kind string

const (
	Blacklist Kind = storage.KindBlacklist
	Mute      Kind = storage.KindMute
)

const MaxReasonLength = 29

var (
	ErrAlreadyExists = errors.New("entry already exists")
	ErrNotFound      = errors.New("entry not found")
	ErrReasonTooLong = fmt.Errorf("reason must be at most %d characters", MaxReasonLength)
	ErrUnknownKind   = errors.New("unknown moderation kind")
)

type Entry struct {
	Kind        Kind
	GuildID     string
	UserID      string
	Reason      string
	CreatedBy   string
	CreatedAt   time.Time
	DisplayName string
}

// NameResolver maps a guild member to the name shown in listings.
type NameResolver func(ctx context.Context, guildID, userID string) string

type Ledger struct {
	store *storage.Store
	names NameResolver
	now   func() time.Time
}

func NewLedger(store *storage.Store, names NameResolver) *Ledger {
	if names == nil {
		names = func(_ context.Context, _, userID string) string { return userID }
	}
	return &Ledger{store: store, names: names, now: time.Now}
}

func ValidateReason(reason string) error {
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return ErrReasonTooLong
	}
	return nil
}

func (k Kind) valid() bool {
	return k == Blacklist || k == Mute
}

// Add records an entry. When one is already present it is returned together
// with ErrAlreadyExists and nothing is written.
func (l *Ledger) Add(ctx context.Context, kind Kind, guildID, userID, author, reason string) (Entry, error) {
	if !kind.valid() {
		return Entry{}, ErrUnknownKind
	}
	reason = strings.TrimSpace(reason)
	if err := ValidateReason(reason); err != nil {
		return Entry{}, err
	}

	existing, found, err := l.Get(ctx, kind, guildID, userID)
	if err != nil {
		return Entry{}, err
	}
	if found {
		return existing, ErrAlreadyExists
	}

	row := &storage.ModerationEntry{
		Kind:      string(kind),
		GuildID:   guildID,
		UserID:    userID,
		Reason:    reason,
		CreatedBy: author,
		CreatedAt: l.now(),
	}
	if err := l.store.CreateModerationEntry(ctx, row); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost a race with a concurrent add.
			existing, found, getErr := l.Get(ctx, kind, guildID, userID)
			if getErr == nil && found {
				return existing, ErrAlreadyExists
			}
			return Entry{}, ErrAlreadyExists
		}
		return Entry{}, fmt.Errorf("add %s entry: %w", kind, err)
	}
	return fromRow(*row), nil
}

func (l *Ledger) Remove(ctx context.Context, kind Kind, guildID, userID string) error {
	if !kind.valid() {
		return ErrUnknownKind
	}
	err := l.store.DeleteModerationEntry(ctx, string(kind), guildID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove %s entry: %w", kind, err)
	}
	return nil
}

// RemoveAll reports how many entries were removed. An empty registry is not written to.
func (l *Ledger) RemoveAll(ctx context.Context, kind Kind, guildID string) (int, error) {
	if !kind.valid() {
		return 0, ErrUnknownKind
	}
	count, err := l.store.CountModerationEntries(ctx, string(kind), guildID)
	if err != nil {
		return 0, fmt.Errorf("count %s entries: %w", kind, err)
	}
	if count == 0 {
		return 0, nil
	}
	removed, err := l.store.DeleteModerationEntries(ctx, string(kind), guildID)
	if err != nil {
		return 0, fmt.Errorf("remove %s entries: %w", kind, err)
	}
	return int(removed), nil
}

func (l *Ledger) Get(ctx context.Context, kind Kind, guildID, userID string) (Entry, bool, error) {
	row, err := l.store.GetModerationEntry(ctx, string(kind), guildID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s entry: %w", kind, err)
	}
	return fromRow(row), true, nil
}

// List returns the guild's entries ordered by display name.
func (l *Ledger) List(ctx context.Context, kind Kind, guildID string) ([]Entry, error) {
	if !kind.valid() {
		return nil, ErrUnknownKind
	}
	rows, err := l.store.ListModerationEntries(ctx, string(kind), guildID)
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", kind, err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := fromRow(row)
		entry.DisplayName = l.names(ctx, guildID, row.UserID)
		if entry.DisplayName == "" {
			entry.DisplayName = row.UserID
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].DisplayName) < strings.ToLower(entries[j].DisplayName)
	})
	return entries, nil
}

func fromRow(row storage.ModerationEntry) Entry {
	return Entry{
		Kind:      Kind(row.Kind),
		GuildID:   row.GuildID,
		UserID:    row.UserID,
		Reason:    row.Reason,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}
}
