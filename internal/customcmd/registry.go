package customcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"sentinel-warden/internal/storage"
)

var (
	ErrAlreadyBuiltin = errors.New("name is already a built-in command")
	ErrAlreadyExists  = errors.New("custom command already exists")
	ErrNotFound       = errors.New("custom command not found")
	ErrInvalidName    = errors.New("invalid command name")
	ErrEmptyBody      = errors.New("command text is empty")
)

type Command struct {
	GuildID   string
	Name      string
	Body      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// Builtins reports whether a name is taken by the live command table.
type Builtins interface {
	IsBuiltin(name string) bool
}

type Registry struct {
	store    *storage.Store
	builtins Builtins
	now      func() time.Time
}

func NewRegistry(store *storage.Store, builtins Builtins) *Registry {
	return &Registry{store: store, builtins: builtins, now: time.Now}
}

// SetBuiltins wires the command table once it exists; the table itself needs the registry.
func (r *Registry) SetBuiltins(builtins Builtins) {
	r.builtins = builtins
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// validName mirrors the prefix sanity rule: a name that does not start with a
// letter could never be invoked.
func validName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	if first, _ := utf8.DecodeRuneInString(name); !unicode.IsLetter(first) {
		return false
	}
	return !strings.ContainsAny(name, " \t\r\n")
}

// Create checks the built-in table only here; a built-in added later with the
// same name is not detected and the custom command keeps shadowing it.
func (r *Registry) Create(ctx context.Context, guildID, author, name, text string) (Command, error) {
	name = NormalizeName(name)
	if !validName(name) {
		return Command{}, ErrInvalidName
	}
	if strings.TrimSpace(text) == "" {
		return Command{}, ErrEmptyBody
	}
	if r.builtins != nil && r.builtins.IsBuiltin(name) {
		return Command{}, ErrAlreadyBuiltin
	}

	_, found, err := r.Get(ctx, guildID, name)
	if err != nil {
		return Command{}, err
	}
	if found {
		return Command{}, ErrAlreadyExists
	}

	now := r.now()
	row := &storage.CustomCommand{
		GuildID:   guildID,
		Name:      name,
		Body:      text,
		CreatedBy: author,
		UpdatedBy: author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateCustomCommand(ctx, row); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return Command{}, ErrAlreadyExists
		}
		return Command{}, fmt.Errorf("create custom command: %w", err)
	}
	return fromRow(*row), nil
}

func (r *Registry) Update(ctx context.Context, guildID, editor, name, text string) error {
	name = NormalizeName(name)
	if strings.TrimSpace(text) == "" {
		return ErrEmptyBody
	}
	err := r.store.UpdateCustomCommand(ctx, guildID, name, text, editor, r.now())
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update custom command: %w", err)
	}
	return nil
}

func (r *Registry) Delete(ctx context.Context, guildID, name string) error {
	err := r.store.DeleteCustomCommand(ctx, guildID, NormalizeName(name))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete custom command: %w", err)
	}
	return nil
}

// DeleteAll reports how many commands were removed. A guild without commands is not written to.
func (r *Registry) DeleteAll(ctx context.Context, guildID string) (int, error) {
	count, err := r.store.CountCustomCommands(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("count custom commands: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	removed, err := r.store.DeleteCustomCommands(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("delete custom commands: %w", err)
	}
	return int(removed), nil
}

func (r *Registry) Get(ctx context.Context, guildID, name string) (Command, bool, error) {
	row, err := r.store.GetCustomCommand(ctx, guildID, NormalizeName(name))
	if errors.Is(err, storage.ErrNotFound) {
		return Command{}, false, nil
	}
	if err != nil {
		return Command{}, false, fmt.Errorf("get custom command: %w", err)
	}
	return fromRow(row), true, nil
}

func (r *Registry) List(ctx context.Context, guildID string) ([]Command, error) {
	rows, err := r.store.ListCustomCommands(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list custom commands: %w", err)
	}
	cmds := make([]Command, 0, len(rows))
	for _, row := range rows {
		cmds = append(cmds, fromRow(row))
	}
	return cmds, nil
}

func fromRow(row storage.CustomCommand) Command {
	return Command{
		GuildID:   row.GuildID,
		Name:      row.Name,
		Body:      row.Body,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
		UpdatedBy: row.UpdatedBy,
		UpdatedAt: row.UpdatedAt,
	}
}
