// Package commands is the explicit command table the message pipeline falls
// through to. Handlers are registered once at startup, keyed by exact name.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sentinel-warden/internal/metrics"
	"sentinel-warden/internal/pipeline"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrDuplicateName  = errors.New("command already registered")
)

// Directory answers questions about guild members and channels.
type Directory interface {
	IsAdmin(ctx context.Context, guildID, userID string) (bool, error)
	ChannelName(ctx context.Context, channelID string) string
}

type Handler func(ctx context.Context, call *Call) error

type Command struct {
	Name      string
	Usage     string
	Help      string
	AdminOnly bool
	GuildOnly bool
	Run       Handler
}

// Call is one invocation of a command.
type Call struct {
	Msg  pipeline.Message
	Name string
	Args []string

	registry *Registry
}

func (c *Call) Reply(ctx context.Context, content string) error {
	return c.registry.adapter.SendMessage(ctx, c.Msg.ChannelID, content)
}

func (c *Call) ReplyEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	return c.registry.adapter.SendEmbed(ctx, c.Msg.ChannelID, embed)
}

type Registry struct {
	commands  map[string]Command
	adapter   pipeline.Adapter
	directory Directory
	ownerID   string
	logger    *zap.Logger
}

func NewRegistry(adapter pipeline.Adapter, directory Directory, ownerID string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		commands:  make(map[string]Command),
		adapter:   adapter,
		directory: directory,
		ownerID:   ownerID,
		logger:    logger,
	}
}

func (r *Registry) Register(cmd Command) error {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" || cmd.Run == nil {
		return fmt.Errorf("invalid command %q", cmd.Name)
	}
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	cmd.Name = name
	r.commands[name] = cmd
	return nil
}

func (r *Registry) IsBuiltin(name string) bool {
	_, ok := r.commands[strings.ToLower(name)]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, name := range r.Names() {
		out = append(out, r.commands[name])
	}
	return out
}

// Dispatch runs the named command. Unknown names are ignored so that other
// bots sharing the prefix don't trigger replies.
func (r *Registry) Dispatch(ctx context.Context, msg pipeline.Message, name string, args []string) error {
	cmd, ok := r.commands[name]
	if !ok {
		r.logger.Debug("unknown command", zap.String("command", name), zap.String("guild_id", msg.GuildID))
		return nil
	}
	call := &Call{Msg: msg, Name: name, Args: args, registry: r}

	if cmd.GuildOnly && msg.Private() {
		return call.Reply(ctx, "This command only works in a server.")
	}
	if cmd.AdminOnly {
		allowed, err := r.isAdmin(ctx, msg)
		if err != nil {
			r.logger.Warn("permission lookup failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.AuthorID), zap.Error(err))
		}
		if !allowed {
			return call.Reply(ctx, "You need the Administrator permission to use this command.")
		}
	}

	start := time.Now()
	err := cmd.Run(ctx, call)
	metrics.DispatchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("command %s: %w", name, err)
	}
	return nil
}

func (r *Registry) isAdmin(ctx context.Context, msg pipeline.Message) (bool, error) {
	if r.ownerID != "" && msg.AuthorID == r.ownerID {
		return true, nil
	}
	if r.directory == nil || msg.Private() {
		return false, nil
	}
	return r.directory.IsAdmin(ctx, msg.GuildID, msg.AuthorID)
}
