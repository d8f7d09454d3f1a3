package commands

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"sentinel-warden/internal/analytics"
	"sentinel-warden/internal/config"
	"sentinel-warden/internal/customcmd"
	"sentinel-warden/internal/moderation"
	"sentinel-warden/internal/modules/audit"
	"sentinel-warden/internal/policy"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxDice  = 100
	maxSides = 1000
)

// Services holds what the built-in commands read and write.
type Services struct {
	Policies  *policy.Store
	Ledger    *moderation.Ledger
	Custom    *customcmd.Registry
	Analytics *analytics.Service
	Audit     *audit.Logger
	Colors    config.EmbedColors
	Logger    *zap.Logger
	// Roll returns a number in [1, sides]; nil uses math/rand.
	Roll func(sides int) int
	Now  func() time.Time
}

type builtins struct {
	reg *Registry
	svc Services
}

// RegisterBuiltins installs every built-in command on reg.
func RegisterBuiltins(reg *Registry, svc Services) error {
	if svc.Logger == nil {
		svc.Logger = zap.NewNop()
	}
	if svc.Roll == nil {
		svc.Roll = func(sides int) int { return rand.Intn(sides) + 1 }
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	b := &builtins{reg: reg, svc: svc}

	cmds := []Command{
		{Name: "ping", Usage: "ping", Help: "Check that the bot is alive.", Run: b.ping},
		{Name: "roll", Usage: "roll [NdM]", Help: "Roll dice, 1d6 by default.", Run: b.roll},
		{Name: "help", Usage: "help", Help: "List the available commands.", Run: b.help},
		{Name: "blacklist", Usage: "blacklist add|remove|removeall|list [user] [reason]", Help: "Stop members from using bot commands.", AdminOnly: true, GuildOnly: true, Run: b.moderationCommand(moderation.Blacklist)},
		{Name: "mute", Usage: "mute add|remove|removeall|list [user] [reason]", Help: "Delete every command a member sends.", AdminOnly: true, GuildOnly: true, Run: b.moderationCommand(moderation.Mute)},
		{Name: "customcom", Usage: "customcom add|edit|remove|removeall|list [name] [text]", Help: "Manage this server's custom commands.", AdminOnly: true, GuildOnly: true, Run: b.customCommand},
		{Name: "config", Usage: "config invisible on|off | reactions on|off | pfilter | show", Help: "Change the moderation settings of this server.", AdminOnly: true, GuildOnly: true, Run: b.configure},
		{Name: "modstats", Usage: "modstats [day|week]", Help: "Summarise recent moderation activity.", AdminOnly: true, GuildOnly: true, Run: b.modstats},
	}
	for _, cmd := range cmds {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *builtins) ping(ctx context.Context, call *Call) error {
	return call.Reply(ctx, "Pong!")
}

func (b *builtins) roll(ctx context.Context, call *Call) error {
	dice, sides := 1, 6
	if len(call.Args) > 0 {
		var ok bool
		dice, sides, ok = parseDice(call.Args[0])
		if !ok {
			return call.Reply(ctx, fmt.Sprintf("Usage: roll [NdM], up to %dd%d.", maxDice, maxSides))
		}
	}

	rolls := make([]string, 0, dice)
	total := 0
	for i := 0; i < dice; i++ {
		value := b.svc.Roll(sides)
		total += value
		rolls = append(rolls, strconv.Itoa(value))
	}
	if dice == 1 {
		return call.Reply(ctx, fmt.Sprintf("%s rolled **%d** (1d%d)", call.Msg.AuthorMention(), total, sides))
	}
	return call.Reply(ctx, fmt.Sprintf("%s rolled **%d** (%dd%d: %s)", call.Msg.AuthorMention(), total, dice, sides, strings.Join(rolls, ", ")))
}

func parseDice(arg string) (int, int, bool) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	left, right, found := strings.Cut(arg, "d")
	if !found {
		return 0, 0, false
	}
	dice := 1
	if left != "" {
		n, err := strconv.Atoi(left)
		if err != nil {
			return 0, 0, false
		}
		dice = n
	}
	sides, err := strconv.Atoi(right)
	if err != nil {
		return 0, 0, false
	}
	if dice < 1 || dice > maxDice || sides < 2 || sides > maxSides {
		return 0, 0, false
	}
	return dice, sides, true
}

func (b *builtins) help(ctx context.Context, call *Call) error {
	var lines []string
	for _, cmd := range b.reg.Commands() {
		if cmd.GuildOnly && call.Msg.Private() {
			continue
		}
		line := fmt.Sprintf("`%s%s` %s", call.Msg.Prefix, cmd.Usage, cmd.Help)
		if cmd.AdminOnly {
			line += " (admin)"
		}
		lines = append(lines, line)
	}
	embed := commandEmbed("Commands", strings.Join(lines, "\n"), b.svc.Colors.Action, nil)

	if !call.Msg.Private() && b.svc.Custom != nil {
		custom, err := b.svc.Custom.List(ctx, call.Msg.GuildID)
		if err != nil {
			b.svc.Logger.Warn("custom command list failed", zap.String("guild_id", call.Msg.GuildID), zap.Error(err))
		} else if len(custom) > 0 {
			names := make([]string, 0, len(custom))
			for _, cmd := range custom {
				names = append(names, "`"+call.Msg.Prefix+cmd.Name+"`")
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Custom commands", Value: truncate(strings.Join(names, " "), 1024)})
		}
	}
	return call.ReplyEmbed(ctx, embed)
}

// failed reports a storage failure to the admin without details.
func (b *builtins) failed(ctx context.Context, call *Call, what string, err error) error {
	b.svc.Logger.Warn(what,
		zap.String("guild_id", call.Msg.GuildID),
		zap.String("user_id", call.Msg.AuthorID),
		zap.String("command", call.Name),
		zap.Error(err),
	)
	return call.Reply(ctx, "Something went wrong, please try again later.")
}

func commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
