// Package pipeline decides what happens to every inbound user message.
//
// Guild messages pass through a fixed sequence of gates; the first gate that
// terminates decides the single outcome, which is then carried out through
// the Adapter. Direct messages take a shorter path. Storage read failures
// skip the affected gate instead of blocking the message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sentinel-warden/internal/customcmd"
	"sentinel-warden/internal/metrics"
	"sentinel-warden/internal/moderation"
	"sentinel-warden/internal/modules/audit"
	"sentinel-warden/internal/modules/reaction"
	"sentinel-warden/internal/policy"

	"go.uber.org/zap"
)

type PolicySource interface {
	Get(ctx context.Context, guildID, channelID string) (policy.Policy, error)
}

type ModerationSource interface {
	Get(ctx context.Context, kind moderation.Kind, guildID, userID string) (moderation.Entry, bool, error)
}

type CustomCommandSource interface {
	Get(ctx context.Context, guildID, name string) (customcmd.Command, bool, error)
}

type ProfanityScanner interface {
	Scan(text string) (string, bool)
}

type ReactionMatcher interface {
	Match(text string, mentionsBot bool) bool
}

// Deps bundles the collaborators a pipeline run reads and writes.
type Deps struct {
	Policies   PolicySource
	Moderation ModerationSource
	Commands   CustomCommandSource
	Profanity  ProfanityScanner
	Reactions  ReactionMatcher
	Adapter    Adapter
	Dispatcher Dispatcher
	Audit      *audit.Logger
	Logger     *zap.Logger
}

type Options struct {
	OwnerID           string
	PrivateMode       bool
	ExclusiveUsers    []string
	DMAllowedCommands []string
	OwnerCommands     []string
}

type Pipeline struct {
	deps      Deps
	opts      Options
	exclusive map[string]struct{}
	dmAllowed map[string]struct{}
	gates     []gate
}

type gate struct {
	name  string
	check func(context.Context, *run) Outcome
}

// run carries one message through the gates.
type run struct {
	msg    Message
	policy *policy.Policy
}

func New(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	p := &Pipeline{
		deps:      deps,
		opts:      opts,
		exclusive: toSet(opts.ExclusiveUsers),
		dmAllowed: toSet(opts.DMAllowedCommands),
	}
	p.gates = []gate{
		{name: "invisibility", check: p.checkInvisibility},
		{name: "profanity", check: p.checkProfanity},
		{name: "reaction", check: p.checkReaction},
		{name: "prefix", check: p.checkPrefixed},
		{name: "prefix_sanity", check: p.checkPrefixSanity},
		{name: "mute", check: p.checkMute},
		{name: "exclusive_users", check: p.checkExclusive},
		{name: "blacklist", check: p.checkBlacklist},
		{name: "custom_command", check: p.checkCustomCommand},
	}
	return p
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			set[value] = struct{}{}
		}
	}
	return set
}

// Handle evaluates and carries out the outcome for msg. It returns the
// outcome that was applied.
func (p *Pipeline) Handle(ctx context.Context, msg Message) Outcome {
	if msg.AuthorIsBot || msg.AuthorID == "" {
		return Terminate(ActionIgnore, "")
	}

	path := "guild"
	var outcome Outcome
	if msg.Private() {
		path = "private"
		outcome = p.evaluatePrivate(ctx, msg)
	} else {
		outcome = p.Evaluate(ctx, msg)
	}
	metrics.GateOutcomes.WithLabelValues(path, string(outcome.Action)).Inc()
	p.execute(ctx, msg, outcome)
	return outcome
}

// Evaluate runs the guild gates in order and returns the first terminal
// outcome, or dispatch when none fires. It performs no outbound calls.
func (p *Pipeline) Evaluate(ctx context.Context, msg Message) Outcome {
	r := &run{msg: msg}
	if p.deps.Policies != nil {
		pol, err := p.deps.Policies.Get(ctx, msg.GuildID, msg.ChannelID)
		if err != nil {
			p.gateError("policy", msg, err)
		} else {
			r.policy = &pol
		}
	}

	for _, g := range p.gates {
		if outcome := g.check(ctx, r); outcome.Terminal {
			p.deps.Logger.Debug("gate fired",
				zap.String("gate", g.name),
				zap.String("action", string(outcome.Action)),
				zap.String("guild_id", msg.GuildID),
				zap.String("user_id", msg.AuthorID),
			)
			return outcome
		}
	}
	return Terminate(ActionDispatch, "")
}

func (p *Pipeline) checkInvisibility(_ context.Context, r *run) Outcome {
	if r.policy == nil || !r.policy.BlockInvisibleMembers || !r.msg.Offline() {
		return Continue()
	}
	return Terminate(ActionInvisibleBlock, "Your message was removed because members with an invisible status can't post in this server. Set your status to online and try again.")
}

func (p *Pipeline) checkProfanity(_ context.Context, r *run) Outcome {
	if r.policy == nil || !r.policy.ProfanityFilter || p.deps.Profanity == nil {
		return Continue()
	}
	censored, flagged := p.deps.Profanity.Scan(r.msg.Content)
	if !flagged {
		return Continue()
	}
	outcome := Terminate(ActionCensor, "Your message contained disallowed words and was censored.")
	outcome.Content = fmt.Sprintf("**%s** said: %s", displayName(r.msg), censored)
	return outcome
}

func (p *Pipeline) checkReaction(_ context.Context, r *run) Outcome {
	if r.policy == nil || !r.policy.BotWordReactions {
		return Continue()
	}
	return p.react(r.msg)
}

func (p *Pipeline) react(msg Message) Outcome {
	if p.deps.Reactions == nil || !p.deps.Reactions.Match(msg.Content, msg.MentionsBot) {
		return Continue()
	}
	return Terminate(ActionReact, reaction.Retort(msg.Content, msg.AuthorMention()))
}

func (p *Pipeline) checkPrefixed(_ context.Context, r *run) Outcome {
	if r.msg.Prefixed() {
		return Continue()
	}
	return Terminate(ActionIgnore, "")
}

func (p *Pipeline) checkPrefixSanity(_ context.Context, r *run) Outcome {
	if r.msg.saneCommand() {
		return Continue()
	}
	return Terminate(ActionNoise, "")
}

func (p *Pipeline) checkMute(ctx context.Context, r *run) Outcome {
	entry, found := p.moderationEntry(ctx, "mute", moderation.Mute, r.msg)
	if !found {
		return Continue()
	}
	return Terminate(ActionMuteBlock, withReason("You are muted in this server, so your commands are ignored.", entry.Reason))
}

func (p *Pipeline) checkExclusive(_ context.Context, r *run) Outcome {
	if p.allowedUser(r.msg.AuthorID) {
		return Continue()
	}
	return Terminate(ActionExclusiveBlock, "This bot is running in private mode and only answers its allowed users.")
}

func (p *Pipeline) allowedUser(userID string) bool {
	if !p.opts.PrivateMode || len(p.exclusive) == 0 {
		return true
	}
	if p.opts.OwnerID != "" && userID == p.opts.OwnerID {
		return true
	}
	_, ok := p.exclusive[strings.ToLower(userID)]
	return ok
}

func (p *Pipeline) checkBlacklist(ctx context.Context, r *run) Outcome {
	entry, found := p.moderationEntry(ctx, "blacklist", moderation.Blacklist, r.msg)
	if !found {
		return Continue()
	}
	return Terminate(ActionBlacklistBlock, withReason(r.msg.AuthorMention()+" you are blacklisted and can't use bot commands.", entry.Reason))
}

func (p *Pipeline) checkCustomCommand(ctx context.Context, r *run) Outcome {
	if p.deps.Commands == nil {
		return Continue()
	}
	name, _ := r.msg.Command()
	if name == "" {
		return Continue()
	}
	cmd, found, err := p.deps.Commands.Get(ctx, r.msg.GuildID, name)
	if err != nil {
		p.gateError("custom_command", r.msg, err)
		return Continue()
	}
	if !found {
		return Continue()
	}
	return Terminate(ActionCustomReply, cmd.Body)
}

func (p *Pipeline) moderationEntry(ctx context.Context, gateName string, kind moderation.Kind, msg Message) (moderation.Entry, bool) {
	if p.deps.Moderation == nil {
		return moderation.Entry{}, false
	}
	entry, found, err := p.deps.Moderation.Get(ctx, kind, msg.GuildID, msg.AuthorID)
	if err != nil {
		p.gateError(gateName, msg, err)
		return moderation.Entry{}, false
	}
	return entry, found
}

func (p *Pipeline) gateError(gateName string, msg Message, err error) {
	metrics.GateErrors.WithLabelValues(gateName, errorKind(err)).Inc()
	if errors.Is(err, policy.ErrNotConfigured) {
		p.deps.Logger.Warn("guild policy missing, skipping policy gates",
			zap.String("guild_id", msg.GuildID),
			zap.String("channel_id", msg.ChannelID),
		)
		return
	}
	p.deps.Logger.Warn("gate storage read failed, skipping",
		zap.String("gate", gateName),
		zap.String("guild_id", msg.GuildID),
		zap.String("channel_id", msg.ChannelID),
		zap.String("user_id", msg.AuthorID),
		zap.Error(err),
	)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUndeliverable):
		return "undeliverable"
	case errors.Is(err, policy.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

func withReason(text, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return text
	}
	return text + " Reason: " + reason
}

func displayName(msg Message) string {
	if msg.AuthorName != "" {
		return msg.AuthorName
	}
	return msg.AuthorID
}
