package pipeline

import (
	"context"
	"errors"

	"sentinel-warden/internal/metrics"
	"sentinel-warden/internal/modules/audit"

	"go.uber.org/zap"
)

// execute carries out a terminal outcome. Each outbound call handles its own
// failure; nothing here is rolled back.
func (p *Pipeline) execute(ctx context.Context, msg Message, outcome Outcome) {
	switch outcome.Action {
	case ActionInvisibleBlock:
		p.deleteOrWarn(ctx, msg, "invisibility", msg.AuthorMention()+" members with an invisible status can't post here, but I can't delete your message.")
		p.notifyPrivately(ctx, msg, "invisibility", outcome.UserMessage)
		p.deps.Audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, audit.EventInvisibleDeleted, "channel "+msg.ChannelID)
	case ActionCensor:
		p.deleteOrWarn(ctx, msg, "profanity", msg.AuthorMention()+" please watch your language, I can't delete your message.")
		p.sendQuoted(ctx, msg, "profanity", outcome.Content)
		p.notifyPrivately(ctx, msg, "profanity", outcome.UserMessage)
		p.deps.Audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, audit.EventProfanityCensored, "channel "+msg.ChannelID)
	case ActionReact:
		p.send(ctx, msg, "reaction", msg.ChannelID, outcome.UserMessage)
	case ActionMuteBlock:
		p.deleteOrWarn(ctx, msg, "mute", msg.AuthorMention()+" you are muted, your command was ignored.")
		p.notifyPrivately(ctx, msg, "mute", outcome.UserMessage)
		p.deps.Audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, audit.EventMutedDeleted, "channel "+msg.ChannelID)
	case ActionExclusiveBlock:
		if msg.Private() {
			p.send(ctx, msg, "exclusive_users", msg.ChannelID, outcome.UserMessage)
			return
		}
		p.notifyPrivately(ctx, msg, "exclusive_users", outcome.UserMessage)
		p.deps.Audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.AuthorID, audit.EventExclusiveDenied, "")
	case ActionBlacklistBlock:
		p.send(ctx, msg, "blacklist", msg.ChannelID, outcome.UserMessage)
		p.deps.Audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.AuthorID, audit.EventBlacklistDenied, "channel "+msg.ChannelID)
	case ActionCustomReply:
		p.sendQuoted(ctx, msg, "custom_command", outcome.UserMessage)
	case ActionOwnerGreeting, ActionDMRefused, ActionDMNotAllowed:
		p.send(ctx, msg, "private", msg.ChannelID, outcome.UserMessage)
	case ActionDispatch:
		p.dispatch(ctx, msg)
	}
}

func (p *Pipeline) dispatch(ctx context.Context, msg Message) {
	if p.deps.Dispatcher == nil {
		return
	}
	name, args := msg.Command()
	if err := p.deps.Dispatcher.Dispatch(ctx, msg, name, args); err != nil {
		metrics.GateErrors.WithLabelValues("dispatch", errorKind(err)).Inc()
		p.deps.Logger.Error("command dispatch failed",
			zap.String("command", name),
			zap.String("guild_id", msg.GuildID),
			zap.String("channel_id", msg.ChannelID),
			zap.String("user_id", msg.AuthorID),
			zap.Error(err),
		)
	}
}

// deleteOrWarn removes the message. Without the permission to do so it posts
// warning in the channel instead.
func (p *Pipeline) deleteOrWarn(ctx context.Context, msg Message, gateName, warning string) {
	err := p.deps.Adapter.DeleteMessage(ctx, msg.ChannelID, msg.ID)
	if err == nil {
		return
	}
	p.outboundError(gateName, "delete failed", msg, err)
	if errors.Is(err, ErrForbidden) {
		p.send(ctx, msg, gateName, msg.ChannelID, warning)
	}
}

// notifyPrivately sends text to the author by direct message, falling back
// to a mention in the channel when the DM can't be delivered.
func (p *Pipeline) notifyPrivately(ctx context.Context, msg Message, gateName, text string) {
	if text == "" {
		return
	}
	err := p.deps.Adapter.SendDirectMessage(ctx, msg.AuthorID, text)
	if err == nil {
		return
	}
	p.outboundError(gateName, "direct message failed", msg, err)
	p.send(ctx, msg, gateName, msg.ChannelID, msg.AuthorMention()+" "+text)
}

func (p *Pipeline) send(ctx context.Context, msg Message, gateName, channelID, content string) {
	if content == "" {
		return
	}
	if err := p.deps.Adapter.SendMessage(ctx, channelID, content); err != nil {
		p.outboundError(gateName, "send failed", msg, err)
	}
}

// sendQuoted posts member-written text to the message's channel without
// letting it ping anyone.
func (p *Pipeline) sendQuoted(ctx context.Context, msg Message, gateName, content string) {
	if content == "" {
		return
	}
	if err := p.deps.Adapter.SendWithoutMentions(ctx, msg.ChannelID, content); err != nil {
		p.outboundError(gateName, "send failed", msg, err)
	}
}

func (p *Pipeline) outboundError(gateName, what string, msg Message, err error) {
	metrics.GateErrors.WithLabelValues(gateName, errorKind(err)).Inc()
	p.deps.Logger.Warn(what,
		zap.String("gate", gateName),
		zap.String("guild_id", msg.GuildID),
		zap.String("channel_id", msg.ChannelID),
		zap.String("user_id", msg.AuthorID),
		zap.Error(err),
	)
}
