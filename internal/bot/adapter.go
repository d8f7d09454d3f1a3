package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"sentinel-warden/internal/pipeline"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord JSON error codes.
const (
	codeCannotMessageUser  = 50007
	codeMissingPermissions = 50013
	codeMissingAccess      = 50001
)

// Adapter carries pipeline and command output to Discord and answers member
// lookups from the session state, falling back to REST.
type Adapter struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func NewAdapter(session *discordgo.Session, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{session: session, logger: logger}
}

func (a *Adapter) SendMessage(_ context.Context, channelID, content string) error {
	_, err := a.session.ChannelMessageSend(channelID, content)
	return classify(err)
}

func (a *Adapter) SendWithoutMentions(_ context.Context, channelID, content string) error {
	_, err := a.session.ChannelMessageSendComplex(channelID, quietMessage(content))
	return classify(err)
}

func quietMessage(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
}

func (a *Adapter) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := a.session.ChannelMessageSendEmbed(channelID, embed)
	return classify(err)
}

func (a *Adapter) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return classify(a.session.ChannelMessageDelete(channelID, messageID))
}

func (a *Adapter) SendDirectMessage(_ context.Context, userID, content string) error {
	channel, err := a.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrUndeliverable, classify(err))
	}
	_, err = a.session.ChannelMessageSend(channel.ID, content)
	if err == nil {
		return nil
	}
	err = classify(err)
	if errors.Is(err, pipeline.ErrForbidden) {
		return fmt.Errorf("%w: %w", pipeline.ErrUndeliverable, err)
	}
	return err
}

// classify maps Discord REST failures onto the pipeline's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case codeCannotMessageUser:
			return fmt.Errorf("%w: %w", pipeline.ErrUndeliverable, err)
		case codeMissingPermissions, codeMissingAccess:
			return fmt.Errorf("%w: %w", pipeline.ErrForbidden, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %w", pipeline.ErrForbidden, err)
	}
	return err
}

func (a *Adapter) member(guildID, userID string) *discordgo.Member {
	if a.session.State != nil {
		if member, err := a.session.State.Member(guildID, userID); err == nil && member != nil {
			return member
		}
	}
	member, err := a.session.GuildMember(guildID, userID)
	if err != nil {
		return nil
	}
	return member
}

func (a *Adapter) guild(guildID string) *discordgo.Guild {
	if a.session.State != nil {
		if guild, err := a.session.State.Guild(guildID); err == nil && guild != nil {
			return guild
		}
	}
	guild, err := a.session.Guild(guildID)
	if err != nil {
		return nil
	}
	return guild
}

// IsAdmin reports whether the member owns the guild or holds Administrator
// through any of their roles.
func (a *Adapter) IsAdmin(_ context.Context, guildID, userID string) (bool, error) {
	guild := a.guild(guildID)
	if guild == nil {
		return false, fmt.Errorf("guild %s not available", guildID)
	}
	if guild.OwnerID == userID {
		return true, nil
	}
	member := a.member(guildID, userID)
	if member == nil {
		return false, fmt.Errorf("member %s not available", userID)
	}
	return memberHasAdmin(guild, member), nil
}

func memberHasAdmin(guild *discordgo.Guild, member *discordgo.Member) bool {
	if guild == nil || member == nil {
		return false
	}
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (a *Adapter) ChannelName(_ context.Context, channelID string) string {
	if a.session.State != nil {
		if channel, err := a.session.State.Channel(channelID); err == nil && channel != nil {
			return channel.Name
		}
	}
	channel, err := a.session.Channel(channelID)
	if err != nil {
		a.logger.Debug("channel lookup failed", zap.String("channel_id", channelID), zap.Error(err))
		return ""
	}
	return channel.Name
}

// DisplayName resolves nickname, then username, then the raw id.
func (a *Adapter) DisplayName(_ context.Context, guildID, userID string) string {
	member := a.member(guildID, userID)
	if member == nil {
		return userID
	}
	return memberName(member, userID)
}

func memberName(member *discordgo.Member, fallback string) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil && member.User.Username != "" {
		return member.User.Username
	}
	return fallback
}
