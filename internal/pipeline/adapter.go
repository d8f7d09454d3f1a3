package pipeline

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrForbidden is returned by an Adapter when the bot lacks the permission
	// for the call.
	ErrForbidden = errors.New("missing permission")
	// ErrUndeliverable is returned when a direct message cannot reach the user.
	ErrUndeliverable = errors.New("direct message undeliverable")
)

// Adapter is the outbound side of the chat platform.
type Adapter interface {
	SendMessage(ctx context.Context, channelID, content string) error
	// SendWithoutMentions posts content with every ping suppressed. Used for
	// text that members wrote.
	SendWithoutMentions(ctx context.Context, channelID, content string) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// Dispatcher runs a standard command once no gate has intercepted the message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message, name string, args []string) error
}
