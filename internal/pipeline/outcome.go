package pipeline

// Action names the single terminal outcome taken for a message.
type Action string

const (
	ActionIgnore         Action = "ignore"
	ActionNoise          Action = "noise"
	ActionInvisibleBlock Action = "invisible_block"
	ActionCensor         Action = "censor"
	ActionReact          Action = "react"
	ActionMuteBlock      Action = "mute_block"
	ActionExclusiveBlock Action = "exclusive_block"
	ActionBlacklistBlock Action = "blacklist_block"
	ActionCustomReply    Action = "custom_reply"
	ActionDispatch       Action = "dispatch"
	ActionOwnerGreeting  Action = "owner_greeting"
	ActionDMRefused      Action = "dm_refused"
	ActionDMNotAllowed   Action = "dm_command_refused"
)

// Outcome is what a gate decides. A non-terminal outcome lets the next gate
// run. UserMessage is the notice meant for the author; Content is text the
// bot posts to the channel in place of the original (censored repost).
type Outcome struct {
	Terminal    bool
	Action      Action
	UserMessage string
	Content     string
}

func Continue() Outcome {
	return Outcome{}
}

func Terminate(action Action, userMessage string) Outcome {
	return Outcome{Terminal: true, Action: action, UserMessage: userMessage}
}
