package pipeline

import (
	"context"
	"sort"
	"strings"
)

func (p *Pipeline) evaluatePrivate(_ context.Context, msg Message) Outcome {
	if !msg.Prefixed() {
		// A direct message is always addressed to the bot.
		msg.MentionsBot = true
		if outcome := p.react(msg); outcome.Terminal {
			return outcome
		}
		if p.opts.OwnerID != "" && msg.AuthorID == p.opts.OwnerID {
			return Terminate(ActionOwnerGreeting, p.ownerGreeting())
		}
		return Terminate(ActionDMRefused, "I don't accept direct messages. Use my commands in a server instead.")
	}

	if !p.allowedUser(msg.AuthorID) {
		return Terminate(ActionExclusiveBlock, "This bot is running in private mode and only answers its allowed users.")
	}
	name, _ := msg.Command()
	if _, ok := p.dmAllowed[name]; !ok {
		return Terminate(ActionDMNotAllowed, "That command can't be used in direct messages. Allowed here: "+p.dmAllowedList())
	}
	return Terminate(ActionDispatch, "")
}

func (p *Pipeline) ownerGreeting() string {
	var b strings.Builder
	b.WriteString("Hello, owner!")
	if len(p.opts.OwnerCommands) > 0 {
		b.WriteString(" Commands you can use: ")
		b.WriteString(strings.Join(p.opts.OwnerCommands, ", "))
	}
	return b.String()
}

func (p *Pipeline) dmAllowedList() string {
	names := make([]string, 0, len(p.dmAllowed))
	for name := range p.dmAllowed {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "none"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
