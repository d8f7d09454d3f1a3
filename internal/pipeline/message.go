package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Message is an inbound user-authored message as seen by the pipeline.
// GuildID is empty for direct messages; Prefix is empty when the content
// does not start with a configured command prefix.
type Message struct {
	ID          string
	AuthorID    string
	AuthorName  string
	GuildID     string
	ChannelID   string
	Content     string
	Prefix      string
	Presence    string
	AuthorIsBot bool
	MentionsBot bool
}

func (m Message) Private() bool {
	return m.GuildID == ""
}

func (m Message) Prefixed() bool {
	return m.Prefix != "" && strings.HasPrefix(m.Content, m.Prefix)
}

func (m Message) AuthorMention() string {
	if m.AuthorID == "" {
		return ""
	}
	return "<@" + m.AuthorID + ">"
}

// Offline reports whether the author appears offline. The gateway reports
// invisible members as offline; a missing presence counts as online.
func (m Message) Offline() bool {
	switch strings.ToLower(m.Presence) {
	case "offline", "invisible":
		return true
	default:
		return false
	}
}

// Command splits a prefixed message into its lower-cased command token and
// arguments. It returns an empty name for unprefixed content.
func (m Message) Command() (string, []string) {
	if !m.Prefixed() {
		return "", nil
	}
	fields := strings.Fields(strings.TrimPrefix(m.Content, m.Prefix))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// saneCommand reports whether the character right after the prefix is a
// letter, which separates "!ping" from "!!" or "!:)".
func (m Message) saneCommand() bool {
	rest := strings.TrimPrefix(m.Content, m.Prefix)
	r, size := utf8.DecodeRuneInString(rest)
	return size > 0 && r != utf8.RuneError && unicode.IsLetter(r)
}
