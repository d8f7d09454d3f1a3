package commands

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	mentionRegex = regexp.MustCompile(`^<@!?(\d+)>$`)
	snowflake    = regexp.MustCompile(`^\d{5,20}$`)
)

// parseUser accepts <@id>, <@!id> or a bare id.
func parseUser(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if m := mentionRegex.FindStringSubmatch(arg); m != nil {
		return m[1], true
	}
	if snowflake.MatchString(arg) {
		return arg, true
	}
	return "", false
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func parseSwitch(arg string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "true", "yes", "enable", "enabled":
		return true, true
	case "off", "false", "no", "disable", "disabled":
		return false, true
	default:
		return false, false
	}
}

// Text returns the raw message text after the command name and its first
// n arguments, keeping the author's spacing and line breaks.
func (c *Call) Text(n int) string {
	rest := strings.TrimPrefix(c.Msg.Content, c.Msg.Prefix)
	for i := 0; i <= n; i++ {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			return ""
		}
		rest = rest[idx:]
	}
	return strings.TrimSpace(rest)
}
