package reaction

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	insultRetort  = "%s I'm not stupid, you are!"
	defaultRetort = "%s Watch your language, I'm just a bot doing my job."
)

var insultKeywords = []string{"stupid", "retard"}

type Trigger struct {
	words     []string
	nicknames []string
}

func New(words, nicknames []string) *Trigger {
	return &Trigger{words: normalizeAll(words), nicknames: normalizeAll(nicknames)}
}

// Match reports whether text carries a trigger word and is aimed at the bot,
// either by mention or by one of the configured nicknames.
func (t *Trigger) Match(text string, mentionsBot bool) bool {
	return Matches(text, t.words, mentionsBot || t.AddressesBot(text))
}

func (t *Trigger) AddressesBot(text string) bool {
	return containsAny(tokenize(text), t.nicknames)
}

// Matches is the pure predicate behind Match.
func Matches(text string, words []string, mentionsBot bool) bool {
	if !mentionsBot || len(words) == 0 {
		return false
	}
	return containsAny(tokenize(text), normalizeAll(words))
}

// Retort picks the canned reply for a triggering message.
func Retort(text, authorMention string) string {
	normalized := normalizeText(text)
	for _, keyword := range insultKeywords {
		if strings.Contains(normalized, keyword) {
			return sprintf(insultRetort, authorMention)
		}
	}
	return sprintf(defaultRetort, authorMention)
}

func sprintf(format, mention string) string {
	return strings.TrimSpace(strings.Replace(format, "%s", mention, 1))
}

func containsAny(tokens []string, phrases []string) bool {
	if len(tokens) == 0 {
		return false
	}
	joined := " " + strings.Join(tokens, " ") + " "
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(joined, " "+phrase+" ") {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(normalizeText(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		tokens := strings.FieldsFunc(normalizeText(value), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(tokens) > 0 {
			out = append(out, strings.Join(tokens, " "))
		}
	}
	return out
}

func normalizeText(input string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, strings.ToLower(input))
	if err != nil {
		return strings.ToLower(input)
	}
	return out
}
