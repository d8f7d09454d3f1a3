package profanity

import (
	"strings"

	"sentinel-warden/internal/utils"

	goaway "github.com/TwiN/go-away"
)

// Detector is the word-list capability the guard wraps.
type Detector interface {
	IsProfane(s string) bool
	Censor(s string) string
}

type Guard struct {
	detector Detector
}

func New(detector Detector) *Guard {
	return &Guard{detector: detector}
}

// NewDefault builds a guard on the go-away dictionary, extended with extra
// words and false positives when given.
func NewDefault(extraWords, falsePositives []string) *Guard {
	detector := goaway.NewProfanityDetector().
		WithSanitizeLeetSpeak(true).
		WithSanitizeSpecialCharacters(true).
		WithSanitizeAccents(true)
	if len(extraWords) > 0 || len(falsePositives) > 0 {
		detector = detector.WithCustomDictionary(
			append(append([]string(nil), goaway.DefaultProfanities...), extraWords...),
			append(append([]string(nil), goaway.DefaultFalsePositives...), falsePositives...),
			goaway.DefaultFalseNegatives,
		)
	}
	return New(detector)
}

// Scan returns the censored text and true when the message holds disallowed
// words. Links are left out of both the check and the censoring.
func (g *Guard) Scan(text string) (string, bool) {
	if g == nil || g.detector == nil || strings.TrimSpace(text) == "" {
		return "", false
	}

	spans := utils.URLSpans(text)
	var out strings.Builder
	flagged := false
	last := 0
	for _, span := range spans {
		flagged = g.scanSegment(&out, text[last:span[0]]) || flagged
		out.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	flagged = g.scanSegment(&out, text[last:]) || flagged

	if !flagged {
		return "", false
	}
	return out.String(), true
}

func (g *Guard) scanSegment(out *strings.Builder, segment string) bool {
	if strings.TrimSpace(segment) == "" || !g.detector.IsProfane(segment) {
		out.WriteString(segment)
		return false
	}
	out.WriteString(g.detector.Censor(segment))
	return true
}
