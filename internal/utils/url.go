package utils

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

var errNoHost = errors.New("link has no host")

// URLSpans returns [start, end) byte offsets of every well-formed link in content.
func URLSpans(content string) [][]int {
	var spans [][]int
	for _, loc := range urlRegex.FindAllStringIndex(content, -1) {
		if _, err := LinkHost(content[loc[0]:loc[1]]); err != nil {
			continue
		}
		spans = append(spans, loc)
	}
	return spans
}

// LinkHost returns the lower-cased ASCII (punycode) host of raw.
func LinkHost(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", errNoHost
	}
	return idna.ToASCII(host)
}
