package profanity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type wordDetector struct{ words []string }

func (d wordDetector) IsProfane(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range d.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func (d wordDetector) Censor(s string) string {
	out := s
	for _, w := range d.words {
		out = strings.ReplaceAll(out, w, strings.Repeat("*", len(w)))
	}
	return out
}

func TestScanClean(t *testing.T) {
	guard := New(wordDetector{words: []string{"darn"}})
	censored, flagged := guard.Scan("hello there")
	require.False(t, flagged)
	require.Empty(t, censored)
}

func TestScanCensors(t *testing.T) {
	guard := New(wordDetector{words: []string{"darn"}})
	censored, flagged := guard.Scan("well darn it")
	require.True(t, flagged)
	require.Equal(t, "well **** it", censored)
}

func TestScanSkipsLinks(t *testing.T) {
	guard := New(wordDetector{words: []string{"darn"}})
	_, flagged := guard.Scan("see https://darn.example.com/page")
	require.False(t, flagged)

	censored, flagged := guard.Scan("darn see https://darn.example.com")
	require.True(t, flagged)
	require.Equal(t, "**** see https://darn.example.com", censored)
}

func TestDefaultDetector(t *testing.T) {
	guard := NewDefault(nil, nil)
	_, flagged := guard.Scan("what a lovely afternoon")
	require.False(t, flagged)

	censored, flagged := guard.Scan("this is shit")
	require.True(t, flagged)
	require.NotContains(t, censored, "shit")
}

func TestNilGuard(t *testing.T) {
	var guard *Guard
	_, flagged := guard.Scan("anything")
	require.False(t, flagged)
}
