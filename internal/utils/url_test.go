package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkHost(t *testing.T) {
	host, err := LinkHost("https://Example.com/path?utm_source=test&x=1")
	require.NoError(t, err)
	require.Equal(t, "example.com", host)

	host, err = LinkHost("https://bücher.example/")
	require.NoError(t, err)
	require.Equal(t, "xn--bcher-kva.example", host)

	_, err = LinkHost("https://")
	require.Error(t, err)
}

func TestURLSpans(t *testing.T) {
	content := "a https://x.com/b c http://y.org"
	spans := URLSpans(content)
	require.Len(t, spans, 2)
	require.Equal(t, "https://x.com/b", content[spans[0][0]:spans[0][1]])
	require.Equal(t, "http://y.org", content[spans[1][0]:spans[1][1]])

	require.Empty(t, URLSpans("no links https:// here"))
}
