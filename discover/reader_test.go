package discover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderLinksQuoted(t *testing.T) {
	body := `<html><body>
<a href="readOnline2.php?ID=777&host_id=2">read online</a>
</body></html>`

	links := ReaderLinks(body, "https://example.com/post.php?ID=777")
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/readOnline2.php?ID=777&host_id=2", links[0])
}

func TestReaderLinksPrefersHostIDVariant(t *testing.T) {
	body := `<html><body>
<a href="readOnline2.php?ID=777">mirror 1</a>
<a href="readOnline2.php?ID=777&host_id=3">mirror 2</a>
</body></html>`

	links := ReaderLinks(body, "https://example.com/")
	require.Len(t, links, 1)
	assert.Contains(t, links[0], "host_id=3")
}

func TestReaderLinksMultipleSortedByID(t *testing.T) {
	body := `<html><body>
<a href="readOnline2.php?ID=900">b</a>
<a href="readOnline2.php?ID=100">a</a>
</body></html>`

	links := ReaderLinks(body, "https://example.com/")
	require.Len(t, links, 2)
	assert.Contains(t, links[0], "ID=100")
	assert.Contains(t, links[1], "ID=900")
}

func TestReaderLinksIgnoresAbsoluteMirrors(t *testing.T) {
	body := `<html><body>
window.open("https://mirror.example.net/readOnline2.php?ID=555");
</body></html>`

	// The quoted scan still sees the relative shape inside the string, but
	// a page with only an absolute mirror link and no local reader link
	// must not bind the mirror to the configured host.
	links := ReaderLinks(body, "https://example.com/")
	for _, link := range links {
		assert.NotContains(t, link, "mirror.example.net")
	}
}

func TestReaderLinksBareScriptReference(t *testing.T) {
	body := `<script>loadReader('readOnline2.php?ID=42&host_id=1');</script>`

	links := ReaderLinks(body, "https://example.com/")
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/readOnline2.php?ID=42&host_id=1", links[0])
}

func TestReaderLinksNone(t *testing.T) {
	assert.Empty(t, ReaderLinks("<html><body>nothing</body></html>", "https://example.com/"))
}
