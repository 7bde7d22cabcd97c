package discover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingURL = "https://example.com/dnew.php?page=2"

func TestListingAlbums(t *testing.T) {
	body := `<html><body>
<a href="post.php?ID=300">Album C</a>
<a href="/post.php?ID=100">Album A</a>
<a href="post.php?ID=200&extra=1">Album B</a>
<a href="post.php?ID=100">Album A duplicate</a>
<a href="other.php?ID=999">not an album</a>
<a href="post.php">no id</a>
</body></html>`

	albums := ListingAlbums(body, listingURL)
	require.Len(t, albums, 3)
	assert.Equal(t, "100", albums[0].ID)
	assert.Equal(t, "200", albums[1].ID)
	assert.Equal(t, "300", albums[2].ID)
	assert.Equal(t, "https://example.com/post.php?ID=100", albums[0].SourceURL)
}

func TestListingAlbumsEmptyPage(t *testing.T) {
	assert.Empty(t, ListingAlbums("<html><body>no links</body></html>", listingURL))
}

func TestNextListingPageNextAnchor(t *testing.T) {
	body := `<html><body>
<a href="dnew.php?page=3">下一页</a>
</body></html>`

	next := NextListingPage(body, listingURL)
	assert.Equal(t, "https://example.com/dnew.php?page=3", next)
}

func TestNextListingPageByPageParam(t *testing.T) {
	body := `<html><body>
<a href="dnew.php?page=1">1</a>
<a href="dnew.php?page=2">2</a>
<a href="dnew.php?page=3">3</a>
</body></html>`

	next := NextListingPage(body, listingURL)
	assert.Equal(t, "https://example.com/dnew.php?page=3", next)
}

func TestNextListingPageSynthesized(t *testing.T) {
	next := NextListingPage("<html><body></body></html>", listingURL)
	assert.Equal(t, "https://example.com/dnew.php?page=3", next)
}
