package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gazo/config"
	"gazo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// albumServer simulates a reader page with a structured image list plus the
// image host behind it. Individual images can be told to fail a number of
// times before recovering.
type albumServer struct {
	*httptest.Server

	mu         sync.Mutex
	pageHits   int
	imageHits  int
	imageCount int
	failures   map[string]int
}

func newAlbumServer(t *testing.T, imageCount int) *albumServer {
	t.Helper()
	as := &albumServer{
		imageCount: imageCount,
		failures:   make(map[string]int),
	}

	as.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/img/") {
			as.mu.Lock()
			as.imageHits++
			remaining := as.failures[r.URL.Path]
			if remaining > 0 {
				as.failures[r.URL.Path] = remaining - 1
			}
			as.mu.Unlock()

			if remaining > 0 {
				http.Error(w, "flaky", http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(jpegBytes)
			return
		}

		as.mu.Lock()
		as.pageHits++
		as.mu.Unlock()
		fmt.Fprint(w, as.pageBody(r.Host))
	}))
	t.Cleanup(as.Close)
	return as
}

func (as *albumServer) pageBody(host string) string {
	var entries []string
	for i := 1; i <= as.imageCount; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"sort":"%d","comic_id":"7","ext_path_folder":"","new_filename":"p%d","extension":"jpg","version":"1"}`, i, i))
	}
	return fmt.Sprintf(`<html><script>
var HTTP_IMAGE = "http://%s/img/";
Original_Image_List = [%s];
</script></html>`, host, strings.Join(entries, ","))
}

// failImage makes the Nth image fail the next `times` requests.
func (as *albumServer) failImage(n, times int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.failures[fmt.Sprintf("/img/p%d_w900.jpg", n)] = times
}

func (as *albumServer) hits() (pages, images int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.pageHits, as.imageHits
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DownloadDir = t.TempDir()
	cfg.Delay = 0
	cfg.DownloadDelay = 0
	cfg.MaxRetries = 2
	cfg.RetryBaseDelay = time.Millisecond
	return cfg
}

func newTestManager(t *testing.T, cfg config.Config) *Manager {
	t.Helper()
	manager, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(manager.Close)
	return manager
}

func albumRef(as *albumServer) models.AlbumRef {
	return models.AlbumFromURL(as.URL + "/readOnline2.php?ID=7")
}

func TestProcessAlbumCompletes(t *testing.T) {
	as := newAlbumServer(t, 3)
	cfg := testConfig(t)

	result := newTestManager(t, cfg).ProcessAlbum(context.Background(), albumRef(as))
	require.NoError(t, result.Err)
	assert.Equal(t, models.StateComplete, result.State)
	assert.Equal(t, 3, result.Stats.Success)

	dir := filepath.Join(cfg.DownloadDir, "7")
	assert.FileExists(t, filepath.Join(dir, "001.jpg"))
	assert.FileExists(t, filepath.Join(dir, "002.jpg"))
	assert.FileExists(t, filepath.Join(dir, "003.jpg"))
}

func TestProcessAlbumFinalizedShortCircuits(t *testing.T) {
	as := newAlbumServer(t, 3)
	cfg := testConfig(t)

	dir := filepath.Join(cfg.DownloadDir, "7")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeFiles(t, dir, "001.jpg", "002.jpg")

	result := newTestManager(t, cfg).ProcessAlbum(context.Background(), albumRef(as))
	require.NoError(t, result.Err)
	assert.Equal(t, models.StateComplete, result.State)
	assert.Equal(t, 2, result.Stats.Skipped)

	pages, images := as.hits()
	assert.Zero(t, pages)
	assert.Zero(t, images)
}

func TestProcessAlbumRecoversOnRetry(t *testing.T) {
	as := newAlbumServer(t, 5)
	as.failImage(4, 1)
	as.failImage(5, 1)
	cfg := testConfig(t)

	result := newTestManager(t, cfg).ProcessAlbum(context.Background(), albumRef(as))
	require.NoError(t, result.Err)
	assert.Equal(t, models.StateComplete, result.State)
	assert.Equal(t, 5, result.Stats.Success)
	assert.Equal(t, 2, result.Stats.Failed)
	assert.Equal(t, 3, result.Stats.Skipped)

	dir := filepath.Join(cfg.DownloadDir, "7")
	for i := 1; i <= 5; i++ {
		assert.FileExists(t, filepath.Join(dir, fmt.Sprintf("%03d.jpg", i)))
	}
}

func TestProcessAlbumExhaustsRetries(t *testing.T) {
	as := newAlbumServer(t, 3)
	as.failImage(3, 100)
	cfg := testConfig(t)

	result := newTestManager(t, cfg).ProcessAlbum(context.Background(), albumRef(as))
	assert.Equal(t, models.StateFailed, result.State)
	assert.Error(t, result.Err)

	// First attempt plus the configured retries.
	pages, _ := as.hits()
	assert.GreaterOrEqual(t, pages, 3)
}

func TestProcessAlbumDirectImageURL(t *testing.T) {
	as := newAlbumServer(t, 1)
	cfg := testConfig(t)

	album := models.AlbumFromURL(as.URL + "/img/solo_w900.jpg")
	result := newTestManager(t, cfg).ProcessAlbum(context.Background(), album)
	require.NoError(t, result.Err)
	assert.Equal(t, models.StateComplete, result.State)
	assert.Equal(t, 1, result.Stats.Success)
	assert.FileExists(t, filepath.Join(cfg.DownloadDir, album.ID, "001.jpg"))
}

func TestCheckCompleteDegradedEstimate(t *testing.T) {
	as := newAlbumServer(t, 3)
	cfg := testConfig(t)
	manager := newTestManager(t, cfg)

	dir := filepath.Join(cfg.DownloadDir, "7")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeFiles(t, dir, "001.jpg", "002.jpg", "003.jpg")

	album := albumRef(as)
	as.Close() // live count unavailable, fall back to on-disk contiguity

	complete, downloaded, total := manager.checkComplete(context.Background(), album, dir)
	assert.True(t, complete)
	assert.Equal(t, 3, downloaded)
	assert.Equal(t, 3, total)
}

func TestCheckCompleteCountsAgainstLivePage(t *testing.T) {
	as := newAlbumServer(t, 5)
	cfg := testConfig(t)
	manager := newTestManager(t, cfg)

	dir := filepath.Join(cfg.DownloadDir, "7")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeFiles(t, dir, "001.jpg", "002.jpg", "003.jpg")

	complete, downloaded, total := manager.checkComplete(context.Background(), albumRef(as), dir)
	assert.False(t, complete)
	assert.Equal(t, 3, downloaded)
	assert.Equal(t, 5, total)
}

func TestCheckCompleteEmptyLivePageIsIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>please wait while we verify your browser</body></html>")
	}))
	defer server.Close()

	cfg := testConfig(t)
	manager := newTestManager(t, cfg)

	dir := filepath.Join(cfg.DownloadDir, "7")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeFiles(t, dir, "001.jpg", "002.jpg", "003.jpg")

	album := models.AlbumFromURL(server.URL + "/readOnline2.php?ID=7")
	complete, downloaded, total := manager.checkComplete(context.Background(), album, dir)
	assert.False(t, complete)
	assert.Zero(t, downloaded)
	assert.Zero(t, total)
}

func TestIsDirectImageURL(t *testing.T) {
	assert.True(t, isDirectImageURL("https://example.com/a.jpg"))
	assert.True(t, isDirectImageURL("https://example.com/a.webp?x=1"))
	assert.False(t, isDirectImageURL("https://example.com/readOnline2.php?ID=7"))
	assert.False(t, isDirectImageURL("https://example.com/album/"))
}
