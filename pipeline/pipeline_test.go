package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gazo/config"
	"gazo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

// newAlbumServer serves a reader page whose structured list points back at
// the server's own image endpoints.
func newAlbumServer(t *testing.T, imageCount int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/img/") {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(jpegBytes)
			return
		}

		var entries []string
		for i := 1; i <= imageCount; i++ {
			entries = append(entries, fmt.Sprintf(
				`{"sort":"%d","comic_id":"7","ext_path_folder":"","new_filename":"p%d","extension":"jpg","version":"1"}`, i, i))
		}
		fmt.Fprintf(w, `<html><script>
var HTTP_IMAGE = "http://%s/img/";
Original_Image_List = [%s];
</script></html>`, r.Host, strings.Join(entries, ","))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DownloadDir = t.TempDir()
	cfg.Delay = 0
	cfg.DownloadDelay = 0
	cfg.MaxRetries = 0
	cfg.RetryBaseDelay = time.Millisecond
	return cfg
}

func newTestRunner(t *testing.T, cfg config.Config) *Runner {
	t.Helper()
	runner, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(runner.Close)
	return runner
}

func TestRunURLsDownloadsAlbum(t *testing.T) {
	server := newAlbumServer(t, 2)
	cfg := testConfig(t)

	results := newTestRunner(t, cfg).RunURLs(context.Background(), []string{
		server.URL + "/readOnline2.php?ID=7",
	})
	require.Len(t, results, 1)
	assert.Equal(t, models.StateComplete, results[0].State)
	assert.FileExists(t, filepath.Join(cfg.DownloadDir, "7", "001.jpg"))
	assert.FileExists(t, filepath.Join(cfg.DownloadDir, "7", "002.jpg"))
}

func TestRunURLsIsolatesFailures(t *testing.T) {
	server := newAlbumServer(t, 1)
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()
	cfg := testConfig(t)

	results := newTestRunner(t, cfg).RunURLs(context.Background(), []string{
		dead.URL + "/readOnline2.php?ID=1",
		server.URL + "/readOnline2.php?ID=7",
	})
	require.Len(t, results, 2)
	assert.Equal(t, models.StateFailed, results[0].State)
	assert.Error(t, results[0].Err)
	assert.Equal(t, models.StateComplete, results[1].State)
}

func TestRunFileRemovesCompletedLines(t *testing.T) {
	server := newAlbumServer(t, 1)
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()
	cfg := testConfig(t)

	goodURL := server.URL + "/readOnline2.php?ID=7"
	badURL := dead.URL + "/readOnline2.php?ID=1"

	listPath := filepath.Join(t.TempDir(), "dw.txt")
	require.NoError(t, os.WriteFile(listPath, []byte(goodURL+"\n"+badURL+"\n"), 0644))

	results, err := newTestRunner(t, cfg).RunFile(context.Background(), listPath)
	require.NoError(t, err)
	require.Len(t, results, 2)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), goodURL)
	assert.Contains(t, string(data), badURL)
}

func TestResolveReadersBaseURLOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><a href="readOnline2.php?ID=5">read</a></html>`)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(t)
	cfg.BaseURL = "https://reader.example.com/"
	runner := newTestRunner(t, cfg)

	album := models.AlbumFromURL(server.URL + "/post.php?ID=5")
	links := runner.resolveReaders(context.Background(), album)
	require.Len(t, links, 1)
	assert.Equal(t, "https://reader.example.com/readOnline2.php?ID=5", links[0])
}

func TestResolveReadersDefaultsToPageURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><a href="readOnline2.php?ID=5">read</a></html>`)
	}))
	t.Cleanup(server.Close)

	runner := newTestRunner(t, testConfig(t))
	album := models.AlbumFromURL(server.URL + "/post.php?ID=5")
	links := runner.resolveReaders(context.Background(), album)
	require.Len(t, links, 1)
	assert.Equal(t, server.URL+"/readOnline2.php?ID=5", links[0])
}

func TestRunFileEmptyWorklist(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "dw.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("# nothing\n"), 0644))

	results, err := newTestRunner(t, testConfig(t)).RunFile(context.Background(), listPath)
	require.NoError(t, err)
	assert.Empty(t, results)
}
