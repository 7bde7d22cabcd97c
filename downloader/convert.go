package downloader

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"
)

// detectImageFormat reads the magic bytes and returns the format string.
// Extensions lie often enough that the bytes are the only thing trusted.
func detectImageFormat(data []byte) (string, error) {
	if len(data) < 12 {
		return "", errors.New("data too short to determine format")
	}

	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "jpeg", nil
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "png", nil
	}
	if string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a" {
		return "gif", nil
	}
	if string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "webp", nil
	}

	return "", errors.New("unknown image format")
}

// NormalizeToJPEG re-encodes every canonical-named non-JPEG file in the
// finalized directory as JPEG (quality 90), preserving its index. JPEG
// bytes pass through untouched; undecodable files are left alone.
func NormalizeToJPEG(targetDir string) error {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && canonicalNameRe.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	converted := 0
	for _, name := range names {
		path := filepath.Join(targetDir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[Convert] failed to read %s: %v", name, err)
			continue
		}

		format, err := detectImageFormat(data)
		if err != nil || format == "jpeg" {
			continue
		}

		var img image.Image
		reader := bytes.NewReader(data)
		switch format {
		case "png":
			img, err = png.Decode(reader)
		case "gif":
			img, err = gif.Decode(reader)
		case "webp":
			img, err = webp.Decode(reader)
		default:
			continue
		}
		if err != nil {
			log.Printf("[Convert] failed to decode %s (%s): %v", name, format, err)
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		jpegPath := filepath.Join(targetDir, stem+".jpg")

		if err := imaging.Save(img, jpegPath, imaging.JPEGQuality(90)); err != nil {
			log.Printf("[Convert] failed to save %s: %v", jpegPath, err)
			continue
		}
		if jpegPath != path {
			os.Remove(path)
		}
		converted++
	}

	if converted > 0 {
		log.Printf("[Convert] re-encoded %d files to JPEG", converted)
	}
	return nil
}
