// Package worklist reads and maintains a plain-text file of album URLs,
// one per line. Completed lines are removed in place so an interrupted run
// picks up exactly where it stopped.
package worklist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Read returns the URLs in the worklist file, skipping blank lines and
// lines starting with #.
func Read(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open worklist: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read worklist: %w", err)
	}
	return urls, nil
}

// Remove rewrites the worklist without the given completed line. Other
// lines, comments and blanks included, are preserved verbatim. A line that
// is not present leaves the file untouched.
func Remove(path, completed string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read worklist: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	kept := make([]string, 0, len(lines))
	removed := false
	for _, line := range lines {
		if !removed && strings.TrimSpace(line) == completed {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return nil
	}

	if err := os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0644); err != nil {
		return fmt.Errorf("failed to rewrite worklist: %w", err)
	}
	return nil
}
