// Package profile loads the candidate profile used for deep matching.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var reParagraphBreak = regexp.MustCompile(`\n\s*\n`)

// Load reads the profile text from path. Only plain-text profiles are
// supported.
func Load(path string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".txt" && ext != ".md" && ext != "" {
		return "", fmt.Errorf("unsupported profile format %q, expected plain text", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read profile: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("profile file %s is empty", path)
	}
	return content, nil
}

// Numbered prefixes each non-empty paragraph with "[Paragraph N]" so the
// matcher can cite evidence by paragraph number. Paragraphs are separated
// by blank lines.
func Numbered(raw string) string {
	paragraphs := reParagraphBreak.Split(raw, -1)

	numbered := make([]string, 0, len(paragraphs))
	n := 1
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		numbered = append(numbered, fmt.Sprintf("[Paragraph %d] %s", n, p))
		n++
	}

	return strings.Join(numbered, "\n\n")
}
