package hook

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/qingchang/notchbridge/internal/paths"
)

// DiffPreview summarizes an upcoming edit and points at the written
// preview file, which the display process renders on demand.
type DiffPreview struct {
	Path    string
	Added   int
	Removed int
}

// writeDiffPreview computes the line delta an edit would produce and
// writes a preview diff under the project's diff directory. Returns nil
// when there is nothing meaningful to preview.
func (h *Hook) writeDiffPreview(file, oldText, newText string) (*DiffPreview, error) {
	if oldText == "" && newText == "" {
		return nil, nil
	}

	original := ""
	if data, err := os.ReadFile(file); err == nil {
		original = string(data)
	}

	var modified string
	if oldText != "" {
		modified = strings.Replace(original, oldText, newText, 1)
	} else {
		modified = newText
	}
	if modified == original {
		return nil, nil
	}

	removed, added := lineDelta(splitLines(original), splitLines(modified))
	if removed == 0 && added == 0 {
		return nil, nil
	}

	dir := paths.DiffDir(h.projectName)
	if err := paths.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("creating diff dir: %w", err)
	}

	sum := sha256.Sum256([]byte(file))
	path := fmt.Sprintf("%s/%s.preview.diff", dir, hex.EncodeToString(sum[:])[:32])
	if err := os.WriteFile(path, renderPreview(file, original, modified), 0600); err != nil {
		return nil, fmt.Errorf("writing diff preview: %w", err)
	}

	return &DiffPreview{Path: path, Added: added, Removed: removed}, nil
}

// lineDelta counts removed and added lines by trimming the common prefix
// and suffix; everything between counts as changed. Coarser than a real
// LCS diff, but the preview only needs honest totals.
func lineDelta(oldLines, newLines []string) (removed, added int) {
	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}
	return len(oldLines) - prefix - suffix, len(newLines) - prefix - suffix
}

func renderPreview(file, original, modified string) []byte {
	oldLines := splitLines(original)
	newLines := splitLines(modified)

	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", file, file)
	for _, line := range oldLines[prefix : len(oldLines)-suffix] {
		b.WriteString("-" + line + "\n")
	}
	for _, line := range newLines[prefix : len(newLines)-suffix] {
		b.WriteString("+" + line + "\n")
	}
	return []byte(b.String())
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
