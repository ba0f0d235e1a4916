// SPDX-License-Identifier: MIT

// Package export writes generated code to disk. Writes are atomic so a
// half-finished export never replaces a previous good one.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/session"
	"github.com/morahq/mora/internal/timeline"
)

// extensions maps session languages to file extensions. Unknown languages
// fall back to .py since the backend generates Python today.
var extensions = map[string]string{
	"python":     ".py",
	"javascript": ".js",
	"typescript": ".ts",
}

// Filename returns the default export filename for a session.
func Filename(snap session.Snapshot) string {
	ext, ok := extensions[strings.ToLower(snap.Language)]
	if !ok {
		ext = ".py"
	}
	return "mora-" + snap.ID + ext
}

// WriteCode writes the session's code buffer to path atomically. An empty
// buffer is an error so callers cannot silently truncate a previous export.
func WriteCode(ctx context.Context, path string, snap session.Snapshot) error {
	if strings.TrimSpace(snap.Code) == "" {
		return fmt.Errorf("export: session %s has no code", snap.ID)
	}

	logger := log.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("export: create pending file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending export file")
		}
	}()

	if _, err := pending.WriteString(render(snap)); err != nil {
		return fmt.Errorf("export: write code: %w", err)
	}

	// fsync + rename, so the export is durable and atomic.
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("export: replace %s: %w", filepath.Base(path), err)
	}

	logger.Info().
		Str(log.FieldSessionID, snap.ID).
		Str(log.FieldPath, path).
		Str(log.FieldEvent, "export.written").
		Msg("code exported")
	return nil
}

// render lays the file out with a segment map header when segments exist,
// so the exported script keeps its link back to the video timeline.
func render(snap session.Snapshot) string {
	var b strings.Builder
	if len(snap.Segments) > 0 {
		b.WriteString("# Segment map:\n")
		for _, seg := range snap.Segments {
			fmt.Fprintf(&b, "#   [%s] %s\n", formatRange(seg), seg.Summary)
		}
		b.WriteString("\n")
	}
	b.WriteString(snap.Code)
	if !strings.HasSuffix(snap.Code, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func formatRange(seg timeline.Segment) string {
	return fmt.Sprintf("%.1fs-%.1fs", seg.StartTime, seg.EndTime)
}
