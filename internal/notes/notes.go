// Package notes renders session notes as a downloadable plain-text file.
package notes

import (
	"fmt"
	"strings"
	"time"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

// Export returns the notes exactly as the user wrote them. The export is a
// pass-through: no markup, no rewriting, so the file can go straight into
// whatever tool the user pastes it into.
func Export(state *model.SessionState) string {
	return state.Notes
}

// Filename suggests a name for the exported file based on the session's
// filter target and the export time.
func Filename(state *model.SessionState, now time.Time) string {
	target := strings.TrimSpace(state.FilterSpec.Target)
	if target == "" {
		target = "notes"
	}
	target = sanitize(target)
	return fmt.Sprintf("%s-%s.txt", target, now.UTC().Format("2006-01-02"))
}

// sanitize keeps the filename portable across filesystems.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
