package backup

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"mercado-pos/domain"
)

// Snapshot files are named mercado_[TAG_]YYYY-MM-DD_HH-mm-ss.db. The tag
// and timestamp are the only persisted metadata; there is no side store.
const (
	filePrefix = "mercado_"
	fileExt    = ".db"

	tagManual     = "MANUAL"
	tagInitial    = "INICIAL"
	tagPreRestore = "PRE_RESTORE"

	timestampLayout = "2006-01-02_15-04-05"
)

var timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}`)

// initialFilename is fixed: the initial backup is created once and never
// overwritten, so it carries no timestamp.
const initialFilename = filePrefix + tagInitial + fileExt

func automaticFilename(t time.Time) string {
	return fmt.Sprintf("%s%s%s", filePrefix, t.Format(timestampLayout), fileExt)
}

func taggedFilename(tag string, t time.Time) string {
	return fmt.Sprintf("%s%s_%s%s", filePrefix, tag, t.Format(timestampLayout), fileExt)
}

// isBackupFilename reports whether name looks like one of ours.
func isBackupFilename(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt)
}

// parseFilename recovers the backup type and timestamp from the name
// alone. A name without a timestamp (the initial backup) yields the zero
// time; callers fall back to the file mtime.
func parseFilename(name string) (domain.BackupType, time.Time) {
	typ := domain.BackupAutomatic
	switch {
	case strings.Contains(name, tagInitial):
		typ = domain.BackupInitial
	case strings.Contains(name, tagPreRestore):
		typ = domain.BackupPreRestore
	case strings.Contains(name, tagManual):
		typ = domain.BackupManual
	}

	var ts time.Time
	if match := timestampRe.FindString(name); match != "" {
		if parsed, err := time.ParseInLocation(timestampLayout, match, time.Local); err == nil {
			ts = parsed
		}
	}
	return typ, ts
}

// formatSize renders a byte count the way the backup screen shows it.
func formatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}
