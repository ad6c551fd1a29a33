package domain

import "time"

// BackupType classifies a snapshot by how it was taken.
type BackupType string

const (
	BackupAutomatic  BackupType = "automatic"
	BackupManual     BackupType = "manual"
	BackupInitial    BackupType = "initial"
	BackupPreRestore BackupType = "pre_restore"
)

// BackupInfo describes one snapshot file. Everything except Size and
// CreatedAt is recovered from the filename alone.
type BackupInfo struct {
	Filename      string     `json:"filename"`
	Path          string     `json:"path"`
	Type          BackupType `json:"type"`
	Timestamp     time.Time  `json:"timestamp"`
	Size          int64      `json:"size"`
	SizeFormatted string     `json:"size_formatted"`
	CreatedAt     time.Time  `json:"created_at"`
}

// BackupStats summarizes the backup directory.
type BackupStats struct {
	TotalBackups       int         `json:"total_backups"`
	AutomaticBackups   int         `json:"automatic_backups"`
	ManualBackups      int         `json:"manual_backups"`
	TotalSize          int64       `json:"total_size"`
	TotalSizeFormatted string      `json:"total_size_formatted"`
	BackupDir          string      `json:"backup_dir"`
	LatestBackup       *BackupInfo `json:"latest_backup,omitempty"`
}

// RestoreReport is the outcome of the startup self-heal.
type RestoreReport struct {
	Restored   bool   `json:"restored"`
	BackupUsed string `json:"backup_used,omitempty"`
	Filename   string `json:"filename,omitempty"`
}
