// Package backup protects the store file against corruption and data
// loss. It takes file-level snapshots, verifies their structural
// integrity, enforces a retention policy on automatic snapshots and
// self-heals a corrupted store at startup from the newest valid backup.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"mercado-pos/domain"
	"mercado-pos/internal/database"
)

var requiredTables = []string{"users", "products", "sales"}

// Manager owns the backup directory for one store file.
type Manager struct {
	dbPath    string
	dir       string
	retention int
	log       *zap.Logger
}

// NewManager constructs a Manager. retention caps how many automatic
// snapshots survive; initial, manual and pre-restore snapshots are never
// counted nor deleted by retention.
func NewManager(dbPath, dir string, retention int, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{dbPath: dbPath, dir: dir, retention: retention, log: log}
}

// VerifyIntegrity opens path read-only, runs the structural integrity
// check and confirms the required tables exist. A missing file fails.
func (m *Manager) VerifyIntegrity(path string) error {
	if _, err := os.Stat(path); err != nil {
		return domain.E(domain.KindIntegrity, "file not found")
	}

	db, err := database.OpenReadOnly(path)
	if err != nil {
		return domain.Wrap(domain.KindIntegrity, "file is not a readable database", err)
	}
	defer db.Close()

	var result string
	if err := db.Get(&result, `PRAGMA integrity_check`); err != nil || result != "ok" {
		return domain.E(domain.KindIntegrity, "database is corrupted")
	}

	tables := []string{}
	if err := db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table'`); err != nil {
		return domain.Wrap(domain.KindIntegrity, "unable to inspect schema", err)
	}
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}
	for _, t := range requiredTables {
		if !present[t] {
			return domain.E(domain.KindIntegrity, fmt.Sprintf("table %q not found", t))
		}
	}
	return nil
}

// List returns every snapshot in the backup directory, newest first by
// file modification time.
func (m *Manager) List() ([]domain.BackupInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return []domain.BackupInfo{}, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindIO, "unable to read backup directory", err)
	}

	backups := []domain.BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !isBackupFilename(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		typ, ts := parseFilename(entry.Name())
		if ts.IsZero() {
			ts = info.ModTime()
		}
		backups = append(backups, domain.BackupInfo{
			Filename:      entry.Name(),
			Path:          filepath.Join(m.dir, entry.Name()),
			Type:          typ,
			Timestamp:     ts,
			Size:          info.Size(),
			SizeFormatted: formatSize(info.Size()),
			CreatedAt:     info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// CreateAutomatic runs the startup snapshot sequence: self-heal a
// corrupted store from the newest valid backup, guarantee the initial
// backup exists, take a timestamped snapshot and enforce retention. Must
// complete before the store is opened for transactional use. A corrupted
// store with no recoverable backup is fatal for the caller.
func (m *Manager) CreateAutomatic() (*domain.RestoreReport, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, domain.Wrap(domain.KindIO, "unable to create backup directory", err)
	}

	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		// First run: the store will be created by the migrations.
		return &domain.RestoreReport{}, nil
	}

	if err := m.VerifyIntegrity(m.dbPath); err != nil {
		m.log.Warn("store failed integrity check, attempting recovery", zap.Error(err))
		used, restoreErr := m.RestoreLatest()
		if restoreErr != nil {
			return nil, domain.E(domain.KindIntegrity, "store corrupted and unrecoverable: no valid backup found")
		}
		m.log.Info("store recovered from backup", zap.String("backup", used))
		return &domain.RestoreReport{Restored: true, BackupUsed: used}, nil
	}

	initialPath := filepath.Join(m.dir, initialFilename)
	if _, err := os.Stat(initialPath); os.IsNotExist(err) {
		if err := copyFile(m.dbPath, initialPath); err != nil {
			return nil, domain.Wrap(domain.KindIO, "unable to create initial backup", err)
		}
	}

	filename := automaticFilename(time.Now())
	if err := copyFile(m.dbPath, filepath.Join(m.dir, filename)); err != nil {
		return nil, domain.Wrap(domain.KindIO, "unable to create backup", err)
	}

	if err := m.ManageRetention(m.retention); err != nil {
		m.log.Warn("backup retention cleanup failed", zap.Error(err))
	}

	m.log.Info("automatic backup created", zap.String("filename", filename))
	return &domain.RestoreReport{Filename: filename}, nil
}

// CreateManual takes an operator-requested snapshot. Manual snapshots are
// never subject to retention deletion.
func (m *Manager) CreateManual() (*domain.BackupInfo, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, domain.Wrap(domain.KindIO, "unable to create backup directory", err)
	}
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return nil, domain.E(domain.KindNotFound, "store does not exist")
	}
	if err := m.VerifyIntegrity(m.dbPath); err != nil {
		return nil, err
	}

	filename := taggedFilename(tagManual, time.Now())
	path := filepath.Join(m.dir, filename)
	if err := copyFile(m.dbPath, path); err != nil {
		return nil, domain.Wrap(domain.KindIO, "unable to create backup", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.Wrap(domain.KindIO, "unable to stat backup", err)
	}
	typ, ts := parseFilename(filename)
	m.log.Info("manual backup created", zap.String("filename", filename))
	return &domain.BackupInfo{
		Filename:      filename,
		Path:          path,
		Type:          typ,
		Timestamp:     ts,
		Size:          info.Size(),
		SizeFormatted: formatSize(info.Size()),
		CreatedAt:     info.ModTime(),
	}, nil
}

// ManageRetention deletes the oldest automatic snapshots beyond limit.
// Initial, manual and pre-restore snapshots are excluded from both the
// count and the deletion. Running it twice with no new snapshots is a
// no-op the second time.
func (m *Manager) ManageRetention(limit int) error {
	backups, err := m.List()
	if err != nil {
		return err
	}

	automatic := []domain.BackupInfo{}
	for _, b := range backups {
		if b.Type == domain.BackupAutomatic {
			automatic = append(automatic, b)
		}
	}
	// List is newest first; delete from the tail.
	for i := len(automatic) - 1; i >= limit && i >= 0; i-- {
		if err := os.Remove(automatic[i].Path); err != nil {
			m.log.Warn("unable to remove old backup",
				zap.String("filename", automatic[i].Filename), zap.Error(err))
			continue
		}
		m.log.Info("old backup removed", zap.String("filename", automatic[i].Filename))
	}
	return nil
}

// FindLatestValid scans snapshots newest first for one that passes the
// integrity check. The initial backup is only tried after every other
// snapshot has failed.
func (m *Manager) FindLatestValid() (*domain.BackupInfo, error) {
	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	var initial *domain.BackupInfo
	for i := range backups {
		b := backups[i]
		if b.Type == domain.BackupInitial {
			if initial == nil {
				initial = &b
			}
			continue
		}
		if m.VerifyIntegrity(b.Path) == nil {
			return &b, nil
		}
	}
	if initial != nil && m.VerifyIntegrity(initial.Path) == nil {
		return initial, nil
	}
	return nil, domain.E(domain.KindNotFound, "no valid backup found")
}

// RestoreLatest restores the newest valid snapshot over the live store and
// returns its filename.
func (m *Manager) RestoreLatest() (string, error) {
	latest, err := m.FindLatestValid()
	if err != nil {
		return "", err
	}
	if err := m.Restore(latest.Filename); err != nil {
		return "", err
	}
	return latest.Filename, nil
}

// Restore copies the named snapshot over the live store. The snapshot is
// integrity-checked first, and if a live store exists it is preserved as a
// pre-restore snapshot before being overwritten. The pre-restore snapshot
// is an artifact: it is not removed when the copy fails.
func (m *Manager) Restore(filename string) error {
	backupPath := filepath.Join(m.dir, filepath.Base(filename))
	if _, err := os.Stat(backupPath); err != nil {
		return domain.E(domain.KindNotFound, "backup file not found")
	}
	if err := m.VerifyIntegrity(backupPath); err != nil {
		return domain.Wrap(domain.KindIntegrity, "backup is corrupted: "+err.Error(), err)
	}

	if _, err := os.Stat(m.dbPath); err == nil {
		safety := filepath.Join(m.dir, taggedFilename(tagPreRestore, time.Now()))
		if err := copyFile(m.dbPath, safety); err != nil {
			m.log.Warn("unable to create pre-restore snapshot", zap.Error(err))
		}
	}

	if err := copyFile(backupPath, m.dbPath); err != nil {
		return domain.Wrap(domain.KindIO, "unable to restore backup", err)
	}
	m.log.Info("backup restored", zap.String("filename", filepath.Base(filename)))
	return nil
}

// Delete removes a snapshot. The initial backup can never be deleted.
func (m *Manager) Delete(filename string) error {
	name := filepath.Base(filename)
	if typ, _ := parseFilename(name); typ == domain.BackupInitial {
		return domain.E(domain.KindForbidden, "the initial backup cannot be deleted")
	}
	path := filepath.Join(m.dir, name)
	if _, err := os.Stat(path); err != nil {
		return domain.E(domain.KindNotFound, "backup file not found")
	}
	if err := os.Remove(path); err != nil {
		return domain.Wrap(domain.KindIO, "unable to delete backup", err)
	}
	m.log.Info("backup deleted", zap.String("filename", name))
	return nil
}

// Stats summarizes the backup directory for the admin screen.
func (m *Manager) Stats() (*domain.BackupStats, error) {
	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	stats := &domain.BackupStats{
		TotalBackups: len(backups),
		BackupDir:    m.dir,
	}
	for _, b := range backups {
		stats.TotalSize += b.Size
		switch b.Type {
		case domain.BackupManual:
			stats.ManualBackups++
		case domain.BackupAutomatic:
			stats.AutomaticBackups++
		}
	}
	stats.TotalSizeFormatted = formatSize(stats.TotalSize)
	if len(backups) > 0 {
		stats.LatestBackup = &backups[0]
	}
	return stats, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
