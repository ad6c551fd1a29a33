package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mercado-pos/domain"
	"mercado-pos/internal/database"
	"mercado-pos/internal/migrations"
)

// buildStore creates a real store file with the full schema at path.
func buildStore(t *testing.T, path string) {
	t.Helper()
	db, err := database.Connect(path)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))
	require.NoError(t, db.Close())
}

func buildStoreWithProduct(t *testing.T, path, name string) {
	t.Helper()
	db, err := database.Connect(path)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))
	_, err = db.Exec(`
		INSERT INTO products (name, barcode, purchase_price, profit_margin, sale_price, quantity)
		VALUES (?, 'b-1', 1, 0, 2, 10)`, name)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func writeGarbage(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not a database file"), 0o644))
}

func newTestManager(t *testing.T, retention int) (*Manager, string, string) {
	t.Helper()
	root := t.TempDir()
	dbPath := filepath.Join(root, "mercado.db")
	dir := filepath.Join(root, "backups")
	return NewManager(dbPath, dir, retention, zap.NewNop()), dbPath, dir
}

func TestFilenameCodec(t *testing.T) {
	ts := time.Date(2026, 8, 30, 14, 5, 9, 0, time.Local)

	auto := automaticFilename(ts)
	assert.Equal(t, "mercado_2026-08-30_14-05-09.db", auto)
	typ, parsed := parseFilename(auto)
	assert.Equal(t, domain.BackupAutomatic, typ)
	assert.True(t, parsed.Equal(ts))

	manual := taggedFilename(tagManual, ts)
	assert.Equal(t, "mercado_MANUAL_2026-08-30_14-05-09.db", manual)
	typ, _ = parseFilename(manual)
	assert.Equal(t, domain.BackupManual, typ)

	pre := taggedFilename(tagPreRestore, ts)
	typ, _ = parseFilename(pre)
	assert.Equal(t, domain.BackupPreRestore, typ)

	typ, parsed = parseFilename(initialFilename)
	assert.Equal(t, domain.BackupInitial, typ)
	assert.True(t, parsed.IsZero())

	assert.True(t, isBackupFilename(auto))
	assert.False(t, isBackupFilename("notes.txt"))
	assert.False(t, isBackupFilename("other_2026-08-30_14-05-09.db"))
}

func TestVerifyIntegrity(t *testing.T) {
	m, dbPath, _ := newTestManager(t, 30)

	t.Run("valid store passes", func(t *testing.T) {
		buildStore(t, dbPath)
		require.NoError(t, m.VerifyIntegrity(dbPath))
	})

	t.Run("missing file fails", func(t *testing.T) {
		err := m.VerifyIntegrity(filepath.Join(t.TempDir(), "absent.db"))
		require.Error(t, err)
		assert.Equal(t, domain.KindIntegrity, domain.KindOf(err))
	})

	t.Run("garbage file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.db")
		writeGarbage(t, path)
		err := m.VerifyIntegrity(path)
		require.Error(t, err)
		assert.Equal(t, domain.KindIntegrity, domain.KindOf(err))
	})

	t.Run("missing required table fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "partial.db")
		db, err := database.Connect(path)
		require.NoError(t, err)
		_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		err = m.VerifyIntegrity(path)
		require.Error(t, err)
		assert.Equal(t, domain.KindIntegrity, domain.KindOf(err))
		assert.Contains(t, err.Error(), "products")
	})
}

func TestCreateAutomaticFirstRun(t *testing.T) {
	m, _, dir := newTestManager(t, 30)

	report, err := m.CreateAutomatic()
	require.NoError(t, err)
	assert.False(t, report.Restored)
	assert.Empty(t, report.Filename)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateAutomaticSnapshotsAndInitial(t *testing.T) {
	m, dbPath, dir := newTestManager(t, 30)
	buildStore(t, dbPath)

	report, err := m.CreateAutomatic()
	require.NoError(t, err)
	assert.False(t, report.Restored)
	assert.NotEmpty(t, report.Filename)

	// Both the fixed initial backup and the timestamped snapshot exist.
	_, err = os.Stat(filepath.Join(dir, initialFilename))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, report.Filename))
	require.NoError(t, err)
	require.NoError(t, m.VerifyIntegrity(filepath.Join(dir, report.Filename)))
}

func TestCreateAutomaticSelfHeals(t *testing.T) {
	m, dbPath, dir := newTestManager(t, 30)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// A known-good snapshot exists, then the live store gets corrupted.
	backupName := automaticFilename(time.Now().Add(-time.Hour))
	buildStoreWithProduct(t, filepath.Join(dir, backupName), "Survivor")
	writeGarbage(t, dbPath)

	report, err := m.CreateAutomatic()
	require.NoError(t, err)
	assert.True(t, report.Restored)
	assert.Equal(t, backupName, report.BackupUsed)

	require.NoError(t, m.VerifyIntegrity(dbPath))
	db, err := database.Connect(dbPath)
	require.NoError(t, err)
	defer db.Close()
	var name string
	require.NoError(t, db.Get(&name, `SELECT name FROM products LIMIT 1`))
	assert.Equal(t, "Survivor", name)
}

func TestCreateAutomaticUnrecoverable(t *testing.T) {
	m, dbPath, _ := newTestManager(t, 30)
	writeGarbage(t, dbPath)

	_, err := m.CreateAutomatic()
	require.Error(t, err)
	assert.Equal(t, domain.KindIntegrity, domain.KindOf(err))
	assert.Contains(t, err.Error(), "no valid backup found")
}

func TestManualBackupRestoreRoundTrip(t *testing.T) {
	m, dbPath, _ := newTestManager(t, 30)
	buildStoreWithProduct(t, dbPath, "Original")

	info, err := m.CreateManual()
	require.NoError(t, err)
	assert.Equal(t, domain.BackupManual, info.Type)

	// Mutate the live store, then restore the snapshot over it.
	db, err := database.Connect(dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM products`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.NoError(t, m.Restore(info.Filename))

	db, err = database.Connect(dbPath)
	require.NoError(t, err)
	defer db.Close()
	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM products`))
	assert.Equal(t, 1, count)

	// The overwritten store was kept as a pre-restore snapshot.
	backups, err := m.List()
	require.NoError(t, err)
	var preRestore bool
	for _, b := range backups {
		if b.Type == domain.BackupPreRestore {
			preRestore = true
		}
	}
	assert.True(t, preRestore)
}

func TestRestoreUnknownAndCorrupted(t *testing.T) {
	m, dbPath, dir := newTestManager(t, 30)
	buildStore(t, dbPath)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	err := m.Restore("mercado_2020-01-01_00-00-00.db")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	bad := automaticFilename(time.Now())
	writeGarbage(t, filepath.Join(dir, bad))
	err = m.Restore(bad)
	require.Error(t, err)
	assert.Equal(t, domain.KindIntegrity, domain.KindOf(err))
}

func TestRetentionKeepsNewestAutomatic(t *testing.T) {
	m, _, dir := newTestManager(t, 30)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.Local)
	names := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		name := automaticFilename(ts)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("snapshot"), 0o644))
		require.NoError(t, os.Chtimes(path, ts, ts))
		names = append(names, name)
	}
	manual := taggedFilename(tagManual, base)
	require.NoError(t, os.WriteFile(filepath.Join(dir, manual), []byte("snapshot"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, initialFilename), []byte("snapshot"), 0o644))

	require.NoError(t, m.ManageRetention(3))

	survivors := func() map[string]bool {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		set := map[string]bool{}
		for _, e := range entries {
			set[e.Name()] = true
		}
		return set
	}

	got := survivors()
	assert.False(t, got[names[0]])
	assert.False(t, got[names[1]])
	assert.True(t, got[names[2]])
	assert.True(t, got[names[3]])
	assert.True(t, got[names[4]])
	assert.True(t, got[manual], "manual snapshots are exempt from retention")
	assert.True(t, got[initialFilename], "the initial backup is exempt from retention")

	// Idempotent: a second pass with no new snapshots removes nothing.
	require.NoError(t, m.ManageRetention(3))
	assert.Equal(t, got, survivors())
}

func TestFindLatestValidTriesInitialLast(t *testing.T) {
	m, dbPath, dir := newTestManager(t, 30)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	buildStore(t, dbPath)

	// Valid initial, newer corrupted automatic: the initial still wins
	// because nothing else is usable.
	initial := filepath.Join(dir, initialFilename)
	buildStore(t, initial)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(initial, old, old))

	badName := automaticFilename(time.Now().Add(-time.Hour))
	writeGarbage(t, filepath.Join(dir, badName))

	latest, err := m.FindLatestValid()
	require.NoError(t, err)
	assert.Equal(t, initialFilename, latest.Filename)

	// A valid non-initial snapshot is preferred over the initial.
	goodName := automaticFilename(time.Now().Add(-30 * time.Minute))
	buildStore(t, filepath.Join(dir, goodName))

	latest, err = m.FindLatestValid()
	require.NoError(t, err)
	assert.Equal(t, goodName, latest.Filename)
}

func TestDeleteProtectsInitial(t *testing.T) {
	m, dbPath, dir := newTestManager(t, 30)
	buildStore(t, dbPath)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, initialFilename), []byte("snapshot"), 0o644))

	err := m.Delete(initialFilename)
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	_, statErr := os.Stat(filepath.Join(dir, initialFilename))
	require.NoError(t, statErr)

	err = m.Delete("mercado_2020-01-01_00-00-00.db")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	info, err := m.CreateManual()
	require.NoError(t, err)
	require.NoError(t, m.Delete(info.Filename))
	_, statErr = os.Stat(info.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStats(t *testing.T) {
	m, dbPath, _ := newTestManager(t, 30)
	buildStore(t, dbPath)

	_, err := m.CreateAutomatic()
	require.NoError(t, err)
	_, err = m.CreateManual()
	require.NoError(t, err)

	stats, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalBackups) // initial + automatic + manual
	assert.Equal(t, 1, stats.AutomaticBackups)
	assert.Equal(t, 1, stats.ManualBackups)
	assert.Positive(t, stats.TotalSize)
	require.NotNil(t, stats.LatestBackup)
}
