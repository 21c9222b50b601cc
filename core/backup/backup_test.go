package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistack/automate/core/testutil"
)

func TestPerformBackupWritesFile(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	require.NoError(t, db.Set([]byte("k1"), []byte("v1")))

	dir := t.TempDir()
	svc := NewService(testutil.GetLogger(), db, dir)

	backupFile, err := svc.PerformBackup()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(backupFile) || filepath.Dir(backupFile) != "")

	info, err := os.Stat(backupFile)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestStartPeriodicBackupTwice(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()

	svc := NewService(testutil.GetLogger(), db, t.TempDir())
	require.NoError(t, svc.StartPeriodicBackup(time.Hour))
	defer svc.StopPeriodicBackup()

	assert.Error(t, svc.StartPeriodicBackup(time.Hour))
}

func TestPeriodicBackupRestartsAfterStop(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	require.NoError(t, db.Set([]byte("k1"), []byte("v1")))

	dir := t.TempDir()
	svc := NewService(testutil.GetLogger(), db, dir)

	// first run never ticks before it is stopped
	require.NoError(t, svc.StartPeriodicBackup(time.Hour))
	svc.StopPeriodicBackup()

	require.NoError(t, svc.StartPeriodicBackup(20*time.Millisecond))
	defer svc.StopPeriodicBackup()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		if len(entries) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("restarted backup loop never produced a backup")
}
