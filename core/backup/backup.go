package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
)

// Service takes full badger backups into timestamped subdirectories,
// either on demand or on a ticker
type Service struct {
	logger        logger.Logger
	db            storage.Storage
	backupDir     string
	backupEnabled bool
	interval      time.Duration
	stop          chan struct{}
}

func NewService(lg logger.Logger, db storage.Storage, backupDir string) *Service {
	return &Service{
		logger:        logger.EnsureLogger(lg),
		db:            db,
		backupDir:     backupDir,
		backupEnabled: false,
	}
}

func (s *Service) StartPeriodicBackup(interval time.Duration) error {
	if s.backupEnabled {
		return fmt.Errorf("backup service already running")
	}

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %v", err)
	}

	s.interval = interval
	s.backupEnabled = true

	// a fresh channel per start, the previous one is closed by stop
	s.stop = make(chan struct{})
	go s.backupLoop(s.stop)

	s.logger.Info("started periodic backup", "interval", interval, "dir", s.backupDir)
	return nil
}

func (s *Service) StopPeriodicBackup() {
	if !s.backupEnabled {
		return
	}

	s.backupEnabled = false
	close(s.stop)
	s.logger.Info("stopped periodic backup")
}

func (s *Service) backupLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if backupFile, err := s.PerformBackup(); err != nil {
				s.logger.Error("periodic backup failed", "error", err)
			} else {
				s.logger.Info("periodic backup completed", "file", backupFile)
			}
		case <-stop:
			return
		}
	}
}

// PerformBackup writes one full backup and returns its file path
func (s *Service) PerformBackup() (string, error) {
	timestamp := time.Now().Format("06-01-02-15-04")
	backupPath := filepath.Join(s.backupDir, timestamp)

	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup timestamp directory: %v", err)
	}

	backupFile := filepath.Join(backupPath, "full-backup.db")
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %v", err)
	}
	defer f.Close()

	since := uint64(0)
	_, err = s.db.Backup(context.Background(), f, since)
	if err != nil {
		return "", fmt.Errorf("backup operation failed: %v", err)
	}

	return backupFile, nil
}
