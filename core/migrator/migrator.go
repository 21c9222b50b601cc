// Package migrator applies one-off data migrations to the badger store at
// boot, before any worker touches it. Applied migrations are recorded in
// the store itself so re-running is a no-op.
package migrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/defistack/automate/core/backup"
	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
)

// MigrationFunc performs one migration and returns how many records it
// touched
type MigrationFunc func(db storage.Storage) (int, error)

type Migration struct {
	Name     string
	Function MigrationFunc
}

type Migrator struct {
	db         storage.Storage
	migrations []Migration
	backup     *backup.Service
	logger     logger.Logger
	mu         sync.Mutex
}

func NewMigrator(db storage.Storage, backupService *backup.Service, migrations []Migration, lg logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: migrations,
		backup:     backupService,
		logger:     logger.EnsureLogger(lg),
	}
}

// Register adds a migration to the list
func (m *Migrator) Register(name string, fn MigrationFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.migrations = append(m.migrations, Migration{
		Name:     name,
		Function: fn,
	})
}

// Run executes every registered migration that has not been applied yet.
// When anything is pending a full backup is taken first.
func (m *Migrator) Run() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hasPendingMigrations := false
	for _, migration := range m.migrations {
		exists, err := m.db.Exist(migrationKey(migration.Name))
		if err != nil || !exists {
			hasPendingMigrations = true
			break
		}
	}

	if hasPendingMigrations && m.backup != nil {
		m.logger.Info("pending migrations found, creating database backup before proceeding")
		backupFile, err := m.backup.PerformBackup()
		if err != nil {
			return fmt.Errorf("failed to create backup before migrations: %w", err)
		}
		m.logger.Info("database backup created", "file", backupFile)
	}

	for _, migration := range m.migrations {
		key := migrationKey(migration.Name)
		exists, err := m.db.Exist(key)
		if exists && err == nil {
			m.logger.Debug("migration already applied, skipping", "name", migration.Name)
			continue
		}

		m.logger.Info("running migration", "name", migration.Name)
		recordsUpdated, err := migration.Function(m.db)
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
		m.logger.Info("migration completed", "name", migration.Name, "records_updated", recordsUpdated)

		record := fmt.Sprintf("records=%d,ts=%d", recordsUpdated, time.Now().UnixMilli())
		if err := m.db.Set(key, []byte(record)); err != nil {
			return fmt.Errorf("failed to mark migration as complete: %w", err)
		}
	}

	return nil
}

func migrationKey(name string) []byte {
	return []byte(fmt.Sprintf("migration:%s", name))
}
