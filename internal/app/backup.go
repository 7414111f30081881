package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/orientamada/orientamada/internal/repository/db"
)

const backupMarker = ".backup-"

// ErrBackupUnsupported is returned for non-file databases / Sauvegarde impossible pour ce type de BD
var ErrBackupUnsupported = errors.New("backup is only supported for file-based sqlite databases")

// sqliteFile extracts the database path from a sqlite DSN / Extrait le chemin du fichier sqlite
func sqliteFile(dsn string) string {
	name := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(name, "?"); idx >= 0 {
		name = name[:idx]
	}
	if name == ":memory:" || name == "" {
		return ""
	}
	return name
}

// Backup writes a consistent copy of the sqlite database with VACUUM INTO / Crée une copie cohérente
func (c *Container) Backup(ctx context.Context) (string, error) {
	if c.dbType() != db.SQLite {
		return "", ErrBackupUnsupported
	}
	dbName := sqliteFile(c.Config.Database.DSN)
	if dbName == "" {
		return "", ErrBackupUnsupported
	}

	if err := os.MkdirAll(c.Config.Backup.Path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	filename := fmt.Sprintf("%s%s%s.db", filepath.Base(dbName), backupMarker, time.Now().Format("20060102-150405"))
	path := filepath.Join(c.Config.Backup.Path, filename)

	query := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(path, "'", "''"))
	if _, err := c.DB.ExecContext(ctx, query); err != nil {
		return "", fmt.Errorf("backup execution failed: %w", err)
	}

	slog.Info("database backup created", "path", path)
	return path, nil
}

// cleanOldBackups removes backups older than the retention / Supprime les sauvegardes expirées
func (c *Container) cleanOldBackups() error {
	if c.Config.Backup.RetentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -c.Config.Backup.RetentionDays)

	entries, err := os.ReadDir(c.Config.Backup.Path)
	if err != nil {
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.Contains(name, backupMarker) || !strings.HasSuffix(name, ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("failed to stat backup", "file", name, "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.Config.Backup.Path, name)); err != nil {
			slog.Warn("failed to delete old backup", "file", name, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("old backups cleaned up", "count", deleted)
	}
	return nil
}
