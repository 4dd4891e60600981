package settings

import (
	"path/filepath"

	"codeberg.org/mutker/weldctl/internal/errors"
)

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/weldctl/settings.db"
)

type Config struct {
	DBPath string
	// BackupDir receives a copy of the database before a schema rebuild.
	// Empty means a "backups" directory next to DBPath.
	BackupDir string
}

func DefaultConfig() Config {
	return Config{
		DBPath: defaultDBPath,
	}
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New().New(ErrInvalidDBPath)
	}
	return nil
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
