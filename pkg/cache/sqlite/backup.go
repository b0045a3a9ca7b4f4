package sqlite

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/glossa/pkg/apperr"
)

// BackupPath returns the backup location for dbPath: its extension is
// replaced by ".bak.db".
func BackupPath(dbPath string) string {
	return strings.TrimSuffix(dbPath, filepath.Ext(dbPath)) + ".bak.db"
}

// Backup copies the database file at dbPath over its previous backup. It
// returns "" without error when there is no database yet. Call it before
// New so the copy is consistent.
func Backup(dbPath string) (string, error) {
	src, err := os.Open(dbPath)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.WithField("path", dbPath).Debug("[CACHE] no database to back up")
		return "", nil
	}
	if err != nil {
		return "", apperr.Storage("backup", err)
	}
	defer src.Close()

	dst := BackupPath(dbPath)
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", apperr.Storage("backup", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", apperr.Storage("backup", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", apperr.Storage("backup", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", apperr.Storage("backup", err)
	}

	logrus.WithField("backup", dst).Info("[CACHE] database backed up")
	return dst, nil
}
