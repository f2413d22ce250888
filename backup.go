package mudio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mudio/fileutil"
)

// CreateBackup copies the file into the backup directory under its own
// name, or name_1, name_2, ... when those are taken, claiming the slot
// exclusively and verifying the copy by checksum. The backup directory
// must sit outside the source file's directory tree so a recursive run
// cannot pick its own backups up.
func (p *Processor) CreateBackup(path string) (string, error) {
	if insideTree(filepath.Dir(path), p.BackupDir) {
		return "", fmt.Errorf("backup dir %q inside source dir tree", p.BackupDir)
	}
	if err := os.MkdirAll(p.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i <= p.backupTries(); i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		dst := filepath.Join(p.BackupDir, name)

		err := copyVerified(path, dst, true)
		switch {
		case errors.Is(err, fs.ErrExist):
			continue
		case err != nil:
			os.Remove(dst)
			return "", err
		}
		return dst, nil
	}
	return "", fmt.Errorf("no free backup name for %q after %d tries", base, p.backupTries())
}

// RestoreBackup copies a backup over its source file, verifying the
// restore by checksum.
func RestoreBackup(backup, path string) error {
	return copyVerified(backup, path, false)
}

func copyVerified(src, dst string, exclusive bool) error {
	cp := fileutil.Copy
	if exclusive {
		cp = fileutil.CopyExclusive
	}
	if err := cp(src, dst); err != nil {
		return err
	}

	srcSum, err := fileutil.Hash(src)
	if err != nil {
		return fmt.Errorf("hash source: %w", err)
	}
	dstSum, err := fileutil.Hash(dst)
	if err != nil {
		return fmt.Errorf("hash copy: %w", err)
	}
	if srcSum != dstSum {
		return fmt.Errorf("checksum mismatch between %q and %q", src, dst)
	}
	return nil
}

// insideTree reports whether dir sits at or below root.
func insideTree(root, dir string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	dirAbs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, dirAbs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (p *Processor) backupTries() int {
	if p.BackupTries > 0 {
		return p.BackupTries
	}
	return DefaultBackupTries
}
