package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Copy writes src's contents to dst, truncating anything already there.
// The destination keeps the source's permission bits.
func Copy(src, dst string) error {
	return copyFile(src, dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// CopyExclusive is Copy except that it fails when dst already exists,
// with an error matching fs.ErrExist. Concurrent writers racing for the
// same destination see exactly one winner.
func CopyExclusive(src, dst string) error {
	return copyFile(src, dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
}

func copyFile(src, dst string, flag int) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, flag, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}

// Hash returns the hex encoded sha256 of the file's contents.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash contents: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
