// Package mudio applies ordered metadata operations to audio files in
// bulk. Each file moves through a fixed pipeline of validate, read,
// filter, compute, back up, write, verify; the dispatcher fans the
// pipeline out over many files at once.
package mudio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"mudio/op"
	"mudio/tags"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrFormat       = errors.New("unreadable format")
	ErrPermission   = errors.New("permission denied")
	ErrVerification = errors.New("verification failed")
)

const (
	DefaultMaxFileSize = 500 << 20
	DefaultBackupTries = 10
	DefaultMinParallel = 10
)

// Codec reads and writes the field map of one audio file.
// Implementations must be safe for concurrent use.
type Codec interface {
	CanRead(path string) bool
	ReadFields(path string, schema tags.Schema) (tags.Fields, error)
	WriteFields(path string, fields tags.Fields) error
}

// Processor holds everything one run needs: the codec, the operations
// and filters to apply, and the safety policy. The zero value of each
// knob means its default; a zero Codec is the caller's bug.
type Processor struct {
	Codec   Codec
	Ops     []op.Op
	Filters []op.Filter

	Schema        tags.Schema
	DryRun        bool
	ReadOnly      bool
	Force         bool
	NoVerify      bool
	BackupDir     string
	DeleteBackups bool
	MaxFileSize   int64
	BackupTries   int
	Workers       int
	MinParallel   int
	Progress      Progress
}

type Status uint8

const (
	StatusOK Status = iota
	StatusNoChange
	StatusDryRun
	StatusSkipped
	StatusValidationFailed
	StatusReadFailed
	StatusBackupFailed
	StatusWriteFailed
	StatusVerifyFailed
)

// Passed reports whether the file came through without error. Skipped
// files neither pass nor fail.
func (s Status) Passed() bool {
	switch s {
	case StatusOK, StatusNoChange, StatusDryRun:
		return true
	}
	return false
}

func (s Status) Failed() bool {
	switch s {
	case StatusValidationFailed, StatusReadFailed, StatusBackupFailed, StatusWriteFailed, StatusVerifyFailed:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoChange:
		return "no change"
	case StatusDryRun:
		return "dry run"
	case StatusSkipped:
		return "skipped"
	case StatusValidationFailed:
		return "validation failed"
	case StatusReadFailed:
		return "read failed"
	case StatusBackupFailed:
		return "backup failed"
	case StatusWriteFailed:
		return "write failed"
	case StatusVerifyFailed:
		return "verify failed"
	}
	return "unknown"
}

// Result is the outcome of one file's trip through the pipeline.
type Result struct {
	Path   string
	Ext    string
	Status Status
	Err    error

	Original tags.Fields
	Planned  tags.Fields
	Changes  op.Changes

	Wrote    bool
	Verified map[string]bool

	BackupPath    string
	BackupKept    bool
	BackupRemoved bool
}

// ProcessFile runs the pipeline against one file. It never leaves the
// file half written: a failed write is rolled back from its backup when
// one exists. Failures are reported in the Result, never panicked.
func (p *Processor) ProcessFile(ctx context.Context, path string) Result {
	res := Result{Path: path, Ext: strings.ToLower(filepath.Ext(path))}

	if err := p.validate(path); err != nil {
		res.Status = StatusValidationFailed
		res.Err = err
		return res
	}

	orig, err := p.Codec.ReadFields(path, p.schema())
	if err != nil {
		res.Status = StatusReadFailed
		res.Err = fmt.Errorf("%w: %v", ErrFormat, err)
		return res
	}
	res.Original = orig

	if !op.MatchAll(p.Filters, orig) {
		res.Status = StatusSkipped
		return res
	}

	if p.ReadOnly {
		res.Status = StatusOK
		return res
	}

	planned, changes := op.Compute(orig, p.Ops)
	res.Planned = planned
	res.Changes = changes

	if !changes.Any() {
		res.Status = StatusNoChange
		return res
	}

	if p.DryRun {
		res.Status = StatusDryRun
		return res
	}

	if p.BackupDir != "" {
		backup, err := p.CreateBackup(path)
		if err != nil {
			res.Status = StatusBackupFailed
			res.Err = fmt.Errorf("create backup: %w", err)
			return res
		}
		res.BackupPath = backup
		res.BackupKept = true
	}

	if err := p.Codec.WriteFields(path, planned); err != nil {
		res.Status = StatusWriteFailed
		res.Err = fmt.Errorf("write tags: %w", err)
		if res.BackupPath != "" {
			if rerr := RestoreBackup(res.BackupPath, path); rerr != nil {
				res.Err = errors.Join(res.Err, fmt.Errorf("restore backup: %w", rerr))
			}
		}
		return res
	}
	res.Wrote = true

	if !p.NoVerify {
		verified, err := p.verifyWritten(path, planned, changes)
		res.Verified = verified
		if err != nil {
			res.Status = StatusVerifyFailed
			res.Err = err
			return res
		}
	}

	if res.BackupPath != "" && p.DeleteBackups {
		if err := os.Remove(res.BackupPath); err != nil {
			slog.WarnContext(ctx, "remove backup", "path", res.BackupPath, "err", err)
		} else {
			res.BackupKept = false
			res.BackupRemoved = true
		}
	}

	res.Status = StatusOK
	return res
}

func (p *Processor) validate(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: no such file", ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: not a regular file", ErrValidation)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: empty file", ErrValidation)
	}
	if !p.Force && info.Size() > p.maxFileSize() {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, p.maxFileSize())
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fmt.Errorf("%w: no read access", ErrPermission)
	}
	if !p.DryRun && !p.ReadOnly && !p.Force {
		if err := unix.Access(path, unix.W_OK); err != nil {
			return fmt.Errorf("%w: no write access", ErrPermission)
		}
	}
	if !p.Codec.CanRead(path) {
		return fmt.Errorf("%w: unsupported file type %q", ErrValidation, filepath.Ext(path))
	}
	return nil
}

// numbering fields verify as integers so a file that stores "3" for a
// planned "03" still passes
var numericVerify = []string{tags.Track, tags.Disc, tags.TotalTracks, tags.TotalDiscs}

func (p *Processor) verifyWritten(path string, planned tags.Fields, changes op.Changes) (map[string]bool, error) {
	actual, err := p.Codec.ReadFields(path, p.schema())
	if err != nil {
		return nil, fmt.Errorf("%w: reread: %v", ErrVerification, err)
	}

	verified := make(map[string]bool)
	var failed []string
	for _, field := range changes.Fields() {
		want := op.Normalize(field, planned[field])
		got := op.Normalize(field, actual[field])
		ok := slices.Equal(want, got) || equalNumeric(field, want, got)
		verified[field] = ok
		if !ok {
			failed = append(failed, field)
		}
	}
	if len(failed) > 0 {
		return verified, fmt.Errorf("%w: mismatch on %s", ErrVerification, strings.Join(failed, ", "))
	}
	return verified, nil
}

func equalNumeric(field string, want, got []string) bool {
	if !slices.Contains(numericVerify, field) {
		return false
	}
	if len(want) != 1 || len(got) != 1 {
		return false
	}
	w, werr := strconv.Atoi(strings.TrimSpace(want[0]))
	g, gerr := strconv.Atoi(strings.TrimSpace(got[0]))
	return werr == nil && gerr == nil && w == g
}

func (p *Processor) schema() tags.Schema {
	if p.Schema == "" {
		return tags.SchemaExtended
	}
	return p.Schema
}

func (p *Processor) maxFileSize() int64 {
	if p.MaxFileSize > 0 {
		return p.MaxFileSize
	}
	return DefaultMaxFileSize
}
