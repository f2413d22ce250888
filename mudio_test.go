package mudio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mudio/op"
	"mudio/tags"
)

// memCodec keeps field maps in memory, keyed by path, while the files
// themselves live on disk for the validation and backup stages.
type memCodec struct {
	mu        sync.Mutex
	files     map[string]tags.Fields
	readErr   error
	writeHook func(path string, fields tags.Fields) error
}

func newMemCodec() *memCodec {
	return &memCodec{files: map[string]tags.Fields{}}
}

func (c *memCodec) CanRead(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac", ".mp3", ".ogg":
		return true
	}
	return false
}

func (c *memCodec) ReadFields(path string, _ tags.Schema) (tags.Fields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	fields, ok := c.files[path]
	if !ok {
		return nil, fmt.Errorf("no entry for %q", path)
	}
	return fields.Clone(), nil
}

func (c *memCodec) WriteFields(path string, fields tags.Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeHook != nil {
		if err := c.writeHook(path, fields); err != nil {
			return err
		}
	}
	c.files[path] = fields.Clone()
	return nil
}

func (c *memCodec) set(path string, fields tags.Fields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = fields
}

func (c *memCodec) get(path string) tags.Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[path].Clone()
}

func newAudioFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFileWrite(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}, tags.Genre: {"Rock"}})

	p := &Processor{Codec: codec, Ops: []op.Op{op.Write(tags.Title, "New", ";")}}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, res.Wrote)
	assert.True(t, res.Status.Passed())
	assert.Equal(t, []string{"Old"}, res.Original[tags.Title])
	assert.Equal(t, []string{"New"}, res.Planned[tags.Title])
	assert.Equal(t, []string{tags.Title}, res.Changes.Fields())
	assert.Equal(t, map[string]bool{tags.Title: true}, res.Verified)
	assert.Equal(t, []string{"New"}, codec.get(path)[tags.Title])
	assert.Equal(t, []string{"Rock"}, codec.get(path)[tags.Genre])
}

func TestProcessFileNoChange(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Genre: {"Rock"}})

	p := &Processor{Codec: codec, Ops: []op.Op{op.Enlist(tags.Genre, "rock", ";")}}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusNoChange, res.Status)
	assert.False(t, res.Wrote)
	assert.True(t, res.Status.Passed())
}

func TestProcessFileDryRun(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})

	p := &Processor{Codec: codec, DryRun: true, Ops: []op.Op{op.Write(tags.Title, "New", ";")}}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusDryRun, res.Status)
	assert.False(t, res.Wrote)
	assert.Equal(t, []string{"New"}, res.Planned[tags.Title])

	// nothing was written
	assert.Equal(t, []string{"Old"}, codec.get(path)[tags.Title])
}

func TestProcessFileSkipped(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Genre: {"Rock"}})

	filter, err := op.NewFilter("genre", "jazz", false)
	require.NoError(t, err)

	p := &Processor{
		Codec:   codec,
		Ops:     []op.Op{op.Write(tags.Title, "New", ";")},
		Filters: []op.Filter{filter},
	}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.False(t, res.Status.Passed())
	assert.False(t, res.Status.Failed())
	assert.NotContains(t, codec.get(path), tags.Title)
}

func TestProcessFileReadOnly(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})

	p := &Processor{Codec: codec, ReadOnly: true}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusOK, res.Status)
	assert.False(t, res.Wrote)
	assert.Equal(t, []string{"Old"}, res.Original[tags.Title])
}

func TestProcessFileValidate(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	dir := t.TempDir()
	p := &Processor{Codec: codec}

	res := p.ProcessFile(context.Background(), filepath.Join(dir, "missing.flac"))
	assert.Equal(t, StatusValidationFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrValidation)

	res = p.ProcessFile(context.Background(), dir)
	assert.Equal(t, StatusValidationFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrValidation)

	empty := newAudioFile(t, dir, "empty.flac", "")
	res = p.ProcessFile(context.Background(), empty)
	assert.Equal(t, StatusValidationFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrValidation)

	text := newAudioFile(t, dir, "notes.txt", "hello")
	res = p.ProcessFile(context.Background(), text)
	assert.Equal(t, StatusValidationFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrValidation)
}

func TestProcessFileSizeCeiling(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO DATA")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})

	p := &Processor{Codec: codec, MaxFileSize: 4, Ops: []op.Op{op.Write(tags.Title, "New", ";")}}
	res := p.ProcessFile(context.Background(), path)
	assert.Equal(t, StatusValidationFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrValidation)

	// force lifts the ceiling
	p.Force = true
	res = p.ProcessFile(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusOK, res.Status)
}

func TestProcessFilePermission(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}

	codec := newMemCodec()
	dir := t.TempDir()
	path := newAudioFile(t, dir, "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})
	require.NoError(t, os.Chmod(path, 0o400))

	p := &Processor{Codec: codec, Ops: []op.Op{op.Write(tags.Title, "New", ";")}}
	res := p.ProcessFile(context.Background(), path)
	assert.Equal(t, StatusValidationFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrPermission)

	// dry-run needs no write access
	p.DryRun = true
	res = p.ProcessFile(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusDryRun, res.Status)
}

func TestProcessFileReadFailure(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{})
	codec.readErr = errors.New("bad header")

	p := &Processor{Codec: codec, Ops: []op.Op{op.Write(tags.Title, "New", ";")}}
	res := p.ProcessFile(context.Background(), path)

	assert.Equal(t, StatusReadFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrFormat)
}

func TestProcessFileWriteFailureRollsBack(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	src := filepath.Join(dir, "music")
	require.NoError(t, os.MkdirAll(src, 0o755))

	path := newAudioFile(t, src, "song.flac", "ORIGINAL AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})
	codec.writeHook = func(path string, _ tags.Fields) error {
		// half-written garbage before the failure surfaces
		if err := os.WriteFile(path, []byte("CORRUPT"), 0o644); err != nil {
			return err
		}
		return errors.New("write exploded")
	}

	p := &Processor{
		Codec:     codec,
		BackupDir: backups,
		Ops:       []op.Op{op.Write(tags.Title, "New", ";")},
	}
	res := p.ProcessFile(context.Background(), path)

	assert.Equal(t, StatusWriteFailed, res.Status)
	assert.True(t, res.Status.Failed())
	require.Error(t, res.Err)

	// the source got its original bytes back and the backup remains
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ORIGINAL AUDIO", string(data))
	assert.True(t, res.BackupKept)
	assert.FileExists(t, res.BackupPath)
}

func TestProcessFileVerifyFailure(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	src := filepath.Join(dir, "music")
	require.NoError(t, os.MkdirAll(src, 0o755))

	path := newAudioFile(t, src, "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})
	codec.writeHook = func(path string, fields tags.Fields) error {
		// the write "succeeds" but the field never sticks
		fields[tags.Title] = []string{"Old"}
		return nil
	}

	p := &Processor{
		Codec:     codec,
		BackupDir: backups,
		Ops:       []op.Op{op.Write(tags.Title, "New", ";")},
	}
	res := p.ProcessFile(context.Background(), path)

	assert.Equal(t, StatusVerifyFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrVerification)
	assert.Equal(t, map[string]bool{tags.Title: false}, res.Verified)
	assert.True(t, res.BackupKept)
	assert.FileExists(t, res.BackupPath)
}

func TestProcessFileNumericVerify(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Track: {"1"}})
	codec.writeHook = func(path string, fields tags.Fields) error {
		// the container stores zero-padded numbering
		fields[tags.Track] = []string{"03"}
		return nil
	}

	p := &Processor{Codec: codec, Ops: []op.Op{op.Write(tags.Track, "3", ";")}}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, map[string]bool{tags.Track: true}, res.Verified)
}

func TestProcessFileNoVerify(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	path := newAudioFile(t, t.TempDir(), "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})
	codec.writeHook = func(path string, fields tags.Fields) error {
		fields[tags.Title] = []string{"Old"}
		return nil
	}

	p := &Processor{Codec: codec, NoVerify: true, Ops: []op.Op{op.Write(tags.Title, "New", ";")}}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Nil(t, res.Verified)
}

func TestProcessFileDeleteBackups(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	src := filepath.Join(dir, "music")
	require.NoError(t, os.MkdirAll(src, 0o755))

	path := newAudioFile(t, src, "song.flac", "AUDIO")
	codec.set(path, tags.Fields{tags.Title: {"Old"}})

	p := &Processor{
		Codec:         codec,
		BackupDir:     backups,
		DeleteBackups: true,
		Ops:           []op.Op{op.Write(tags.Title, "New", ";")},
	}
	res := p.ProcessFile(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, res.BackupRemoved)
	assert.False(t, res.BackupKept)
	assert.NoFileExists(t, res.BackupPath)
}
