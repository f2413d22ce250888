package mudio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	for _, name := range []string{"a.mp3", "b2.flac", "b10.flac", "notes.txt"} {
		newAudioFile(t, root, name, "x")
	}
	for _, name := range []string{"c.flac", "d.ogg"} {
		newAudioFile(t, sub, name, "x")
	}

	// direct children only, unsupported files dropped, natural order
	paths, err := CollectFiles(codec, root, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.mp3"),
		filepath.Join(root, "b2.flac"),
		filepath.Join(root, "b10.flac"),
	}, paths)

	paths, err = CollectFiles(codec, root, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.mp3"),
		filepath.Join(root, "b2.flac"),
		filepath.Join(root, "b10.flac"),
		filepath.Join(sub, "c.flac"),
		filepath.Join(sub, "d.ogg"),
	}, paths)
}

func TestCollectFilesExtFilter(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	root := t.TempDir()
	for _, name := range []string{"a.mp3", "b.flac", "c.ogg"} {
		newAudioFile(t, root, name, "x")
	}

	// dot optional, case-insensitive
	for _, exts := range [][]string{{".flac"}, {"flac"}, {"FLAC"}} {
		paths, err := CollectFiles(codec, root, false, exts)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "b.flac")}, paths)
	}

	paths, err := CollectFiles(codec, root, false, []string{"mp3", "ogg"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.mp3"),
		filepath.Join(root, "c.ogg"),
	}, paths)
}

func TestCollectFilesSingleFile(t *testing.T) {
	t.Parallel()

	codec := newMemCodec()
	root := t.TempDir()

	// a direct file path is returned as-is, supported or not
	path := newAudioFile(t, root, "a.mp3", "x")
	paths, err := CollectFiles(codec, path, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)

	text := newAudioFile(t, root, "notes.txt", "x")
	paths, err = CollectFiles(codec, text, true, []string{"flac"})
	require.NoError(t, err)
	assert.Equal(t, []string{text}, paths)
}

func TestCollectFilesMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := CollectFiles(newMemCodec(), filepath.Join(t.TempDir(), "nope"), false, nil)
	require.Error(t, err)
}
