package mudio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.senan.xyz/natcmp"
)

// CollectFiles finds the files one run will visit. A file path comes
// back as-is, leaving the pipeline to judge it. A directory yields its
// direct children, or everything below it when recursive; entries are
// kept when the codec can read them and, if exts is non-empty, their
// extension is listed (dot optional, case-insensitive). Results come
// back in natural order so track1 sorts before track10.
func CollectFiles(codec Codec, root string, recursive bool, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	allow := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allow[ext] = struct{}{}
	}
	keep := func(path string) bool {
		if !codec.CanRead(path) {
			return false
		}
		if len(allow) == 0 {
			return true
		}
		_, ok := allow[strings.ToLower(filepath.Ext(path))]
		return ok
	}

	var paths []string
	if recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && keep(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk dir: %w", err)
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read dir: %w", err)
		}
		for _, entry := range entries {
			path := filepath.Join(root, entry.Name())
			if entry.Type().IsRegular() && keep(path) {
				paths = append(paths, path)
			}
		}
	}

	slices.SortFunc(paths, natcmp.Compare)
	return paths, nil
}
