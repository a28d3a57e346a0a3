package extractor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Image is a discovered input file. Name is the base name used as cache key.
type Image struct {
	Name string
	Path string
}

// ScanImages walks dir recursively and returns the files whose extension
// matches ext (case-insensitive), sorted by name. When two files in different
// subdirectories share a base name, the first path in lexical order is kept.
func ScanImages(dir, ext string) ([]Image, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputDirNotFound, dir)
		}
		return nil, fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.EqualFold(filepath.Ext(path), ext) && isRegularFile(path, d) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	images := make([]Image, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if first, dup := seen[name]; dup {
			log.Warn().Str("file", name).Str("kept", first).Str("ignored", p).Msg("⚠️ Duplicate image name, ignoring")
			continue
		}
		seen[name] = p
		images = append(images, Image{Name: name, Path: p})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}

// isRegularFile also accepts symlinks to regular files. Symlinked directories
// are not followed.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
