package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalProvider stores objects as files under a base directory
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a new local file storage provider
func NewLocalProvider(basePath string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalProvider{basePath: basePath}, nil
}

func (p *LocalProvider) path(key string) string {
	return filepath.Join(p.basePath, filepath.FromSlash(cleanKey(key)))
}

func (p *LocalProvider) Put(_ context.Context, key string, body io.ReadSeeker, _ int64) error {
	dst := p.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	return out.Close()
}

func (p *LocalProvider) Exists(_ context.Context, key string) (bool, error) {
	info, err := os.Stat(p.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (p *LocalProvider) List(_ context.Context, prefix string) ([]Object, error) {
	prefix = cleanKey(prefix)
	var objects []Object
	err := filepath.WalkDir(p.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(p.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p.basePath, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (p *LocalProvider) Get(_ context.Context, key string, w io.Writer) error {
	f, err := os.Open(p.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

func (p *LocalProvider) GetProviderName() string {
	return "Local Storage"
}
