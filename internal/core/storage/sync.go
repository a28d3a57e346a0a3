package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// SyncResult counts what a Push or Pull did. Per-file failures are counted
// and the sync carries on.
type SyncResult struct {
	Transferred int      `json:"transferred"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	FailedKeys  []string `json:"failed_keys,omitempty"`
}

// SyncOptions scopes a sync to a key prefix and, optionally, one file
// extension (matched case-insensitively).
type SyncOptions struct {
	Prefix string
	Ext    string
}

func (o SyncOptions) matches(name string) bool {
	return o.Ext == "" || strings.EqualFold(filepath.Ext(name), o.Ext)
}

func (o SyncOptions) key(rel string) string {
	return path.Join(cleanKey(o.Prefix), filepath.ToSlash(rel))
}

// dirPrefix is Prefix as a folder: "FATURA" and "FATURA/" both become
// "FATURA/" so sibling keys like "FATURA_old/x.jpg" never match.
func (o SyncOptions) dirPrefix() string {
	p := strings.Trim(cleanKey(o.Prefix), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Push uploads every file under localDir that the provider does not hold yet.
func Push(ctx context.Context, p Provider, localDir string, opts SyncOptions) (*SyncResult, error) {
	log.Info().Str("from", localDir).Str("to", p.GetProviderName()).Str("prefix", opts.Prefix).Msg("🚀 Starting dataset upload")

	res := &SyncResult{}
	err := filepath.WalkDir(localDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() || !opts.matches(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(localDir, filePath)
		if err != nil {
			return err
		}
		key := opts.key(rel)

		exists, err := p.Exists(ctx, key)
		if err != nil {
			res.fail(key, err)
			return nil
		}
		if exists {
			log.Debug().Str("key", key).Msg("⏭️ Skipping (already uploaded)")
			res.Skipped++
			return nil
		}

		if err := putFile(ctx, p, key, filePath); err != nil {
			res.fail(key, err)
			return nil
		}
		log.Debug().Str("key", key).Msg("✅ Uploaded")
		res.Transferred++
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("upload %s: %w", localDir, err)
	}

	log.Info().Int("uploaded", res.Transferred).Int("skipped", res.Skipped).Int("errors", res.Failed).Msg("📦 Upload complete")
	return res, nil
}

// Pull downloads every object under the prefix that is missing from localDir.
func Pull(ctx context.Context, p Provider, localDir string, opts SyncOptions) (*SyncResult, error) {
	prefix := opts.dirPrefix()
	objects, err := p.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", localDir, err)
	}

	res := &SyncResult{}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" || strings.HasSuffix(obj.Key, "/") || !opts.matches(rel) {
			continue
		}
		dst := filepath.Join(localDir, filepath.FromSlash(rel))
		if !withinDir(localDir, dst) {
			res.fail(obj.Key, fmt.Errorf("key escapes %s", localDir))
			continue
		}

		if _, err := os.Stat(dst); err == nil {
			res.Skipped++
			continue
		}
		if err := getFile(ctx, p, obj.Key, dst); err != nil {
			res.fail(obj.Key, err)
			continue
		}
		res.Transferred++
	}

	log.Info().
		Str("from", p.GetProviderName()).
		Str("to", localDir).
		Int("downloaded", res.Transferred).
		Int("skipped", res.Skipped).
		Int("errors", res.Failed).
		Msg("📥 Dataset download complete")
	return res, nil
}

func (r *SyncResult) fail(key string, err error) {
	log.Warn().Err(err).Str("key", key).Msg("❌ Transfer failed")
	r.Failed++
	r.FailedKeys = append(r.FailedKeys, key)
}

func putFile(ctx context.Context, p Provider, key, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return p.Put(ctx, key, f, info.Size())
}

// getFile downloads into a temporary file first so an interrupted download
// never leaves a truncated image behind.
func getFile(ctx context.Context, p Provider, key, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := p.Get(ctx, key, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
