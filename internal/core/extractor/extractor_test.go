package extractor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/ocr"
)

// stubProvider answers from fn and counts calls.
type stubProvider struct {
	fn    func(ctx context.Context, data []byte) (string, error)
	calls atomic.Int32

	mu   sync.Mutex
	seen []ocr.Options
}

func (s *stubProvider) ExtractText(ctx context.Context, data []byte, opts ocr.Options) (*ocr.OCRResult, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, opts)
	s.mu.Unlock()

	text, err := s.fn(ctx, data)
	if err != nil {
		return nil, err
	}
	return &ocr.OCRResult{Text: text}, nil
}

func (s *stubProvider) GetProviderName() string { return "stub" }

func constant(text string) *stubProvider {
	return &stubProvider{fn: func(context.Context, []byte) (string, error) { return text, nil }}
}

// echo returns the image bytes as text, so every file yields distinct output.
func echo() *stubProvider {
	return &stubProvider{fn: func(_ context.Context, data []byte) (string, error) { return string(data), nil }}
}

type fixture struct {
	cfg Config
	dir string
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "raw")
	require.NoError(t, os.MkdirAll(in, 0o755))
	for name, content := range files {
		p := filepath.Join(in, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return fixture{
		dir: root,
		cfg: Config{
			InputDir:    in,
			CachePath:   filepath.Join(root, "processed", "cache.csv"),
			OutputPath:  filepath.Join(root, "processed", "out.csv"),
			WorkerCount: 2,
		},
	}
}

func TestExtractAllConcreteScenario(t *testing.T) {
	f := newFixture(t, map[string]string{"1.jpg": "a", "2.jpg": "b"})
	p := constant("INV-TEXT")

	res, err := New(f.cfg, p).ExtractAll(context.Background())
	require.NoError(t, err)

	want := map[string]string{"1.jpg": "INV-TEXT", "2.jpg": "INV-TEXT"}
	assert.Equal(t, want, res.Texts)

	out, err := cache.Load(f.cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, want, out)

	cached, err := cache.Load(f.cfg.CachePath)
	require.NoError(t, err)
	assert.Equal(t, want, cached)

	assert.Equal(t, Summary{Scanned: 2, Processed: 2, Duration: res.Summary.Duration}, res.Summary)
}

func TestExtractAllUsesFixedRecognitionOptions(t *testing.T) {
	f := newFixture(t, map[string]string{"1.jpg": "a"})
	p := constant("x")

	_, err := New(f.cfg, p).ExtractAll(context.Background())
	require.NoError(t, err)
	require.Len(t, p.seen, 1)
	assert.Equal(t, ocr.Options{PageSegMode: 6, EngineMode: 3, Language: "eng"}, p.seen[0])
}

func TestExtractAllCompleteness(t *testing.T) {
	for _, n := range []int{0, 1, 7, 40} {
		files := make(map[string]string, n)
		for i := 0; i < n; i++ {
			name := filepath.Join("batch", fmt.Sprintf("inv-%03d.jpg", i))
			files[name] = name
		}
		f := newFixture(t, files)

		res, err := New(f.cfg, echo()).ExtractAll(context.Background())
		require.NoError(t, err)

		out, err := cache.Load(f.cfg.OutputPath)
		require.NoError(t, err)
		assert.Len(t, out, n)
		for name := range files {
			assert.Equal(t, name, out[filepath.Base(name)])
		}
		assert.Equal(t, n, res.Summary.Scanned)
	}
}

func TestExtractAllIsolatesFailures(t *testing.T) {
	f := newFixture(t, map[string]string{"good1.jpg": "one", "bad.jpg": "corrupt", "good2.jpg": "two"})
	p := &stubProvider{fn: func(_ context.Context, data []byte) (string, error) {
		if string(data) == "corrupt" {
			return "", errors.New("Error in pixReadMemJpeg")
		}
		return "text:" + string(data), nil
	}}

	res, err := New(f.cfg, p).ExtractAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"bad.jpg":   "",
		"good1.jpg": "text:one",
		"good2.jpg": "text:two",
	}, res.Texts)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.Equal(t, []string{"bad.jpg"}, res.Summary.FailedFiles)
}

func TestExtractAllIsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]string{"1.jpg": "a", "2.jpg": "b", "sub/3.jpg": "c"})
	p := echo()
	ex := New(f.cfg, p)

	_, err := ex.ExtractAll(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(f.cfg.OutputPath)
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.calls.Load())

	res, err := ex.ExtractAll(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(f.cfg.OutputPath)
	require.NoError(t, err)

	assert.EqualValues(t, 3, p.calls.Load(), "second run must not call OCR")
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 3, res.Summary.Cached)
	assert.Zero(t, res.Summary.Processed)
}

func TestExtractAllKeepsCachedValues(t *testing.T) {
	f := newFixture(t, map[string]string{"a.jpg": "a", "b.jpg": "b"})
	require.NoError(t, cache.Save(f.cfg.CachePath, map[string]string{"a.jpg": "X", "old.jpg": "gone from disk"}))
	p := constant("fresh")

	res, err := New(f.cfg, p).ExtractAll(context.Background())
	require.NoError(t, err)

	want := map[string]string{"a.jpg": "X", "b.jpg": "fresh", "old.jpg": "gone from disk"}
	assert.Equal(t, want, res.Texts)
	assert.EqualValues(t, 1, p.calls.Load())

	cached, err := cache.Load(f.cfg.CachePath)
	require.NoError(t, err)
	assert.Equal(t, want, cached)
}

func TestExtractAllEmptyDirectory(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.txt": "not an image"})

	res, err := New(f.cfg, constant("x")).ExtractAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Texts)

	b, err := os.ReadFile(f.cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "file_name,ocr_text\n", string(b))
}

func TestExtractAllMissingDirectory(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.InputDir = filepath.Join(f.dir, "does-not-exist")

	_, err := New(f.cfg, constant("x")).ExtractAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputDirNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(f.cfg.OutputPath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestNewLazyBuildsProviderOnlyWhenNeeded(t *testing.T) {
	f := newFixture(t, map[string]string{"a.jpg": "a"})
	var builds atomic.Int32
	ex := NewLazy(f.cfg, func() (ocr.Provider, error) {
		builds.Add(1)
		return constant("text"), nil
	})

	_, err := ex.ExtractAll(context.Background())
	require.NoError(t, err)
	_, err = ex.ExtractAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, builds.Load())

	// Everything cached: the factory is never consulted.
	var cachedBuilds atomic.Int32
	res, err := NewLazy(f.cfg, func() (ocr.Provider, error) {
		cachedBuilds.Add(1)
		return nil, errors.New("engine missing")
	}).ExtractAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.jpg": "text"}, res.Texts)
	assert.Zero(t, cachedBuilds.Load())
}

func TestNewLazyProviderErrorFailsRun(t *testing.T) {
	f := newFixture(t, map[string]string{"a.jpg": "a"})
	engineErr := errors.New("engine missing")

	_, err := NewLazy(f.cfg, func() (ocr.Provider, error) { return nil, engineErr }).ExtractAll(context.Background())
	assert.ErrorIs(t, err, engineErr)
	assert.NoFileExists(t, f.cfg.OutputPath)
}

func TestExtractAllMalformedCacheFailsLoudly(t *testing.T) {
	f := newFixture(t, map[string]string{"1.jpg": "a"})
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.CachePath), 0o755))
	require.NoError(t, os.WriteFile(f.cfg.CachePath, []byte("name,text\n1.jpg,a\n"), 0o644))

	_, err := New(f.cfg, constant("x")).ExtractAll(context.Background())
	assert.ErrorIs(t, err, cache.ErrMalformed)
}

func TestExtractAllFailureRateThreshold(t *testing.T) {
	f := newFixture(t, map[string]string{"1.jpg": "a", "2.jpg": "b", "3.jpg": "c"})
	f.cfg.MaxFailureRate = 0.5
	p := &stubProvider{fn: func(context.Context, []byte) (string, error) {
		return "", errors.New("tesseract misconfigured")
	}}

	res, err := New(f.cfg, p).ExtractAll(context.Background())
	require.ErrorIs(t, err, ErrFailureRateExceeded)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Summary.Failed)

	_, statErr := os.Stat(f.cfg.CachePath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "failed run must not persist")
}

func TestExtractAllTaskTimeout(t *testing.T) {
	f := newFixture(t, map[string]string{"slow.jpg": "a"})
	f.cfg.TaskTimeout = 20 * time.Millisecond
	p := &stubProvider{fn: func(ctx context.Context, _ []byte) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	res, err := New(f.cfg, p).ExtractAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"slow.jpg": ""}, res.Texts)
	assert.Equal(t, 1, res.Summary.Failed)
}

func TestExtractAllCancelledDoesNotPersist(t *testing.T) {
	f := newFixture(t, map[string]string{"1.jpg": "a", "2.jpg": "b"})
	ctx, cancel := context.WithCancel(context.Background())
	p := &stubProvider{fn: func(ctx context.Context, _ []byte) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}}

	_, err := New(f.cfg, p).ExtractAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(f.cfg.OutputPath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestExtractAllRespectsWorkerLimit(t *testing.T) {
	files := map[string]string{}
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		files[n+".jpg"] = n
	}
	f := newFixture(t, files)
	f.cfg.WorkerCount = 3

	var running, peak atomic.Int32
	p := &stubProvider{fn: func(context.Context, []byte) (string, error) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return "ok", nil
	}}

	_, err := New(f.cfg, p).ExtractAll(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.EqualValues(t, 8, p.calls.Load())
}

func TestNewFillsDefaults(t *testing.T) {
	ex := New(Config{}, constant("x"))
	cfg := ex.Config()
	def := DefaultConfig()
	assert.Equal(t, def.InputDir, cfg.InputDir)
	assert.Equal(t, def.CachePath, cfg.CachePath)
	assert.Equal(t, def.OutputPath, cfg.OutputPath)
	assert.Equal(t, ".jpg", cfg.ImageExt)
	assert.Equal(t, ocr.DefaultOptions(), cfg.Recognition)
	assert.Positive(t, cfg.WorkerCount)
}
