package storage

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestLocalProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.Put(ctx, "FATURA/a.jpg", bytes.NewReader([]byte("aaa")), 3))
	require.NoError(t, p.Put(ctx, "/FATURA/sub/b.jpg", bytes.NewReader([]byte("b")), 1))
	require.NoError(t, p.Put(ctx, "other/c.jpg", bytes.NewReader([]byte("c")), 1))

	ok, err := p.Exists(ctx, "FATURA/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Exists(ctx, "FATURA/missing.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	objects, err := p.List(ctx, "FATURA/")
	require.NoError(t, err)
	assert.Equal(t, []Object{{Key: "FATURA/a.jpg", Size: 3}, {Key: "FATURA/sub/b.jpg", Size: 1}}, objects)

	var buf bytes.Buffer
	require.NoError(t, p.Get(ctx, "FATURA/a.jpg", &buf))
	assert.Equal(t, "aaa", buf.String())
	assert.ErrorIs(t, p.Get(ctx, "nope", &buf), ErrNotFound)
}

func TestPushSkipsExistingObjects(t *testing.T) {
	ctx := context.Background()
	local := t.TempDir()
	writeFiles(t, local, map[string]string{"a.jpg": "A", "sub/b.JPG": "B", "notes.txt": "x"})

	remote, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, remote.Put(ctx, "FATURA/a.jpg", bytes.NewReader([]byte("old")), 3))

	res, err := Push(ctx, remote, local, SyncOptions{Prefix: "FATURA/", Ext: ".jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transferred)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)

	var buf bytes.Buffer
	require.NoError(t, remote.Get(ctx, "FATURA/a.jpg", &buf))
	assert.Equal(t, "old", buf.String(), "existing objects are never overwritten")

	ok, err := remote.Exists(ctx, "FATURA/sub/b.JPG")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = remote.Exists(ctx, "FATURA/notes.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPullDownloadsMissingFiles(t *testing.T) {
	ctx := context.Background()
	remote, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	for key, body := range map[string]string{"FATURA/a.jpg": "A", "FATURA/sub/b.jpg": "B", "FATURA/readme.md": "r"} {
		require.NoError(t, remote.Put(ctx, key, strings.NewReader(body), int64(len(body))))
	}

	local := filepath.Join(t.TempDir(), "raw")
	writeFiles(t, local, map[string]string{"a.jpg": "local"})

	res, err := Pull(ctx, remote, local, SyncOptions{Prefix: "FATURA", Ext: ".jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transferred)
	assert.Equal(t, 1, res.Skipped)

	b, err := os.ReadFile(filepath.Join(local, "sub", "b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "B", string(b))
	b, err = os.ReadFile(filepath.Join(local, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(b))
	assert.NoFileExists(t, filepath.Join(local, "readme.md"))
}

func TestPullIgnoresSiblingFolders(t *testing.T) {
	ctx := context.Background()
	remote, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"FATURA/a.jpg", "FATURA_old/b.jpg"} {
		require.NoError(t, remote.Put(ctx, key, strings.NewReader("img"), 3))
	}

	for _, prefix := range []string{"FATURA", "FATURA/", "/FATURA"} {
		t.Run(prefix, func(t *testing.T) {
			local := t.TempDir()
			res, err := Pull(ctx, remote, local, SyncOptions{Prefix: prefix, Ext: ".jpg"})
			require.NoError(t, err)
			assert.Equal(t, 1, res.Transferred)
			assert.FileExists(t, filepath.Join(local, "a.jpg"))
			assert.NoDirExists(t, filepath.Join(local, "_old"))
			assert.NoFileExists(t, filepath.Join(local, "b.jpg"))
		})
	}
}

func TestWithinDir(t *testing.T) {
	assert.True(t, withinDir("/data/raw", "/data/raw/a.jpg"))
	assert.False(t, withinDir("/data/raw", "/data/other.jpg"))
	assert.True(t, withinDir("/data/raw", "/data/raw/..a.jpg"))
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = NewProvider(ctx, Config{Name: "local"})
	assert.Error(t, err)
	_, err = NewProvider(ctx, Config{Name: "s3"})
	assert.Error(t, err)
	_, err = NewProvider(ctx, Config{Name: "drive"})
	assert.Error(t, err)

	p, err = NewProvider(ctx, Config{Name: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "Local Storage", p.GetProviderName())
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectContentType(".JPG"))
	assert.Equal(t, "application/octet-stream", DetectContentType(".bin"))
}

// fakeS3 is a minimal path-style S3 endpoint for one bucket.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

type listResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	KeyCount    int      `xml:"KeyCount"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents    []struct {
		Key  string `xml:"Key"`
		Size int    `xml:"Size"`
	} `xml:"Contents"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+f.bucket)
	key := strings.TrimPrefix(path, "/")

	if key == "" && r.Method == http.MethodGet {
		prefix := r.URL.Query().Get("prefix")
		res := listResult{Name: f.bucket, Prefix: prefix}
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Contents = append(res.Contents, struct {
				Key  string `xml:"Key"`
				Size int    `xml:"Size"`
			}{k, len(f.objects[k])})
		}
		res.KeyCount = len(keys)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(res)
		return
	}

	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[key] = b
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Provider(t *testing.T) {
	fake := &fakeS3{bucket: "fatura", objects: map[string][]byte{
		"FATURA/a.jpg": []byte("AAA"),
		"FATURA/b.jpg": []byte("B"),
		"other/c.jpg":  []byte("C"),
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	p, err := NewS3Provider(ctx, S3Config{
		Bucket:    "fatura",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "AKID",
		SecretKey: "SECRET",
	})
	require.NoError(t, err)

	ok, err := p.Exists(ctx, "FATURA/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Exists(ctx, "FATURA/zzz.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	objects, err := p.List(ctx, "FATURA/")
	require.NoError(t, err)
	assert.Equal(t, []Object{{Key: "FATURA/a.jpg", Size: 3}, {Key: "FATURA/b.jpg", Size: 1}}, objects)

	var buf bytes.Buffer
	require.NoError(t, p.Get(ctx, "FATURA/a.jpg", &buf))
	assert.Equal(t, "AAA", buf.String())
	assert.ErrorIs(t, p.Get(ctx, "FATURA/zzz.jpg", &buf), ErrNotFound)

	require.NoError(t, p.Put(ctx, "FATURA/new.jpg", bytes.NewReader([]byte("N")), 1))
	fake.mu.Lock()
	_, stored := fake.objects["FATURA/new.jpg"]
	fake.mu.Unlock()
	assert.True(t, stored)
}
