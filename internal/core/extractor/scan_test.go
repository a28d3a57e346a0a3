package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestScanImagesFiltersAndRecurses(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"b.jpg":             "",
		"A.JPG":             "",
		"nested/deep/c.jpg": "",
		"d.png":             "",
		"e.jpeg":            "",
		"readme.txt":        "",
	})

	images, err := ScanImages(root, ".jpg")
	require.NoError(t, err)

	var names []string
	for _, img := range images {
		names = append(names, img.Name)
	}
	assert.Equal(t, []string{"A.JPG", "b.jpg", "c.jpg"}, names)
	assert.Equal(t, filepath.Join(root, "nested", "deep", "c.jpg"), images[2].Path)
}

func TestScanImagesDuplicateBaseNames(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"x/1.jpg": "first",
		"y/1.jpg": "second",
	})

	images, err := ScanImages(root, ".jpg")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, filepath.Join(root, "x", "1.jpg"), images[0].Path)
}

func TestScanImagesIncludesSymlinkedFiles(t *testing.T) {
	dataset := t.TempDir()
	writeFiles(t, dataset, map[string]string{"linked.jpg": "img"})

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"plain.jpg": "img"})
	if err := os.Symlink(filepath.Join(dataset, "linked.jpg"), filepath.Join(root, "linked.jpg")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dataset, "gone.jpg"), filepath.Join(root, "dangling.jpg")))

	images, err := ScanImages(root, ".jpg")
	require.NoError(t, err)

	var names []string
	for _, img := range images {
		names = append(names, img.Name)
	}
	assert.Equal(t, []string{"linked.jpg", "plain.jpg"}, names)
}

func TestScanImagesNotADirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"file.jpg": ""})

	_, err := ScanImages(filepath.Join(root, "file.jpg"), ".jpg")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInputDirNotFound)
}

func TestFileMD5(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.jpg": "hello", "renamed.jpg": "hello"})

	a, err := FileMD5(filepath.Join(root, "a.jpg"))
	require.NoError(t, err)
	b, err := FileMD5(filepath.Join(root, "renamed.jpg"))
	require.NoError(t, err)

	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", a)
	assert.Equal(t, a, b)

	_, err = FileMD5(filepath.Join(root, "missing.jpg"))
	assert.Error(t, err)
}
