package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsColdStart(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, m)
	assert.NotNil(t, m)
}

func TestSaveLoadPreservesAwkwardText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "cache.csv")
	in := map[string]string{
		"b.jpg": "INVOICE #12\nTotal: 1,200.00 \"EUR\"",
		"a.jpg": "",
		"c.jpg": "  leading, spaces",
	}
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveWritesSortedRowsWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Save(path, map[string]string{"2.jpg": "two", "1.jpg": "one"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file_name,ocr_text\n1.jpg,one\n2.jpg,two\n", string(b))
}

func TestSaveOverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, Save(path, map[string]string{"1.jpg": "one", "2.jpg": "two"}))
	require.NoError(t, Save(path, map[string]string{"3.jpg": "three"}))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"3.jpg": "three"}, out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())
}

func TestLoadAcceptsExtraColumnsAndBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	content := "\ufeffid,file_name,ocr_text\n0,a.jpg,hello\n1,b.jpg,world\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.jpg": "hello", "b.jpg": "world"}, m)
}

func TestLoadRejectsMalformedFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"missing text column", "file_name,text\na.jpg,x\n"},
		{"ragged row", "file_name,ocr_text\na.jpg\n"},
		{"duplicate name", "file_name,ocr_text\na.jpg,x\na.jpg,y\n"},
		{"empty name", "file_name,ocr_text\n,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}
