package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTestXLSX(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "a1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "b1"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestLoadPlainFileURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello from disk"), 0o644))

	l := NewLoader()
	content, err := l.Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.Equal(t, "hello from disk", content)
}

func TestLoadBareFilesystemPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Heading"), 0o644))

	l := NewLoader()
	content, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "# Heading", content)
}

func TestLoadDataURIPlain(t *testing.T) {
	l := NewLoader()
	content, err := l.Load(context.Background(), "data:text/plain,hello%20world")
	require.NoError(t, err)
	require.Equal(t, "hello%20world", content) // percent-decoding is not part of the data: convention here
}

func TestLoadDataURIBase64(t *testing.T) {
	l := NewLoader()
	// base64 of "hi there"
	content, err := l.Load(context.Background(), "data:text/plain;base64,aGkgdGhlcmU=")
	require.NoError(t, err)
	require.Equal(t, "hi there", content)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	l := NewLoader()
	_, err := l.Load(context.Background(), "file:///no/such/path.txt")
	require.Error(t, err)
}

func TestLoadXLSXFlattensSheets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.xlsx")
	writeTestXLSX(t, path)

	l := NewLoader()
	content, err := l.Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.Contains(t, content, "a1")
}
