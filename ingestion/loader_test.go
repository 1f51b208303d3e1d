package ingestion

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoader_LoadSortedUTF8(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", []byte("second document"))
	writeFile(t, dir, "a.txt", []byte("first document, café"))
	writeFile(t, dir, "notes.md", []byte("ignored"))

	docs, err := NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].Source)
	assert.Equal(t, "first document, café", docs[0].Content)
	assert.Equal(t, filepath.Join(dir, "b.txt"), docs[1].Source)
}

func TestLoader_StripsByteOrderMark(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bom.txt", append([]byte{0xEF, 0xBB, 0xBF}, "hello"...))
	// UTF-16LE "hi"
	writeFile(t, dir, "wide.txt", []byte{0xFF, 0xFE, 'h', 0, 'i', 0})

	docs, err := NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "hello", docs[0].Content)
	assert.Equal(t, "hi", docs[1].Content)
}

func TestLoader_DetectsLatin1(t *testing.T) {
	dir := t.TempDir()
	text := "Le patient a été admis à l'hôpital universitaire de Lille. " +
		"Les médecins ont décidé de prolonger son séjour d'une semaine après l'opération. " +
		"Sa famille est arrivée très tôt le lendemain matin pour le voir."
	latin1 := make([]byte, 0, len(text))
	for _, r := range text {
		latin1 = append(latin1, byte(r))
	}
	writeFile(t, dir, "fr.txt", latin1)

	docs, err := NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, text, docs[0].Content)
}

func TestLoader_SkipsBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", []byte("readable"))
	bad := writeFile(t, dir, "zbinary.txt", []byte("abc\x00def"))

	docs, report, err := NewLoader(dir).LoadWithReport(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "readable", docs[0].Content)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, bad, report.Skipped[0].Path)
	assert.ErrorIs(t, report.Skipped[0].Err, ErrUndecodable)
	assert.Equal(t, []string{filepath.Join(dir, "good.txt")}, report.Loaded)
}

func TestLoader_Strict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("abc\x00def"))
	writeFile(t, dir, "b.txt", []byte("fine"))

	_, err := NewLoader(dir, WithStrict(true)).Load(context.Background())
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestLoader_AllFilesUndecodable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("abc\x00def"))

	_, report, err := NewLoader(dir).LoadWithReport(context.Background())
	assert.ErrorIs(t, err, ErrUndecodable)
	require.NotNil(t, report)
	assert.Len(t, report.Skipped, 1)
}

func TestLoader_NotFound(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "plain.txt", []byte("x"))
	empty := t.TempDir()

	tests := []struct {
		name string
		dir  string
	}{
		{"missing directory", filepath.Join(dir, "missing")},
		{"not a directory", file},
		{"no matching files", empty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(tt.dir).Load(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDocumentsNotFound)
			assert.ErrorIs(t, err, fs.ErrNotExist)
		})
	}
}

func TestLoader_StatErrorIsNotNotFound(t *testing.T) {
	file := writeFile(t, t.TempDir(), "plain.txt", []byte("x"))

	_, err := NewLoader(filepath.Join(file, "child")).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ENOTDIR)
	assert.NotErrorIs(t, err, ErrDocumentsNotFound)
}

func TestLoader_DirectoryNameWithGlobCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes[2024]*")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFile(t, dir, "a.txt", []byte("bracketed"))

	docs, err := NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "bracketed", docs[0].Content)
	assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].Source)
}

func TestLoader_Glob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("text"))
	writeFile(t, dir, "b.md", []byte("markdown"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.md"), 0o755))

	docs, err := NewLoader(dir, WithGlob("*.md")).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "markdown", docs[0].Content)
}

func TestLoader_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("text"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(dir).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
