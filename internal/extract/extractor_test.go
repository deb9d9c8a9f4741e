package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestExtractEmptyList(t *testing.T) {
	e := NewExtractor()
	assert.Equal(t, "", e.Extract(nil))
}

func TestExtractTextFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "essay.txt", []byte("My thesis is clear."))
	b := writeFile(t, dir, "notes.txt", []byte("Some notes."))

	e := NewExtractor()
	text := e.Extract([]string{a, b})

	assert.Contains(t, text, "--- File: essay.txt ---\nMy thesis is clear.")
	assert.Contains(t, text, "--- File: notes.txt ---\nSome notes.")
	// files are separated by a blank line
	assert.Contains(t, text, ".\n\n--- File: notes.txt ---")
}

func TestExtractUnknownExtensionReadableAsText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "readme.md", []byte("# Heading"))

	e := NewExtractor()
	text := e.Extract([]string{path})

	assert.Contains(t, text, "--- File: readme.md ---\n# Heading")
}

func TestExtractUnknownBinaryYieldsPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "image.bin", []byte{0xff, 0xfe, 0x00, 0x80, 0x81})

	e := NewExtractor()
	text := e.Extract([]string{path})

	assert.Contains(t, text, "[Unable to read file: image.bin]")
	assert.NotContains(t, text, "[Error reading")
}

func TestExtractMissingTxtYieldsErrorMarker(t *testing.T) {
	e := NewExtractor()
	text := e.Extract([]string{filepath.Join(t.TempDir(), "gone.txt")})

	assert.True(t, strings.HasPrefix(text, "[Error reading gone.txt:"), text)
}

func TestExtractInvalidUTF8TxtYieldsErrorMarker(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "weird.txt", []byte{0xc3, 0x28})

	e := NewExtractor()
	text := e.Extract([]string{path})

	assert.Contains(t, text, "[Error reading weird.txt:")
}

func TestExtractEmptyFileSkipped(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.txt", nil)
	full := writeFile(t, dir, "full.txt", []byte("content"))

	e := NewExtractor()
	text := e.Extract([]string{empty, full})

	assert.NotContains(t, text, "empty.txt")
	assert.Contains(t, text, "--- File: full.txt ---\ncontent")
}

func TestExtractCorruptPDFContinuesBatch(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "scan.pdf", []byte("not really a pdf"))
	good := writeFile(t, dir, "essay.txt", []byte("essay text"))

	e := NewExtractor()
	e.ocr = func(string) (string, error) { t.Fatal("ocr must not run for a corrupt pdf"); return "", nil }
	text := e.Extract([]string{bad, good})

	assert.Contains(t, text, "[Error reading scan.pdf:")
	assert.Contains(t, text, "--- File: essay.txt ---\nessay text")
}
