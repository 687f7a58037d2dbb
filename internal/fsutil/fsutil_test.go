package fsutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"spaces and punctuation", "Re: [PATCH] fix it!", "Re_PATCH_fix_it"},
		{"accents folded", "résumé été.txt", "resume_ete.txt"},
		{"path separators", "../../etc/passwd", "etc_passwd"},
		{"trimmed separators", "__-.name.-__", "name"},
		{"empty", "", "unnamed"},
		{"only unsafe", "???", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.in))
		})
	}
}

func TestSafeFilenameTruncates(t *testing.T) {
	long := strings.Repeat("a", 300) + ".eml"

	got := SafeFilename(long)
	assert.LessOrEqual(t, len(got), maxNameLength)
	assert.True(t, strings.HasSuffix(got, ".eml"))
}

func TestRandomAlphanumeric(t *testing.T) {
	s := RandomAlphanumeric(SuffixLength)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{5}$`), s)
	assert.Empty(t, RandomAlphanumeric(0))
}

func TestCreateUnique(t *testing.T) {
	dir := t.TempDir()
	name := func(suffix string) string {
		if suffix == "" {
			return "a.eml"
		}
		return "a-" + suffix + ".eml"
	}

	first, err := CreateUnique(dir, name)
	require.NoError(t, err)
	_, err = first.WriteString("first")
	require.NoError(t, err)
	require.NoError(t, first.Close())
	assert.Equal(t, filepath.Join(dir, "a.eml"), first.Name())

	second, err := CreateUnique(dir, name)
	require.NoError(t, err)
	require.NoError(t, second.Close())
	assert.Regexp(t, regexp.MustCompile(`a-[A-Za-z0-9]{5}\.eml$`), second.Name())

	data, err := os.ReadFile(first.Name())
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "existing file untouched")
}

func TestCreateUniqueGivesUp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixed"), nil, 0o644))

	_, err := CreateUnique(dir, func(string) string { return "fixed" })
	assert.ErrorIs(t, err, ErrNoUniqueName)
}

func TestOpenDestination(t *testing.T) {
	dir := t.TempDir()
	name := func(string) string { return "n.txt" }

	t.Run("directory gets a generated name", func(t *testing.T) {
		f, err := OpenDestination(dir, name)
		require.NoError(t, err)
		require.NoError(t, f.Close())
		assert.Equal(t, filepath.Join(dir, "n.txt"), f.Name())
	})

	t.Run("file path is truncated", func(t *testing.T) {
		path := filepath.Join(dir, "out.txt")
		require.NoError(t, os.WriteFile(path, []byte("old content"), 0o644))

		f, err := OpenDestination(path, name)
		require.NoError(t, err)
		_, err = f.WriteString("new")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("missing parent fails", func(t *testing.T) {
		_, err := OpenDestination(filepath.Join(dir, "nope", "x.txt"), name)
		assert.Error(t, err)
	})
}
