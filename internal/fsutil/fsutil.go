// Package fsutil turns mail derived strings into file names and opens save
// destinations without clobbering existing files.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// SuffixLength is the length of the random suffix used on name collisions.
	SuffixLength = 5

	maxNameLength     = 200
	maxUniqueAttempts = 100
)

// ErrNoUniqueName is returned when CreateUnique runs out of attempts.
var ErrNoUniqueName = errors.New("no unused file name found")

var (
	unsafeRun     = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	underscoreRun = regexp.MustCompile(`_{2,}`)
)

// SafeFilename folds accents, replaces every run of characters outside
// [A-Za-z0-9._-] with a single underscore and trims separators from both
// ends. The result is never empty.
func SafeFilename(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	s := unsafeRun.ReplaceAllString(folded, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_.-")

	if len(s) > maxNameLength {
		ext := filepath.Ext(s)
		if len(ext) >= maxNameLength {
			ext = ""
		}
		s = strings.TrimRight(s[:maxNameLength-len(ext)], "_.-") + ext
	}

	if s == "" {
		return "unnamed"
	}
	return s
}

// RandomAlphanumeric returns n random characters from [a-zA-Z0-9].
func RandomAlphanumeric(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.IntN(len(alphanumeric))]
	}
	return string(b)
}

// CreateUnique creates a new file in dir. The first attempt is named
// name(""); every collision retries with name(RandomAlphanumeric(SuffixLength)).
// Files are opened with O_EXCL so an existing file is never truncated.
func CreateUnique(dir string, name func(suffix string) string) (*os.File, error) {
	suffix := ""
	for range maxUniqueAttempts {
		path := filepath.Join(dir, name(suffix))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		suffix = RandomAlphanumeric(SuffixLength)
	}
	return nil, fmt.Errorf("%w in %s", ErrNoUniqueName, dir)
}

// OpenDestination opens the save target for path. A directory gets a fresh
// file from CreateUnique, anything else is created or truncated.
func OpenDestination(path string, name func(suffix string) string) (*os.File, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return CreateUnique(path, name)
	}
	return os.Create(path)
}
