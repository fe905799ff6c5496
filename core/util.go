package core

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Column widths shared by the analysis tables.
const (
	NameWidth  = 255
	ShortWidth = 64
)

// Truncate cuts `s` down to at most n characters (runes).
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run,
// so walk up until the module root is found, falling back to the current directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

// FirstSentence returns the first sentence of `s`, cut to 80 characters.
func FirstSentence(s string) string {
	if i := strings.IndexAny(s, ".!?"); i > 0 {
		s = s[:i]
	}
	return Truncate(strings.TrimSpace(s), 80)
}
