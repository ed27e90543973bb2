// Package utils holds small helpers shared by the export and backup paths.
package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems and remote drives
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	multipleSpaces       = regexp.MustCompile(`\s+`)
)

const maxFilenameLength = 200

// SanitizeFilename turns a user-supplied name into a single path segment
// that is safe to create locally or upload to a remote drive.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, " ")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.TrimSpace(filename)

	// Hidden and relative names are not allowed.
	filename = strings.TrimLeft(filename, ". ")

	if len(filename) > maxFilenameLength {
		filename = strings.TrimSpace(filename[:maxFilenameLength])
	}

	if filename == "" {
		filename = "untitled"
	}

	return filename
}

// WithExtension appends ext (without dot) unless name already ends with it.
func WithExtension(name, ext string) string {
	if ext == "" || strings.EqualFold(filepath.Ext(name), "."+ext) {
		return name
	}
	return name + "." + ext
}
