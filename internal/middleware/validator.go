package middleware

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Input validation and sanitization utilities

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

var allowedImageExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ValidateUpload accepts PNG/JPG/JPEG uploads, judged by declared MIME type
// or, when the type is missing or generic, by file extension.
func ValidateUpload(filename, mimeType string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if allowedImageTypes[mt] {
		return nil
	}
	if mt == "" || mt == "application/octet-stream" {
		if _, ok := allowedImageExts[strings.ToLower(filepath.Ext(filename))]; ok {
			return nil
		}
	}
	return fmt.Errorf("unsupported image type %q (allowed: png, jpg, jpeg)", mimeType)
}

// ImageType returns the MIME type to store for an accepted upload. A missing
// or generic declared type is replaced by the type of the file extension.
func ImageType(filename, mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if allowedImageTypes[mt] {
		return mt
	}
	return allowedImageExts[strings.ToLower(filepath.Ext(filename))]
}

// SanitizeFilename keeps the base name of an uploaded file and strips
// control characters. The result is used as the record's display name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = SanitizeString(filepath.Base(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ParseIndex parses a history index from a URL segment.
func ParseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return i, nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
