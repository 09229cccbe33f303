package utils

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "bmp": true,
}

// FileExtension extracts the lower-cased extension without the leading
// dot; empty when the filename has none.
func FileExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExtension reports whether the extension is a thumbnailable
// image type.
func IsImageExtension(extension string) bool {
	return imageExtensions[strings.ToLower(extension)]
}

// DetectMimeType sniffs the MIME type from content and falls back to
// extension-based mapping when sniffing yields nothing specific.
func DetectMimeType(content []byte, extension string) string {
	detected := mimetype.Detect(content)
	if detected.String() != "application/octet-stream" {
		return detected.String()
	}
	if extension != "" {
		if byExt := mime.TypeByExtension("." + extension); byExt != "" {
			return byExt
		}
	}
	return detected.String()
}

// FileCategory buckets a MIME type for search facets and filters.
func FileCategory(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.Contains(mimeType, "pdf"), strings.Contains(mimeType, "document"):
		return "document"
	case strings.HasPrefix(mimeType, "text/"):
		return "text"
	case strings.Contains(mimeType, "zip"), strings.Contains(mimeType, "archive"):
		return "archive"
	}
	return "other"
}

// CategoryExtensions maps a filter category to its extensions.
func CategoryExtensions(category string) []string {
	categories := map[string][]string{
		"images":    {"jpg", "jpeg", "png", "gif", "svg", "webp", "bmp"},
		"documents": {"pdf", "doc", "docx", "txt", "rtf", "odt", "xls", "xlsx", "ppt", "pptx"},
		"videos":    {"mp4", "avi", "mov", "webm", "mkv", "flv", "wmv"},
		"music":     {"mp3", "wav", "ogg", "flac", "aac", "m4a"},
		"archives":  {"zip", "rar", "7z", "tar", "gz", "bz2"},
		"code":      {"js", "ts", "jsx", "tsx", "html", "css", "json", "xml", "py", "java", "cpp", "c", "go", "rs"},
	}
	return categories[category]
}

// CleanFileName replaces characters that are unsafe in storage keys.
func CleanFileName(name string) string {
	invalid := []string{" ", "<", ">", ":", "\"", "/", "\\", "|", "?", "*"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	return strings.Trim(result, "_")
}

// FormatFileSize renders a byte count for error messages and stats.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// SliceContains reports whether a string slice contains a value,
// case-insensitively.
func SliceContains(slice []string, value string) bool {
	for _, item := range slice {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
