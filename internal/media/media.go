// Package media reads local media files along with their MIME type.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Load reads path and sniffs its MIME type from the content.
func Load(path string) (data []byte, mimeType string, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return data, Detect(data, path), nil
}

// Detect sniffs the MIME type of data. When sniffing only finds a generic
// type, the extension of name is used instead.
func Detect(data []byte, name string) string {
	mt := mimetype.Detect(data)
	if !mt.Is("application/octet-stream") && !mt.Is("text/plain") {
		return baseType(mt.String())
	}
	if byExt := ByExtension(name); byExt != "" {
		return byExt
	}
	return baseType(mt.String())
}

// DetectFile sniffs the MIME type of the file at path.
func DetectFile(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting type of %s: %w", path, err)
	}
	if mt.Is("application/octet-stream") || mt.Is("text/plain") {
		if byExt := ByExtension(path); byExt != "" {
			return byExt, nil
		}
	}
	return baseType(mt.String()), nil
}

// ByExtension maps the extensions the Gemini API accepts to MIME types.
func ByExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".pcm", ".raw":
		return "audio/pcm"
	}
	return ""
}

// Extension returns the preferred file extension for mimeType, with the
// leading dot, or "" when unknown.
func Extension(mimeType string) string {
	if mt := mimetype.Lookup(baseType(mimeType)); mt != nil {
		return mt.Extension()
	}
	return ""
}

// Kind is the top-level media category of mimeType: "image", "video",
// "audio", "text" or "application".
func Kind(mimeType string) string {
	kind, _, _ := strings.Cut(mimeType, "/")
	return kind
}

func baseType(s string) string {
	base, _, _ := strings.Cut(s, ";")
	return strings.TrimSpace(base)
}
