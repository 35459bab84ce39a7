// Package source reads block-markup text out of uploaded or on-disk files.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Reader extracts markup text from a file's bytes.
type Reader interface {
	Read(r io.Reader) (string, error)
}

// SupportedExtensions lists file extensions notemark can read.
var SupportedExtensions = map[string]bool{
	".mmd":  true,
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate reader for a filename.
func ForFile(filename string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mmd", ".txt", ".md":
		return &TextReader{}, nil
	case ".pdf":
		return &PDFReader{}, nil
	case ".docx":
		return &DOCXReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// OutputName returns the HTML file name written next to an input file,
// e.g. notes/ch1.mmd -> notes/ch1.html.
func OutputName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".html"
}
