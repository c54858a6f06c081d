// Package extract converts uploaded PDF, Word, and Excel documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Supported MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDOC  = "application/msword"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEXLS  = "application/vnd.ms-excel"
)

var (
	// ErrUnsupportedType is returned for MIME types no parser handles. Callers skip such files.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrParse wraps every failure to read a supported document.
	ErrParse = errors.New("parse document")
)

type parseFunc func(content []byte) (string, error)

var parsers = map[string]parseFunc{
	MIMEPDF:  extractPDF,
	MIMEDOCX: extractDOCX,
	MIMEDOC:  extractDOCX,
	MIMEXLSX: extractExcel,
	MIMEXLS:  extractExcel,
}

var extensionTypes = map[string]string{
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
	".doc":  MIMEDOC,
	".xlsx": MIMEXLSX,
	".xls":  MIMEXLS,
}

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Parse returns the text of content interpreted as mimeType. Unsupported types return
// ErrUnsupportedType; malformed documents return an error wrapping ErrParse and never
// partial text.
func (e *Extractor) Parse(content []byte, mimeType string) (text string, err error) {
	parse, ok := parsers[normalizeMIME(mimeType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	// Third-party readers panic on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrParse, r)
		}
	}()
	text, err = parse(content)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrParse, err)
	}
	return text, nil
}

// ParseFile reads the file at path, detects its type from the extension and parses it.
// It returns the text and the detected MIME type.
func (e *Extractor) ParseFile(path string) (string, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	mimeType := DetectMIMEType(path, "")
	text, err := e.Parse(content, mimeType)
	return text, mimeType, err
}

// Supported reports whether a parser exists for mimeType.
func Supported(mimeType string) bool {
	_, ok := parsers[normalizeMIME(mimeType)]
	return ok
}

// SupportedExtension reports whether files with the extension of name can be parsed.
func SupportedExtension(name string) bool {
	_, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// DetectMIMEType returns declared when it is specific, otherwise the type implied by
// the extension of fileName. Browsers and curl often send application/octet-stream.
func DetectMIMEType(fileName, declared string) string {
	d := normalizeMIME(declared)
	if d != "" && d != "application/octet-stream" {
		return d
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return t
	}
	return d
}

func normalizeMIME(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	return strings.ToLower(s)
}
