package models

import (
	"path/filepath"
	"strings"
	"time"
)

// MimeKind identifies the supported input document formats.
type MimeKind string

const (
	MimeCSV   MimeKind = "csv"
	MimeExcel MimeKind = "xlsx"
	MimePDF   MimeKind = "pdf"
	MimeText  MimeKind = "text"
)

// KindForFilename maps a filename extension to a MimeKind.
// The second return value is false for unsupported formats.
func KindForFilename(name string) (MimeKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return MimeCSV, true
	// Legacy binary .xls is deliberately excluded: only the xlsx zip
	// format is readable, and claiming .xls would misreport every such
	// file as corrupt instead of unsupported.
	case ".xlsx":
		return MimeExcel, true
	case ".pdf":
		return MimePDF, true
	case ".txt", ".text", ".md":
		return MimeText, true
	default:
		return "", false
	}
}

// RawDocument is an immutable intake document. SourceID is the document's
// identity in the intake location (filename or object name) and is never
// mutated after creation.
type RawDocument struct {
	SourceID   string    `json:"sourceId"`
	MimeKind   MimeKind  `json:"mimeKind"`
	Data       []byte    `json:"-"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// NormalizedInput is the canonical representation handed to the AI adapter.
// Tabular and plain-text documents are rendered into Text; PDFs additionally
// carry their raw bytes so the model can read the document natively.
type NormalizedInput struct {
	SourceID      string
	Kind          MimeKind
	Text          string
	DocumentBytes []byte
	DocumentMIME  string
	Truncated     bool
	PageCount     int
}
