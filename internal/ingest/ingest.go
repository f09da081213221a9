// Package ingest converts uploaded business documents into payloads the
// AI collaborator can read: PDFs are passed through as base64 attachments
// for multimodal models, Office documents are decoded locally, and plain
// text formats are read as-is.
package ingest

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the upload bound. Files larger than this are rejected
// before any byte is read.
const MaxFileSize = 25 << 20 // 25 MiB

// supportedFormats maps accepted extensions (lower case, with dot) to the
// MIME type declared on binary passthrough.
var supportedFormats = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".csv":  "text/csv",
}

// SupportedExtensions returns the accepted file extensions.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".xlsx", ".txt", ".csv"}
}

// Payload is the result of a successful ingestion: exactly one of
// (Data, MIMEType) or Text is populated.
type Payload struct {
	FileName string `json:"file_name"`
	Data     string `json:"data,omitempty"` // base64, binary passthrough
	MIMEType string `json:"mime_type,omitempty"`
	Text     string `json:"text,omitempty"` // locally extracted text
}

// IsBinary reports whether the payload is an inline binary attachment.
func (p *Payload) IsBinary() bool {
	return p.Data != ""
}

// ProgressFunc receives coarse progress checkpoints during ingestion.
// Percent values are illustrative, not timing guarantees. May be nil.
type ProgressFunc func(percent int, message string)

func (f ProgressFunc) report(percent int, message string) {
	if f != nil {
		f(percent, message)
	}
}

// Ingest validates and decodes a single uploaded document. Size and
// emptiness are checked against the declared size before the reader is
// touched.
func Ingest(name string, size int64, r io.Reader, progress ProgressFunc) (*Payload, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := supportedFormats[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if size > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	if size == 0 {
		return nil, ErrEmptyFile
	}

	progress.report(15, "validated "+name)

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, fmt.Errorf("%w: stream exceeded declared size", ErrFileTooLarge)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	progress.report(35, "decoding "+name)

	payload := &Payload{FileName: name}

	switch ext {
	case ".pdf":
		// No local extraction: the multimodal collaborator reads the PDF.
		payload.Data = base64.StdEncoding.EncodeToString(data)
		payload.MIMEType = supportedFormats[ext]

	case ".docx":
		text, err := extractDocxText(data)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyExtractedText
		}
		payload.Text = text

	case ".xlsx":
		text, err := extractXlsxText(data)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyExtractedText
		}
		payload.Text = text

	case ".txt", ".csv":
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyExtractedText
		}
		payload.Text = text
	}

	progress.report(100, "ingested "+name)
	return payload, nil
}

// IngestFile ingests a document from disk.
func IngestFile(path string, progress ProgressFunc) (*Payload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Ingest(filepath.Base(path), info.Size(), f, progress)
}
