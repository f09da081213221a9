package ingest

import "errors"

// Typed ingestion failures. Handlers map these onto user-facing error
// records; everything else that goes wrong during decoding collapses into
// ErrCorruptOrEncrypted.
var (
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrFileTooLarge       = errors.New("file exceeds the size limit")
	ErrEmptyFile          = errors.New("file is empty")
	ErrEmptyExtractedText = errors.New("no text could be extracted")
	ErrCorruptOrEncrypted = errors.New("file is corrupt or password-protected")
)

// Code returns the wire identifier for a typed ingestion error, or "" if
// the error is not part of the ingestion taxonomy.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "UnsupportedFormat"
	case errors.Is(err, ErrFileTooLarge):
		return "FileTooLarge"
	case errors.Is(err, ErrEmptyFile):
		return "EmptyFile"
	case errors.Is(err, ErrEmptyExtractedText):
		return "EmptyExtractedText"
	case errors.Is(err, ErrCorruptOrEncrypted):
		return "CorruptOrEncrypted"
	default:
		return ""
	}
}
