package intake

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Validation failures. Both are caller-recoverable: nothing has been
// written to disk when they are returned.
var (
	ErrUnsupportedKind = errors.New("unsupported media kind")
	ErrTooLarge        = errors.New("file exceeds the size limit")
)

// allowedTypes are the media types the engine is expected to handle.
// Neither the declared type nor the extension alone is authoritative:
// a match on either admits the file.
var allowedTypes = map[string]bool{
	"video/mp4":        true,
	"video/mpeg":       true,
	"video/quicktime":  true,
	"video/webm":       true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
	"video/x-flv":      true,
	"video/3gpp":       true,
	"audio/mpeg":       true,
	"audio/mp4":        true,
	"audio/wav":        true,
	"audio/x-wav":      true,
	"audio/ogg":        true,
	"audio/flac":       true,
	"audio/aac":        true,
	"audio/x-m4a":      true,
}

var allowedExtensions = map[string]bool{
	".mp4": true, ".mpeg": true, ".mpg": true, ".mov": true, ".webm": true,
	".avi": true, ".mkv": true, ".flv": true, ".3gp": true, ".m4v": true,
	".mp3": true, ".m4a": true, ".wav": true, ".ogg": true, ".oga": true,
	".flac": true, ".aac": true, ".wma": true,
}

// Candidate describes an upload before any storage or engine work happens.
type Candidate struct {
	OriginalName string
	DeclaredType string
	Size         int64

	// Head holds the first bytes of the payload and is only consulted when
	// the declared type carries no information.
	Head []byte
}

// Validate checks a candidate against the accepted media kinds and the
// size ceiling. It has no side effects.
func Validate(c Candidate, maxBytes int64) error {
	if c.Size > maxBytes {
		return ErrTooLarge
	}

	declared := normalizeType(c.DeclaredType)
	if declared == "" || declared == "application/octet-stream" {
		// Browsers often fall back to octet-stream; sniff the content
		// instead and let the result stand in for the declared type.
		if len(c.Head) > 0 {
			declared = mimetype.Detect(c.Head).String()
			declared = normalizeType(declared)
		}
	}

	if allowedTypes[declared] {
		return nil
	}
	if allowedExtensions[strings.ToLower(filepath.Ext(c.OriginalName))] {
		return nil
	}
	return ErrUnsupportedKind
}

// normalizeType strips parameters like charset from a media type.
func normalizeType(t string) string {
	if t == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return parsed
}
