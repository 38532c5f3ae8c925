package filedock

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxUploadSize is the largest size hint accepted by RequestUpload (50 MiB).
	MaxUploadSize int64 = 52_428_800
	// ChecksumThreshold is the size below which ConfirmUpload computes an MD5 checksum.
	ChecksumThreshold int64 = 10 << 20
	UploadURLTTL            = 15 * time.Minute
	DownloadURLTTL          = time.Hour
)

// DefaultAllowedMimeTypes is the upload allow-list used when none is configured.
var DefaultAllowedMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	"application/pdf",
	"text/plain",
	"text/csv",
	"application/json",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Folders string `mapstructure:"folders" yaml:"folders"`
	Files   string `mapstructure:"files" yaml:"files"`
}

func DefaultTables() Tables {
	return Tables{Folders: "folders", Files: "files"}
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set, valid and distinct.
func (t Tables) Validate() error {
	for _, tn := range []struct{ kind, name string }{
		{"folders", t.Folders},
		{"files", t.Files},
	} {
		if tn.name == "" {
			return fmt.Errorf("validate tables: %s table name cannot be empty", tn.kind)
		}
		if !IsValidTableName(tn.name) {
			return fmt.Errorf("validate tables: invalid %s table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", tn.kind, tn.name)
		}
	}

	if t.Folders == t.Files {
		return errors.New("validate tables: folders and files tables must differ")
	}

	return nil
}

// EscapeLikePattern escapes special LIKE characters (%, _, \) to prevent SQL injection.
func EscapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, `%`, `\%`)
	pattern = strings.ReplaceAll(pattern, `_`, `\_`)
	return pattern
}

// NewStoragePath builds an object key namespaced by folder:
// folders/<folderId>/<unixMillis>-<uuid><ext> or root/<unixMillis>-<uuid><ext>.
func NewStoragePath(folderID *uuid.UUID, fileName string, now time.Time) string {
	prefix := "root"
	if folderID != nil {
		prefix = "folders/" + folderID.String()
	}
	return fmt.Sprintf("%s/%d-%s%s", prefix, now.UnixMilli(), uuid.NewString(), fileExtension(fileName))
}

var extensionRegex = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)

// fileExtension returns the lower-cased extension of name, or "" when it is
// not a plain alphanumeric suffix safe to embed in an object key.
func fileExtension(name string) string {
	ext := path.Ext(name)
	if !extensionRegex.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext)
}

// CanonicalMimeType returns the lowercased media type of s with parameters dropped.
func CanonicalMimeType(s string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(s)
	if err != nil {
		return "", fmt.Errorf("parse media type %q: %w", s, err)
	}
	return mediaType, nil
}

// IsAllowedMimeType reports whether mimeType (ignoring parameters and case) is in allowed.
func IsAllowedMimeType(allowed []string, mimeType string) bool {
	mediaType, err := CanonicalMimeType(mimeType)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(allowed, func(a string) bool {
		return strings.EqualFold(strings.TrimSpace(a), mediaType)
	})
}

// IsValidKey validates an object key received on the local object endpoint.
// It rejects empty keys, absolute keys, traversal and control characters.
func IsValidKey(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' || strings.HasSuffix(p, "/") {
		return false
	}

	if strings.Contains(p, "..") || strings.Contains(p, "//") {
		return false
	}

	if strings.HasPrefix(p, "./") || strings.Contains(p, "/./") || strings.HasSuffix(p, "/.") {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	if strings.ContainsAny(p, `\?#~`) {
		return false
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f || r == ' ' {
			return false
		}
	}

	return true
}
