// Package upload stores candidate photos on the local filesystem.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// CandidateSubdir is the directory under the upload root where
	// candidate photos live. The router serves it at /uploads/candidates/.
	CandidateSubdir = "candidates"

	// sniffLen is how many leading bytes content detection reads.
	sniffLen = 512

	maxBaseNameLength = 80
)

var (
	ErrUnsupportedType = errors.New("upload: unsupported image type")
	ErrTooLarge        = errors.New("upload: file exceeds size limit")
	ErrEmptyFile       = errors.New("upload: empty file")
)

// allowedImageTypes maps sniffed content types to canonical extensions.
// The declared Content-Type header is ignored; only file bytes count.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Store writes validated image files under a root directory.
type Store struct {
	root     string
	maxBytes int64
}

// NewStore creates the candidate photo directory if needed.
func NewStore(root string, maxBytes int64) (*Store, error) {
	dir := filepath.Join(root, CandidateSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: root, maxBytes: maxBytes}, nil
}

// Root returns the upload root directory.
func (s *Store) Root() string {
	return s.root
}

// SaveCandidatePhoto validates and stores an uploaded image.
// It returns the public URL path for the stored file.
func (s *Store) SaveCandidatePhoto(r io.Reader, originalName string) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyFile
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	filename := buildFilename(originalName, ext)
	finalPath := filepath.Join(s.root, CandidateSubdir, filename)
	tmpPath := filepath.Join(s.root, CandidateSubdir, "."+filename+".part")

	tgt, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	written, err := writeCapped(tgt, head, r, s.maxBytes)
	if cerr := tgt.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		if written > s.maxBytes {
			return "", ErrTooLarge
		}
		return "", fmt.Errorf("write upload: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return "/uploads/" + CandidateSubdir + "/" + filename, nil
}

// Remove deletes a stored photo given its public URL path.
// Paths outside the upload root are refused.
func (s *Store) Remove(publicPath string) error {
	name := filepath.Base(publicPath)
	if name == "." || name == ".." || name == "/" {
		return fmt.Errorf("upload: invalid path %q", publicPath)
	}
	full := filepath.Join(s.root, CandidateSubdir, name)
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// writeCapped copies head then the rest of r to w, failing once the
// total exceeds maxBytes.
func writeCapped(w io.Writer, head []byte, r io.Reader, maxBytes int64) (int64, error) {
	if int64(len(head)) > maxBytes {
		return int64(len(head)), ErrTooLarge
	}
	if _, err := w.Write(head); err != nil {
		return int64(len(head)), err
	}
	remaining := maxBytes - int64(len(head))
	copied, err := io.Copy(w, io.LimitReader(r, remaining+1))
	total := int64(len(head)) + copied
	if err != nil {
		return total, err
	}
	if copied > remaining {
		return total, ErrTooLarge
	}
	return total, nil
}

// buildFilename produces `<32 hex>_<sanitized base>` with a canonical
// extension so a hostile filename can never escape the upload dir.
func buildFilename(originalName, ext string) string {
	base := sanitizeBaseName(originalName)
	prefix := strings.ReplaceAll(uuid.New().String(), "-", "")
	if base == "" {
		return prefix + ext
	}
	return prefix + "_" + base + ext
}

// sanitizeBaseName strips directories, the extension, and any character
// outside [A-Za-z0-9_-], then truncates.
func sanitizeBaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}

	out := b.String()
	if len(out) > maxBaseNameLength {
		out = out[:maxBaseNameLength]
	}
	return strings.Trim(out, "_")
}
