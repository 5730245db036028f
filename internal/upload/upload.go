// Package upload stores task icon images on local disk.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
)

// URLPrefix is the path uploaded files are served under.
const URLPrefix = "/uploads/"

// Upload errors
var (
	// ErrTooLarge is returned when the content exceeds the size limit.
	ErrTooLarge = errors.New("file too large")

	// ErrNotImage is returned when the content is not an image.
	ErrNotImage = errors.New("only image files are allowed")

	// ErrEmpty is returned when no bytes were received.
	ErrEmpty = errors.New("no file uploaded")
)

// Result describes a stored upload.
type Result struct {
	Filename    string
	URL         string
	ContentType string
	Size        int64
}

// Store writes uploads into a directory.
type Store struct {
	dir      string
	maxBytes int64
	baseURL  string
	logger   *slog.Logger
}

// NewStore creates the upload directory if needed.
// publicBaseURL is prefixed to URLPrefix to build the URL of a stored file.
func NewStore(dir string, maxBytes int64, publicBaseURL string, log *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("upload size limit must be positive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		logger:   log.With("component", "upload_store"),
	}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes returns the size limit.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save sniffs r, and if it is an image no larger than the limit writes it
// under a fresh random name.
func (s *Store) Save(ctx context.Context, r io.Reader) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !isImage(mtype) {
		log.Debug("rejected upload", "detected_type", mtype.String())
		return nil, ErrNotImage
	}

	filename := uuid.NewString() + mtype.Extension()
	path := filepath.Join(s.dir, filename)
	if err := writeFile(path, data); err != nil {
		log.Error("failed to store upload", "error", err, "path", path)
		return nil, err
	}

	log.Info("image uploaded",
		"filename", filename,
		"content_type", mtype.String(),
		"size", len(data))

	return &Result{
		Filename:    filename,
		URL:         s.baseURL + URLPrefix + filename,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
	}, nil
}

func isImage(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write upload file: %w", err)
	}
	return f.Close()
}
