package uploads

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"blogapi/common"
)

// PublicPrefix is the URL path stored files are served under.
const PublicPrefix = "/uploads"

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Store keeps uploaded images on local disk.
type Store struct {
	dir     string
	maxSize int64
}

func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize}, nil
}

func (s *Store) Dir() string { return s.dir }

// SaveImage validates and writes an uploaded image, returning its public
// path. The file is fully on disk before SaveImage returns.
func (s *Store) SaveImage(fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", common.ErrUploadRejected, s.maxSize)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("%w: unreadable file", common.ErrUploadRejected)
	}
	ext, ok := allowedTypes[baseType(mtype.String())]
	if !ok {
		return "", fmt.Errorf("%w: invalid file type %s", common.ErrUploadRejected, mtype.String())
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	// One byte past the limit distinguishes "exactly max" from "too large"
	// when the header under-reports the size.
	written, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxSize {
		err = fmt.Errorf("%w: file exceeds %d bytes", common.ErrUploadRejected, s.maxSize)
	}
	if err != nil {
		os.Remove(filepath.Join(s.dir, name))
		return "", err
	}

	return path.Join(PublicPrefix, name), nil
}

// Remove deletes a file previously returned by SaveImage. Paths outside the
// store are ignored.
func (s *Store) Remove(publicPath string) {
	name, ok := strings.CutPrefix(publicPath, PublicPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove upload", "path", publicPath, "error", err)
	}
}

func baseType(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return m[:i]
	}
	return m
}
