// Package upload stores images submitted through the API in a statically served directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// createAttempts bounds the retries when a generated name is already taken.
const createAttempts = 3

var (
	ErrUnsupportedType = errors.New("only image files are allowed")
	ErrTooLarge        = errors.New("image exceeds the maximum upload size")
)

// AllowedTypes lists the MIME types accepted by Save.
var AllowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// StoredImage describes a saved upload.
type StoredImage struct {
	Filename string
	URL      string
	Size     int64
}

// ImageStore writes images to Dir and exposes them under URLPrefix.
type ImageStore struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
	now       func() time.Time
}

func NewImageStore(dir, urlPrefix string, maxBytes int64) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &ImageStore{
		Dir:       dir,
		URLPrefix: strings.TrimSuffix(urlPrefix, "/"),
		MaxBytes:  maxBytes,
		now:       time.Now,
	}, nil
}

// Save validates the declared content type and size of fh and copies it to disk as
// <basename>-<unix millis><ext>. The file contents are not inspected.
func (s *ImageStore) Save(fh *multipart.FileHeader) (*StoredImage, error) {
	contentType := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !AllowedTypes[contentType] {
		return nil, ErrUnsupportedType
	}
	if fh.Size > s.MaxBytes {
		return nil, ErrTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	name := s.filename(fh.Filename)
	dst, err := s.create(name)
	for i := 0; errors.Is(err, fs.ErrExist) && i < createAttempts; i++ {
		// same basename within the same millisecond
		name = withSuffix(s.filename(fh.Filename), uuid.NewString()[:8])
		dst, err = s.create(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create image file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, s.MaxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(filepath.Join(s.Dir, name))
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	return &StoredImage{
		Filename: name,
		URL:      s.URLPrefix + "/" + name,
		Size:     written,
	}, nil
}

func (s *ImageStore) create(name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func withSuffix(name, suffix string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + suffix + ext
}

func (s *ImageStore) filename(original string) string {
	// browsers may send a full client path
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" || name == "." || name == "/" {
		name = "image"
	}
	return fmt.Sprintf("%s-%d%s", name, s.now().UnixMilli(), ext)
}
