package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/google/uuid"
)

const (
	MaxImageSize = 10 << 20

	// PublicImagePrefix is where LocalImageStore files are served from.
	PublicImagePrefix = "/uploads/properties/"
)

var (
	ErrImageTooLarge  = errors.New("File too large. Maximum size is 10MB per image.")
	ErrTooManyImages  = errors.New("Too many files. Maximum 3 images allowed.")
	ErrImageType      = errors.New("Only JPEG, PNG, GIF and WebP images are allowed")
	ErrNotAnImageFile = errors.New("Only image files are allowed")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore persists listing photos and returns the reference stored on the
// property.
type ImageStore interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	// Remove deletes a stored image. References the store did not produce are ignored.
	Remove(ctx context.Context, ref string) error
	// Owns reports whether ref points into the store. Such references can
	// only reach a listing through Save.
	Owns(ref string) bool
}

// ValidateImageUploads checks count, size and type before anything is written.
// The type is checked both as declared by the client and by sniffing the content.
func ValidateImageUploads(files []*multipart.FileHeader) error {
	if len(files) > models.MaxPropertyImages {
		return ErrTooManyImages
	}
	for _, fh := range files {
		if fh.Size > MaxImageSize {
			return ErrImageTooLarge
		}
		declared := strings.ToLower(fh.Header.Get("Content-Type"))
		if declared != "" && !strings.HasPrefix(declared, "image/") {
			return ErrNotAnImageFile
		}
		if declared != "" {
			if _, ok := allowedImageTypes[declared]; !ok {
				return ErrImageType
			}
		}
		sniffed, err := sniffContentType(fh)
		if err != nil {
			return err
		}
		if _, ok := allowedImageTypes[sniffed]; !ok {
			return ErrImageType
		}
	}
	return nil
}

func sniffContentType(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

// imageFileName builds property-<unix-ms>-<uuid><ext>.
func imageFileName(fh *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = allowedImageTypes[strings.ToLower(fh.Header.Get("Content-Type"))]
	}
	return fmt.Sprintf("property-%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
}

// LocalImageStore keeps images on disk under <uploads>/properties.
type LocalImageStore struct {
	dir string
}

func NewLocalImageStore(uploadsDir string) (*LocalImageStore, error) {
	dir := filepath.Join(uploadsDir, "properties")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalImageStore{dir: dir}, nil
}

func (s *LocalImageStore) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := imageFileName(fh)
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close image file: %w", err)
	}
	return PublicImagePrefix + name, nil
}

func (s *LocalImageStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, PublicImagePrefix)
}

func (s *LocalImageStore) Remove(ctx context.Context, ref string) error {
	if !s.Owns(ref) {
		return nil
	}
	// path.Base drops any ../ a tampered reference could carry
	name := path.Base(ref)
	if name == "." || name == "/" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
