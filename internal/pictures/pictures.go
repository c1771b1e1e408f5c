// Package pictures validates, thumbnails and stores uploaded profile
// pictures. Filenames are random, so concurrent uploads never collide.
package pictures

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"bibleblock/internal/models"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

const (
	// ThumbnailMaxSize bounds both dimensions of a stored profile picture.
	ThumbnailMaxSize = 125

	maxUploadBytes = 5 * 1024 * 1024
	jpegQuality    = 85
)

// Store writes profile pictures under a base directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save validates the uploaded picture, scales it to fit the thumbnail bound
// and writes it under a fresh random filename, which it returns. Only JPEG
// and PNG uploads are accepted.
func (s *Store) Save(filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if len(content) > maxUploadBytes {
		return "", models.NewValidationError("File too large (max 5MB)")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if ext != ".jpg" && ext != ".png" {
		return "", models.NewValidationError("Only jpg and png images are allowed")
	}

	detected := http.DetectContentType(content)
	if detected != "image/jpeg" && detected != "image/png" {
		return "", models.NewValidationError("Invalid image file")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	thumb := resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize)

	buf := bytes.NewBuffer(nil)
	if ext == ".png" {
		err = png.Encode(buf, thumb)
	} else {
		err = jpeg.Encode(buf, thumb, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := randomName() + ext
	if err := writeBytesToFile(filepath.Join(s.dir, name), buf.Bytes()); err != nil {
		return "", models.NewInternalError(err)
	}
	return name, nil
}

// Remove deletes a previously stored picture. The sentinel default image is
// never removed.
func (s *Store) Remove(name string) {
	if name == "" || name == models.DefaultImageFile {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, name))
}

func randomName() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
