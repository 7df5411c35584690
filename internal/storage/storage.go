// Package storage contains the image intake used for seed and profile
// pictures. Backends are swappable, services only depend on Store.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/pkg/util"

	"github.com/gabriel-vasile/mimetype"
)

const (
	FolderSeeds    = "seeds"
	FolderProfiles = "profiles"

	// DefaultMaxSize is used when a backend is created with a size of 0
	DefaultMaxSize = 5 << 20
)

const (
	msgNotImage = "Only image files (JPEG, PNG, GIF, WebP, AVIF) are allowed"
	msgTooLarge = "Image is too large, the maximum size is %d MB"
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/avif"}

// Upload is a file received from a form, already read into memory.
// Uploads are bounded by the request body limit so this stays small.
type Upload struct {
	Data     []byte
	MIMEType string // Declared by the client, verified against the content
	Filename string // Only kept for logging, never used for the storage key
	Size     int64
}

// Empty reports whether the form didn't carry a file
func (u Upload) Empty() bool {
	return len(u.Data) == 0 && u.Size == 0
}

// TransformOpts controls the delivery URL returned by OptimizedURL. Zero
// values fall back to defaults.
type TransformOpts struct {
	Width   int
	Quality int    // 1-100, 0 lets the CDN pick
	Format  string // "auto", "webp", "avif", ...
}

const (
	defaultWidth = 800
	maxWidth     = 2000
)

func (o TransformOpts) withDefaults() TransformOpts {
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Width > maxWidth {
		o.Width = maxWidth
	}
	if o.Quality < 0 || o.Quality > 100 {
		o.Quality = 0
	}
	if o.Format == "" {
		o.Format = "auto"
	}

	return o
}

type Store interface {
	// Store validates u and saves it under folder. The returned reference
	// is what gets persisted on the record.
	Store(ctx context.Context, folder string, u Upload) (string, error)

	// OptimizedURL derives a delivery URL for ref. It never fails, a
	// reference it can't handle is returned unchanged and an empty
	// reference gives an empty string.
	OptimizedURL(ref string, o TransformOpts) string

	// Remove deletes a previously stored object. Unknown references are
	// ignored.
	Remove(ctx context.Context, ref string) error
}

// Check verifies the declared and the sniffed type of u and its size. It
// returns the detected MIME type, which decides the extension of the key.
func Check(u Upload, maxSize int64) (*mimetype.MIME, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	// Check headers first which is easy to spoof, but faster for legit clients
	if !strings.HasPrefix(strings.ToLower(u.MIMEType), "image/") {
		return nil, apperr.Rejected("image", msgNotImage)
	}

	if u.Size > maxSize || int64(len(u.Data)) > maxSize {
		return nil, apperr.Rejected("image", fmt.Sprintf(msgTooLarge, maxSize>>20))
	}

	// And now do the checks on the actual content to avoid malicious clients
	mime := mimetype.Detect(u.Data)
	if !mimetype.EqualsAny(mime.String(), allowedTypes...) {
		return nil, apperr.Rejected("image", msgNotImage)
	}

	return mime, nil
}

// newKey builds a storage key that doesn't depend on the client's file
// name: <folder>/<unix millis>-<random><ext>
func newKey(folder string, mime *mimetype.MIME) (string, error) {
	id, err := util.NewID(8)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%d-%s%s", folder, time.Now().UnixMilli(), id, mime.Extension()), nil
}
