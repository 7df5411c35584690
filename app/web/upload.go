package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"bitwise74/seed-swap/internal/storage"

	"github.com/gin-gonic/gin"
)

// ReadUpload reads the optional file field of a multipart form into
// memory. A missing file gives an empty Upload.
func ReadUpload(c *gin.Context, field string) (storage.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return storage.Upload{}, nil
		}

		return storage.Upload{}, fmt.Errorf("failed to read form file, %w", err)
	}

	// Browsers send an empty part when nothing was picked
	if fh.Size == 0 && fh.Filename == "" {
		return storage.Upload{}, nil
	}

	f, err := fh.Open()
	if err != nil {
		return storage.Upload{}, fmt.Errorf("failed to open form file, %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return storage.Upload{}, fmt.Errorf("failed to read form file, %w", err)
	}

	return storage.Upload{
		Data:     data,
		MIMEType: fh.Header.Get("Content-Type"),
		Filename: fh.Filename,
		Size:     fh.Size,
	}, nil
}
