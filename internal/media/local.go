package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalUploader writes photos to a directory on disk and serves them from a base URL.
// Meant for development setups without object storage.
type LocalUploader struct {
	dir     string
	baseURL string
}

// NewLocalUploader creates the target directory if needed. An empty dir falls
// back to a temp directory so the uploader always works out of the box.
func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "scentmate-media-*")
		if err != nil {
			return nil, fmt.Errorf("create temp media dir: %w", err)
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	return &LocalUploader{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Dir returns the directory files are written to.
func (u *LocalUploader) Dir() string {
	return u.dir
}

func (u *LocalUploader) Upload(_ context.Context, input UploadInput) (UploadResult, error) {
	if input.Body == nil {
		return UploadResult{}, fmt.Errorf("upload body is required")
	}

	name := uuid.NewString()
	if ext := strings.ToLower(filepath.Ext(input.Filename)); ext != "" {
		name += ext
	}

	dst, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return UploadResult{}, fmt.Errorf("create media file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, input.Body); err != nil {
		return UploadResult{}, fmt.Errorf("write media file: %w", err)
	}

	url := name
	if u.baseURL != "" {
		url = u.baseURL + "/" + name
	}

	return UploadResult{Key: name, URL: url}, nil
}
