package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bitwise74/seed-swap/internal/apperr"

	"go.uber.org/zap"
)

// LocalStore keeps images on disk. The directory is expected to be served
// by the router under PublicPath.
type LocalStore struct {
	Root       string
	PublicPath string
	MaxSize    int64
}

func NewLocalStore(root, publicPath string, maxSize int64) (*LocalStore, error) {
	for _, folder := range []string{FolderSeeds, FolderProfiles} {
		if err := os.MkdirAll(filepath.Join(root, folder), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory, %w", err)
		}
	}

	return &LocalStore{
		Root:       root,
		PublicPath: "/" + strings.Trim(publicPath, "/"),
		MaxSize:    maxSize,
	}, nil
}

func (l *LocalStore) Store(ctx context.Context, folder string, u Upload) (string, error) {
	mime, err := Check(u, l.MaxSize)
	if err != nil {
		return "", err
	}

	key, err := newKey(folder, mime)
	if err != nil {
		return "", apperr.UpstreamStorage(err)
	}

	dst := filepath.Join(l.Root, filepath.FromSlash(key))

	// Write to a temp file first so a half written image is never served
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", apperr.UpstreamStorage(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(u.Data); err != nil {
		tmp.Close()
		return "", apperr.UpstreamStorage(err)
	}

	if err := tmp.Close(); err != nil {
		return "", apperr.UpstreamStorage(err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", apperr.UpstreamStorage(err)
	}

	zap.L().Debug("Stored image on disk", zap.String("key", key), zap.String("original_name", u.Filename))
	return l.PublicPath + "/" + key, nil
}

// OptimizedURL returns the reference as is, the local backend has no
// image transformation service in front of it.
func (l *LocalStore) OptimizedURL(ref string, _ TransformOpts) string {
	return ref
}

func (l *LocalStore) Remove(_ context.Context, ref string) error {
	p, ok := l.pathOf(ref)
	if !ok {
		return nil
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.UpstreamStorage(err)
	}

	return nil
}

// pathOf maps a reference back to a file inside Root. References that
// point anywhere else are refused.
func (l *LocalStore) pathOf(ref string) (string, bool) {
	rel, ok := strings.CutPrefix(ref, l.PublicPath+"/")
	if !ok {
		return "", false
	}

	rel = path.Clean("/" + rel)[1:]
	if rel == "" {
		return "", false
	}

	return filepath.Join(l.Root, filepath.FromSlash(rel)), true
}
