package localfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyChunkSize bounds how many bytes move between context checks and
// progress callbacks.
const copyChunkSize = 1 << 20

// Storage is a local-filesystem blob store. Keys are slash-separated
// relative paths under the base directory.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// SaveStream copies data to the blob at key while feeding every byte
// into a SHA-256 digest and reporting cumulative bytes written. On any
// copy error the partial blob is removed before the error is returned.
func (s *Storage) SaveStream(ctx context.Context, key string, data io.Reader, progress func(written int64)) (string, int64, error) {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create blob: %w", err)
	}

	digest := sha256.New()
	tap := io.MultiWriter(f, digest)

	var written int64
	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			f.Close()
			os.Remove(path)
			return "", 0, err
		}
		n, readErr := data.Read(buf)
		if n > 0 {
			if _, writeErr := tap.Write(buf[:n]); writeErr != nil {
				f.Close()
				os.Remove(path)
				return "", 0, fmt.Errorf("write blob: %w", writeErr)
			}
			written += int64(n)
			if progress != nil {
				progress(written)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			os.Remove(path)
			return "", 0, fmt.Errorf("read upload stream: %w", readErr)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("close blob: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), written, nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *Storage) Rename(_ context.Context, oldKey, newKey string) error {
	newPath := s.Path(newKey)
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.Rename(s.Path(oldKey), newPath); err != nil {
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func (s *Storage) Size(_ context.Context, key string) (int64, error) {
	info, err := os.Stat(s.Path(key))
	if err != nil {
		return 0, fmt.Errorf("stat blob: %w", err)
	}
	return info.Size(), nil
}

func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}
