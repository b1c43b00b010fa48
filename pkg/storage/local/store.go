package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/partyhub-backend/pkg/config"
)

// Store resolves party image references against a directory on the local disk.
type Store struct {
	root string
}

func NewStore(cfg config.MediaConfig) (*Store, error) {
	root := strings.TrimSpace(cfg.ImageRoot)
	if root == "" {
		return nil, errors.New("media image root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve image root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create image root: %w", err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Path maps a stored reference to an absolute path inside the root.
func (s *Store) Path(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("image reference is required")
	}
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(ref, "/")))
	if clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("image reference %q escapes root", ref)
	}
	return filepath.Join(s.root, clean), nil
}

// Release deletes the referenced file. Missing files are treated as already released.
func (s *Store) Release(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image %s: %w", ref, err)
	}
	return nil
}

// Ping verifies the root is still a writable directory.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat image root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("image root %s is not a directory", s.root)
	}
	return nil
}
