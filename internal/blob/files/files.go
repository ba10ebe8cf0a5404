// Package files is a directory backed blob gateway for local development.
// Keys are slash separated paths under the root directory.
package files

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// Store maps keys to files under a root directory.
type Store struct {
	root string
}

var (
	_ blob.Gateway      = (*Store)(nil)
	_ blob.AssetGateway = (*Store)(nil)
)

// New creates a store rooted at dir. The directory is created when missing.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.NewConfigError("files", "root directory is required", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WrapIO("resolve", dir, err)
	}
	if err := os.MkdirAll(abs, dirPermissions); err != nil {
		return nil, errors.WrapIO("create", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(key string) (string, error) {
	clean := blob.CleanKey(key)
	if clean == "" || strings.HasSuffix(clean, "/") {
		return "", errors.NewValidationError("key", key, "not an object key")
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Get reads the file for key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("object", key)
		}
		return nil, errors.WrapIO("read", p, err)
	}
	return data, nil
}

// Put writes body atomically through a temp file in the same directory.
func (s *Store) Put(_ context.Context, key string, body []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO("rename", p, err)
	}
	return nil
}

// List walks the tree and returns keys under prefix in lexicographic order.
// Directories are listed as folder markers with a trailing slash.
func (s *Store) List(_ context.Context, prefix string) ([]blob.Object, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == s.root {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if d.IsDir() {
			key += "/"
		} else if strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("list", s.root, err)
	}

	slices.Sort(keys)
	out := make([]blob.Object, len(keys))
	for i, k := range keys {
		out[i] = blob.Object{Name: k}
	}
	return out, nil
}

// GetAsset implements blob.AssetGateway.
func (s *Store) GetAsset(ctx context.Context, key string) ([]byte, error) {
	return s.Get(ctx, key)
}

// PutAsset implements blob.AssetGateway.
func (s *Store) PutAsset(ctx context.Context, key string, body []byte) error {
	return s.Put(ctx, key, body)
}
