// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package artifacts persists the annotated frames produced by a comparison.
// Two stores are provided: a local directory for development and a GCS bucket,
// optionally handing out V4 signed URLs, for deployments.
//
// Structs:
//   - LocalStore: Writes artifacts below a directory.
//   - GCSStore: Writes artifacts to a bucket.
package artifacts

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Store writes one artifact and returns a reference a client can use to fetch
// it (a file path, a gs:// URI, or a signed URL).
type Store interface {
	Put(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

// Scoped returns a Store that places every artifact under prefix. A
// comparison uses its job id so runs never overwrite each other.
func Scoped(store Store, prefix string) Store {
	return &scopedStore{store: store, prefix: strings.Trim(prefix, "/")}
}

type scopedStore struct {
	store  Store
	prefix string
}

func (s *scopedStore) Put(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	return s.store.Put(ctx, path.Join(s.prefix, name), contentType, data)
}

// LocalStore writes artifacts to a local directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir when it is missing. An empty dir uses a
// "media-verify-artifacts" directory under the OS temp dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "media-verify-artifacts")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create artifact dir %s", dir)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes data to dir/name and returns the file path.
func (s *LocalStore) Put(ctx context.Context, name string, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.Newf("artifact name %q escapes the store", name)
	}
	target := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errors.Wrapf(err, "create artifact dir for %s", name)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write artifact %s", name)
	}
	return target, nil
}
