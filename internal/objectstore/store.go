// Package objectstore persists run artifacts for later evidence packs.
package objectstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/agentic-radar/agentic-radar/pkg/errors"
)

// ObjectStore persists named artifacts.
type ObjectStore interface {
	// PutFile stores a copy of the file at sourcePath under name. An
	// empty name derives one from the source's base name.
	PutFile(sourcePath, name string) (string, error)

	// PutJSON serializes payload as indented JSON and stores it under
	// name. An empty name generates a random one.
	PutJSON(payload any, name string) (string, error)
}

// LocalStore is a directory-backed ObjectStore. Writes go through a
// temporary file in the store directory so readers never observe a
// partially written object.
type LocalStore struct {
	root string
}

// NewLocalStore creates the store directory if needed and returns a
// LocalStore rooted there.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.NewObjectStoreError("object store path must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.NewObjectStoreError("failed to create object store directory").WithCause(err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the store directory.
func (s *LocalStore) Root() string { return s.root }

// PutFile copies sourcePath into the store, preserving its permission
// bits, and returns the stored object's path.
func (s *LocalStore) PutFile(sourcePath, name string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", errors.NewObjectStoreError(fmt.Sprintf("source file '%s' does not exist", sourcePath)).WithCause(err)
	}
	if name == "" {
		name = filepath.Base(sourcePath)
	}
	source, err := os.Open(sourcePath)
	if err != nil {
		return "", errors.NewObjectStoreError("failed to open source file").WithCause(err)
	}
	defer source.Close()

	target := filepath.Join(s.root, name)
	tmp, err := os.CreateTemp(s.root, ".radar-object-*")
	if err != nil {
		return "", errors.NewObjectStoreError("failed to create temp object").WithCause(err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, source); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.NewObjectStoreError("failed to copy object data").WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.NewObjectStoreError("failed to close object").WithCause(err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		os.Remove(tmpName)
		return "", errors.NewObjectStoreError("failed to set object permissions").WithCause(err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", errors.NewObjectStoreError("failed to finalize object").WithCause(err)
	}
	return target, nil
}

// PutJSON stores payload as indented JSON. A generated name is the hex
// form of a random UUID with a .json extension.
func (s *LocalStore) PutJSON(payload any, name string) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", errors.NewObjectStoreError("failed to marshal object payload").WithCause(err)
	}
	if name == "" {
		name = strings.ReplaceAll(uuid.NewString(), "-", "") + ".json"
	}
	target := filepath.Join(s.root, name)
	tmp, err := os.CreateTemp(s.root, ".radar-object-*")
	if err != nil {
		return "", errors.NewObjectStoreError("failed to create temp object").WithCause(err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.NewObjectStoreError("failed to write object data").WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.NewObjectStoreError("failed to close object").WithCause(err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", errors.NewObjectStoreError("failed to finalize object").WithCause(err)
	}
	return target, nil
}
