// Package file provides file-based persistence: one JSON document per record
// under a root directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/flowforge/pkg/persistence"
)

// Persistence implements persistence.Persistence using the file system.
type Persistence struct {
	root           string
	workflowRepo   *WorkflowRepository
	runRepo        *RunRepository
	credentialRepo *CredentialRepository
	vectorRepo     *VectorRepository
}

// NewPersistence creates a file persistence rooted at root. A "file://" prefix is accepted.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	docs := &documents{root: cleanRoot}

	vectorRepo, err := NewVectorRepository(docs)
	if err != nil {
		return nil, err
	}

	return &Persistence{
		root:           cleanRoot,
		workflowRepo:   &WorkflowRepository{docs: docs},
		runRepo:        &RunRepository{docs: docs},
		credentialRepo: &CredentialRepository{docs: docs},
		vectorRepo:     vectorRepo,
	}, nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) RunRepository() persistence.RunRepository {
	return fp.runRepo
}

func (fp *Persistence) CredentialRepository() persistence.CredentialRepository {
	return fp.credentialRepo
}

func (fp *Persistence) VectorRepository() persistence.VectorRepository {
	return fp.vectorRepo
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	_, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	return nil
}

// documents reads and writes JSON documents grouped by collection directory.
type documents struct {
	root string
	mu   sync.RWMutex
}

func (d *documents) path(collection, id string) string {
	return filepath.Join(d.root, collection, filepath.Base(id)+".json")
}

// read decodes a document; it returns fs.ErrNotExist when absent.
func (d *documents) read(collection, id string, out any) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.readUnlocked(collection, id, out)
}

func (d *documents) readUnlocked(collection, id string, out any) error {
	body, err := os.ReadFile(d.path(collection, id))
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
	}

	return nil
}

func (d *documents) write(collection, id string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.writeUnlocked(collection, id, value)
}

// writeUnlocked writes through a temporary file so readers never see partial JSON.
func (d *documents) writeUnlocked(collection, id string, value any) error {
	dir := filepath.Join(d.root, collection)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, id, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}

	return os.Rename(tmp.Name(), d.path(collection, id))
}

// update reads, mutates and writes a document under the write lock.
func (d *documents) update(collection, id string, out any, mutate func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.readUnlocked(collection, id, out)
	if err != nil {
		return err
	}

	err = mutate()
	if err != nil {
		return err
	}

	return d.writeUnlocked(collection, id, out)
}

func (d *documents) remove(collection, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.path(collection, id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}

	return nil
}

// ids lists the document ids of a collection.
func (d *documents) ids(collection string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	matches, err := fs.Glob(os.DirFS(d.root), collection+"/*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(match), ".json"))
	}

	return ids, nil
}
