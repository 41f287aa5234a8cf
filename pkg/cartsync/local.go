package cartsync

import (
	"encoding/json"
	"os"
)

// FileStore is a LocalStore backed by a single JSON file, the CLI analog of
// browser local storage.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore persisting to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the persisted cart. A missing file yields an empty cart;
// malformed JSON is reported as an error so the caller can log and start
// empty.
func (f *FileStore) Load() ([]Item, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save writes the cart snapshot, replacing any previous content.
func (f *FileStore) Save(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, raw, 0o600)
}
