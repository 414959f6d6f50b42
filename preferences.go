package bankxatm

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

const PrefLastUsername = "lastUsername"

// Preferences is a small string key/value store for presentation settings.
type Preferences interface {
	Get(key, def string) string
	Put(key, value string) error
}

// FilePreferences keeps preferences in a YAML map on disk. Every Put rewrites
// the file.
type FilePreferences struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

var (
	_ Preferences = (*FilePreferences)(nil)
)

// OpenPreferences loads path if it exists. A missing file is an empty store.
func OpenPreferences(path string) (*FilePreferences, error) {
	p := &FilePreferences{
		path:   path,
		values: make(map[string]string),
	}
	bits, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(bits, &p.values); err != nil {
		return nil, err
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}
	return p, nil
}

func (p *FilePreferences) Get(key, def string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

func (p *FilePreferences) Put(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	bits, err := yaml.Marshal(p.values)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, bits, 0o600)
}
