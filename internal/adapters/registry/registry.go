// Package registry loads market pairs and discovery categories from a static file.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

// fileContents is the on-disk shape shared by the YAML and TOML formats.
type fileContents struct {
	Pairs      []domain.MarketPair `yaml:"pairs" toml:"pairs"`
	Categories []domain.Category   `yaml:"categories" toml:"categories"`
}

// FileRegistry implements ports.PairRegistry over a .yaml/.yml or .toml file.
// The file is re-read on every LoadPairs so edits apply on the next scan cycle.
type FileRegistry struct {
	path string

	mu   sync.Mutex
	last fileContents
}

var _ ports.PairRegistry = (*FileRegistry)(nil)

// NewFileRegistry returns a registry for path. The extension selects the format.
func NewFileRegistry(path string) (*FileRegistry, error) {
	if _, err := formatOf(path); err != nil {
		return nil, err
	}
	return &FileRegistry{path: path}, nil
}

// Path returns the backing file.
func (r *FileRegistry) Path() string { return r.path }

// LoadPairs reads and validates the pair list. Duplicate ids are rejected.
func (r *FileRegistry) LoadPairs(ctx context.Context) ([]domain.MarketPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contents, err := r.read()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(contents.Pairs))
	for _, p := range contents.Pairs {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("registry.LoadPairs %q: %w", r.path, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("registry.LoadPairs %q: duplicate pair id %q", r.path, p.ID)
		}
		seen[p.ID] = true
	}

	r.mu.Lock()
	r.last = contents
	r.mu.Unlock()
	return contents.Pairs, nil
}

// Categories returns the discovery categories, reading the file if LoadPairs has not run.
func (r *FileRegistry) Categories(ctx context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	cached := r.last.Categories
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contents, err := r.read()
	if err != nil {
		return nil, err
	}
	return contents.Categories, nil
}

func (r *FileRegistry) read() (fileContents, error) {
	var contents fileContents

	data, err := os.ReadFile(r.path)
	if err != nil {
		return contents, fmt.Errorf("registry: read %q: %w", r.path, err)
	}

	format, _ := formatOf(r.path)
	switch format {
	case "toml":
		if _, err := toml.Decode(string(data), &contents); err != nil {
			return contents, fmt.Errorf("registry: parse toml %q: %w", r.path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &contents); err != nil {
			return contents, fmt.Errorf("registry: parse yaml %q: %w", r.path, err)
		}
	}
	return contents, nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	default:
		return "", fmt.Errorf("registry: unsupported file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}
