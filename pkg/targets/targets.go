package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samvad-hq/sharecount/pkg/sharecount"
	"gopkg.in/yaml.v3"
)

// Package targets loads the list of URLs the tracker watches.

// Target is one watched URL.
type Target struct {
	ID               string   `json:"id" yaml:"id" validate:"required"`
	Name             string   `json:"name" yaml:"name"`
	URL              string   `json:"url" yaml:"url" validate:"required,http_url"`
	Networks         []string `json:"networks" yaml:"networks"`
	ResolveCanonical bool     `json:"resolve_canonical" yaml:"resolve_canonical"`
}

type registryFile struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Registry holds validated targets in file order.
type Registry struct {
	mu      sync.RWMutex
	targets []Target
	idx     map[string]Target
}

var validate = validator.New()

// LoadRegistry loads targets from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(reg.Targets)
}

// NewRegistry sanitizes and validates targets.
func NewRegistry(list []Target) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}

	r := &Registry{
		targets: make([]Target, len(list)),
		idx:     make(map[string]Target, len(list)),
	}
	for i := range list {
		t := sanitizeTarget(list[i])
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if _, exists := r.idx[t.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		r.targets[i] = t
		r.idx[t.ID] = t
	}
	return r, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s targets: %w", name, err)
	}
	return reg, nil
}

func sanitizeTarget(t Target) Target {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	t.URL = strings.TrimSpace(t.URL)
	if t.Name == "" {
		t.Name = t.ID
	}

	networks := make([]string, 0, len(t.Networks))
	for _, n := range t.Networks {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			networks = append(networks, n)
		}
	}
	if len(networks) == 0 {
		networks = []string{string(sharecount.All)}
	}
	t.Networks = networks

	return t
}

func validateTarget(t Target) error {
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("target %q: %s fails %q", t.ID, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("target %q: %w", t.ID, err)
	}
	if _, err := sharecount.ParseNetworks(t.Networks); err != nil {
		return fmt.Errorf("target %q: %w", t.ID, err)
	}
	return nil
}

// SharecountNetworks returns the parsed network list. Registry entries are
// already validated, so the error only surfaces for hand-built targets.
func (t Target) SharecountNetworks() ([]sharecount.Network, error) {
	return sharecount.ParseNetworks(t.Networks)
}

// All returns a copy of every target in file order.
func (r *Registry) All() []Target {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// ByID returns the target with the given id, if loaded.
func (r *Registry) ByID(id string) (Target, bool) {
	if r == nil {
		return Target{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Target{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.idx[id]
	return t, ok
}
