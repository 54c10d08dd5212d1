package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/sharecount/internal/domain"
)

// Package storage keeps the last published share counts of every target so a
// tracker pass can tell a real change from a repeat.

// Store maps a target ID to the counts last published for it.
type Store interface {
	Close() error
	LastPublished(targetID string) (domain.Published, bool, error)
	SavePublished(targetID string, rec domain.Published) error
}

// Options controls retention. A record older than RecordTTL is forgotten, so
// the next pass republishes the target even when nothing changed.
type Options struct {
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// noopStore remembers nothing, so every pass publishes.
type noopStore struct{}

func (noopStore) Close() error { return nil }

func (noopStore) LastPublished(string) (domain.Published, bool, error) {
	return domain.Published{}, false, nil
}

func (noopStore) SavePublished(string, domain.Published) error { return nil }
