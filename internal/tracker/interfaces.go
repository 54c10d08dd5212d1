package tracker

import (
	"context"

	"github.com/samvad-hq/sharecount/internal/domain"
	"github.com/samvad-hq/sharecount/pkg/publishers"
)

// CanonicalResolver maps a page URL to the URL its HTML declares canonical.
type CanonicalResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

// EventPublisher publishes snapshots downstream and reports how many sinks
// accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// PublishedStore remembers the counts last published for each target.
type PublishedStore interface {
	LastPublished(targetID string) (domain.Published, bool, error)
	SavePublished(targetID string, rec domain.Published) error
}
