package publishers

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Builder turns one entry of the publishers file into a sink for snapshot
// events. Builders may dial remote services and should honour ctx.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry resolves the type named by a publishers file entry (http, sqs, sns
// or pubsub) to the Builder for that sink. Type names are case-insensitive.
type Registry interface {
	Register(typ string, builder Builder)
	PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a Registry seeded with builders, keyed by sink type.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

func normalizeType(typ string) string {
	return strings.ToLower(strings.TrimSpace(typ))
}

// Register adds or replaces the builder for typ. Blank types and nil builders
// are ignored.
func (r *registry) Register(typ string, builder Builder) {
	if typ = normalizeType(typ); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// PublisherFor builds the sink described by cfg.
func (r *registry) PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	typ := normalizeType(cfg.Type)
	if typ == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder, ok := r.builders[typ]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no snapshot sink registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// DefaultRegistry knows every sink a tracker can deliver snapshots to.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	})
}

// BuildAll builds one sink per entry, in file order. When any entry fails the
// sinks already built are closed and nothing is returned.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	sinks := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		sink, err := reg.PublisherFor(ctx, cfg, log)
		if err != nil {
			_ = closeAll(sinks)
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}
