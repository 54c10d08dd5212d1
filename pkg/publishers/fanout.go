package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Fanout delivers each share-count snapshot to every configured sink. A
// tracker treats a snapshot as published once at least one sink accepts it.
type Fanout struct {
	sinks []Publisher
}

// NewFanout wraps sinks, dropping nil entries.
func NewFanout(sinks []Publisher) *Fanout {
	kept := make([]Publisher, 0, len(sinks))
	for _, p := range sinks {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Fanout{sinks: kept}
}

// Publish sends evt to each sink in order and returns how many accepted it
// along with the joined delivery errors. Sinks not yet reached when ctx is
// done are skipped and the context error is included.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	var errs []error
	delivered := 0
	for _, p := range f.sinks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("snapshot for %s not sent to remaining sinks: %w", evt.TargetID, err))
			break
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Close releases sinks that hold client connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.sinks)
}

func closeAll(sinks []Publisher) error {
	var errs []error
	for _, p := range sinks {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
