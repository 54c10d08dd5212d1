package tracker

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/samvad-hq/sharecount/internal/domain"
	"github.com/samvad-hq/sharecount/internal/logger"
	"github.com/samvad-hq/sharecount/pkg/publishers"
	"github.com/samvad-hq/sharecount/pkg/sharecount"
	"github.com/samvad-hq/sharecount/pkg/targets"
)

// ErrAllLookupsFailed is returned for a target whose every network failed.
var ErrAllLookupsFailed = errors.New("every share count lookup failed")

// Service collects share counts for targets and publishes changed snapshots.
type Service struct {
	lookupOpts []sharecount.Option
	resolver   CanonicalResolver
	publisher  EventPublisher
	store      PublishedStore
	log        logger.Logger
}

// NewService wires a tracker. lookupOpts are applied to every per-target
// Lookup. A nil resolver disables canonical resolution, a nil publisher
// leaves the log as the only sink and a nil store publishes every pass.
// A target is republished only when a network that succeeded this pass
// reports a count different from the one last published for it.
func NewService(lookupOpts []sharecount.Option, resolver CanonicalResolver, pub EventPublisher, log logger.Logger, store PublishedStore) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		lookupOpts: append([]sharecount.Option(nil), lookupOpts...),
		resolver:   resolver,
		publisher:  pub,
		store:      store,
		log:        log,
	}
}

// Run executes one collection pass over targets, in order.
func (s *Service) Run(ctx context.Context, list []targets.Target) error {
	if s == nil {
		return fmt.Errorf("tracker service is not initialized")
	}
	if len(list) == 0 {
		return fmt.Errorf("no targets configured for tracking")
	}

	return errors.Join(s.runAll(ctx, list)...)
}

func (s *Service) runAll(ctx context.Context, list []targets.Target) []error {
	errs := make([]error, 0, len(list))

	for _, t := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.processTarget(ctx, t); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("target tracking failed", "target_error", map[string]any{
				"target_id": t.ID,
				"error":     err.Error(),
			})
		}
	}

	return errs
}

func (s *Service) processTarget(ctx context.Context, t targets.Target) error {
	networks, err := t.SharecountNetworks()
	if err != nil {
		return fmt.Errorf("target %s: %w", t.ID, err)
	}

	resolved := s.resolveURL(ctx, t)
	breakdown := sharecount.New(resolved, s.lookupOpts...).Counts(ctx, networks)

	snapshot := domain.Snapshot{
		URL:         t.URL,
		ResolvedURL: resolved,
		Counts:      breakdown.Counts(),
		Total:       breakdown.Total,
	}
	if failures := breakdown.Failures(); len(failures) > 0 {
		snapshot.Failures = failures
		if len(failures) == len(breakdown.Results) {
			return fmt.Errorf("target %s: %w: %w", t.ID, ErrAllLookupsFailed, breakdown.Err())
		}
		s.log.WarnObj("some share count lookups failed", "target_partial", map[string]any{
			"target_id": t.ID,
			"failures":  failures,
		})
	}

	current := breakdown.Succeeded()
	prev, err := s.lastPublished(t.ID, resolved)
	if err != nil {
		return err
	}
	if prev != nil {
		if !countsChanged(prev.Counts, current) {
			s.log.DebugObj("share counts unchanged", "target_unchanged", map[string]any{
				"target_id": t.ID,
				"total":     snapshot.Total,
			})
			return nil
		}
		snapshot.Deltas = countDeltas(prev.Counts, current)
	}

	s.log.InfoObj("share counts collected", "target_snapshot", map[string]any{
		"target_id": t.ID,
		"snapshot":  snapshot,
	})

	rec := domain.Published{ResolvedURL: resolved, Counts: current}
	if prev != nil {
		rec.Counts = mergeCounts(prev.Counts, current)
	}

	if s.publisher == nil {
		return s.save(t.ID, rec)
	}

	delivered, pubErr := s.publisher.Publish(ctx, publishers.NewEvent(t.ID, t.Name, snapshot))
	if delivered > 0 {
		if err := s.save(t.ID, rec); err != nil {
			return errors.Join(pubErr, err)
		}
	}
	if pubErr != nil {
		return fmt.Errorf("target %s: publish snapshot: %w", t.ID, pubErr)
	}
	return nil
}

// lastPublished returns the stored record for targetID, or nil when there is
// none or it was taken against a different resolved URL.
func (s *Service) lastPublished(targetID, resolved string) (*domain.Published, error) {
	if s.store == nil {
		return nil, nil
	}
	rec, found, err := s.store.LastPublished(targetID)
	if err != nil {
		return nil, fmt.Errorf("target %s: load published counts: %w", targetID, err)
	}
	if !found || rec.ResolvedURL != resolved {
		return nil, nil
	}
	return &rec, nil
}

func (s *Service) resolveURL(ctx context.Context, t targets.Target) string {
	if !t.ResolveCanonical || s.resolver == nil {
		return t.URL
	}
	canonical, err := s.resolver.Resolve(ctx, t.URL)
	if err != nil {
		s.log.WarnObj("canonical url resolution failed", "canonical_error", map[string]any{
			"target_id": t.ID,
			"url":       t.URL,
			"error":     err.Error(),
		})
		return t.URL
	}
	return canonical
}

func (s *Service) save(targetID string, rec domain.Published) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SavePublished(targetID, rec); err != nil {
		return fmt.Errorf("target %s: save published counts: %w", targetID, err)
	}
	return nil
}

// countsChanged reports whether any network in current is new or differs from
// prev. Networks missing from current failed this pass and are not compared.
func countsChanged(prev, current map[string]int64) bool {
	for name, n := range current {
		if p, ok := prev[name]; !ok || p != n {
			return true
		}
	}
	return false
}

// countDeltas is current minus prev for networks present in both.
func countDeltas(prev, current map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(current))
	for name, n := range current {
		if p, ok := prev[name]; ok {
			out[name] = n - p
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mergeCounts overlays current on prev so a network that failed this pass
// keeps its last published count.
func mergeCounts(prev, current map[string]int64) map[string]int64 {
	out := maps.Clone(prev)
	if out == nil {
		out = make(map[string]int64, len(current))
	}
	maps.Copy(out, current)
	return out
}
