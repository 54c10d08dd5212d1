package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/samvad-hq/sharecount/internal/config"
	"github.com/samvad-hq/sharecount/internal/logger"
	"github.com/samvad-hq/sharecount/internal/server"
	"github.com/samvad-hq/sharecount/internal/storage"
	"github.com/samvad-hq/sharecount/internal/tracker"
	"github.com/samvad-hq/sharecount/pkg/httpclient"
	"github.com/samvad-hq/sharecount/pkg/publishers"
	"github.com/samvad-hq/sharecount/pkg/targets"
)

// Tracker is the share-count tracking runtime. It polls every configured
// target on an interval, publishes changed snapshots and optionally serves
// the HTTP API alongside.
type Tracker struct {
	cfg          *config.Config
	targetReg    *targets.Registry
	fanout       *publishers.Fanout
	service      *tracker.Service
	server       *server.Server
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewTracker builds a tracker runtime from config files.
func NewTracker(ctx context.Context, cfg *config.Config, log logger.Logger) (*Tracker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	targetReg, err := targets.LoadRegistry(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	targetList := targetReg.All()
	targetIDs := make([]string, 0, len(targetList))
	for _, t := range targetList {
		targetIDs = append(targetIDs, t.ID)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count": len(targetIDs),
		"ids":   targetIDs,
	})

	lookupOpts, err := LookupOptions(cfg, log)
	if err != nil {
		return nil, err
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		RecordTTL:       cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"record_ttl_seconds":       int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	var headers map[string]string
	if cfg.UserAgent != "" {
		headers = map[string]string{"User-Agent": cfg.UserAgent}
	}
	resolver := tracker.NewCanonical(httpclient.NewRestyClient(cfg.HTTPTimeout), headers)

	var pub tracker.EventPublisher
	if fanout.Size() > 0 {
		pub = fanout
	}

	t := &Tracker{
		cfg:          cfg,
		targetReg:    targetReg,
		fanout:       fanout,
		service:      tracker.NewService(lookupOpts, resolver, pub, log, store),
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}
	if cfg.ServerAddr != "" {
		t.server = server.New(cfg.ServerAddr, lookupOpts, log)
	}
	return t, nil
}

// buildFanout loads publishers. A missing or unset publishers file yields an
// empty fan-out, leaving the log as the only sink.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		log.WarnObj("no publishers file configured; snapshots are only logged", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.WarnObj("publishers file not found; snapshots are only logged", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if errors.Is(err, publishers.ErrNoPublishers) {
		log.WarnObj("publishers file is empty; snapshots are only logged", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the poll loop, and the HTTP API when configured, until the
// context is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if t == nil || t.service == nil {
		return fmt.Errorf("tracker is not initialized")
	}
	defer t.close()

	serverErr := make(chan error, 1)
	if t.server != nil {
		go func() { serverErr <- t.server.Run(ctx) }()
	}

	list := t.targetReg.All()
	t.log.InfoObj("tracker loop starting", "tracker_state", map[string]any{
		"targets_count":    len(list),
		"publishers_count": t.fanout.Size(),
		"poll_interval":    t.pollInterval.String(),
		"server_addr":      t.cfg.ServerAddr,
	})

	if err := t.runOnce(ctx, list); err != nil {
		t.log.ErrorObj("initial poll failed", "error", err)
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.InfoObj("tracker loop exiting", "reason", ctx.Err())
			if t.server != nil {
				return <-serverErr
			}
			return nil
		case err := <-serverErr:
			return err
		case <-ticker.C:
			if err := t.runOnce(ctx, list); err != nil {
				t.log.ErrorObj("scheduled poll failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single poll over every target and releases resources.
func (t *Tracker) RunOnce(ctx context.Context) error {
	if t == nil || t.service == nil {
		return fmt.Errorf("tracker is not initialized")
	}
	defer t.close()
	return t.runOnce(ctx, t.targetReg.All())
}

func (t *Tracker) runOnce(ctx context.Context, list []targets.Target) error {
	start := time.Now()
	t.log.InfoObj("poll started", "poll_meta", map[string]any{
		"targets_count": len(list),
		"started_at":    start.UTC(),
	})
	if err := t.service.Run(ctx, list); err != nil {
		return err
	}
	t.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"targets_count": len(list),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases publishers and the storage backend, logging any errors.
func (t *Tracker) close() {
	if t == nil {
		return
	}
	if err := t.fanout.Close(); err != nil {
		t.log.ErrorObj("publishers close failed", "error", err)
	}
	if t.store != nil {
		if err := t.store.Close(); err != nil {
			t.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
