package app

import (
	"fmt"

	"github.com/samvad-hq/sharecount/internal/config"
	"github.com/samvad-hq/sharecount/internal/logger"
	"github.com/samvad-hq/sharecount/pkg/httpclient"
	"github.com/samvad-hq/sharecount/pkg/sharecount"
)

// LookupOptions builds the Lookup options shared by the CLI, tracker and HTTP API.
func LookupOptions(cfg *config.Config, log logger.Logger) ([]sharecount.Option, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	opts := []sharecount.Option{
		sharecount.WithClient(httpclient.NewRestyClient(cfg.HTTPTimeout)),
		sharecount.WithLogger(log),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, sharecount.WithHeaders(map[string]string{"User-Agent": cfg.UserAgent}))
	}

	if cfg.EndpointsFile != "" {
		endpoints, err := sharecount.LoadEndpoints(cfg.EndpointsFile)
		if err != nil {
			return nil, fmt.Errorf("load endpoints: %w", err)
		}
		opts = append(opts, sharecount.WithEndpoints(endpoints))
		log.InfoObj("endpoint overrides loaded", "endpoints_file", cfg.EndpointsFile)
	}

	return opts, nil
}
