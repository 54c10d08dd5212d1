package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/sharecount/internal/app"
	"github.com/samvad-hq/sharecount/internal/config"
	"github.com/samvad-hq/sharecount/internal/logger"
	"github.com/samvad-hq/sharecount/pkg/sharecount"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var errUsage = errors.New("usage: sharecount [flags] URL")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "sharecount failed: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	networks  []string
	countType string
	asJSON    bool
	dryRun    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("sharecount", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringSliceVarP(&opts.networks, "network", "n", []string{string(sharecount.All)}, "network to query; repeatable or comma separated")
	fs.StringVar(&opts.countType, "count-type", "", "facebook link_stat column (like_count, share_count, click_count, comment_count, total_count)")
	fs.String("endpoints", "", "YAML/JSON file overriding endpoint templates")
	fs.Int("timeout", 15, "per-request timeout in seconds")
	fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&opts.asJSON, "json", false, "print JSON")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "print resolved endpoints without any network I/O")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	target := fs.Arg(0)

	v := viper.New()
	for key, flag := range map[string]string{
		"endpoints_file":       "endpoints",
		"http_timeout_seconds": "timeout",
		"log_level":            "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	// Diagnostics stay off stdout unless asked for.
	if !fs.Changed("log-level") {
		v.Set("log_level", "warn")
	}

	cfg, err := config.LoadWith(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.InitWithWriter(cfg, stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	networks, err := sharecount.ParseNetworks(opts.networks)
	if err != nil {
		return err
	}
	if len(networks) == 0 {
		networks = []sharecount.Network{sharecount.All}
	}
	if opts.countType != "" {
		if !sharecount.ValidCountType(opts.countType) {
			return fmt.Errorf("%w: %q", sharecount.ErrUnsupportedCountType, opts.countType)
		}
		if len(networks) != 1 || networks[0] != sharecount.Facebook {
			return errors.New("--count-type requires --network facebook")
		}
	}

	lookupOpts, err := app.LookupOptions(cfg, log)
	if err != nil {
		return err
	}
	lookup := sharecount.New(target, lookupOpts...)

	if opts.dryRun {
		return printEndpoints(stdout, lookup, networks)
	}

	var b sharecount.Breakdown
	if opts.countType != "" {
		r := lookup.Fetch(ctx, sharecount.Facebook, opts.countType)
		b = sharecount.Breakdown{URL: target, Results: []sharecount.Result{r}, Total: r.Count}
	} else {
		b = lookup.Counts(ctx, networks)
	}

	if opts.asJSON {
		return printJSON(stdout, b)
	}
	return printText(stdout, b)
}

// expand replaces All with the lookup's configured set.
func expand(lookup *sharecount.Lookup, networks []sharecount.Network) []sharecount.Network {
	var out []sharecount.Network
	seen := make(map[sharecount.Network]bool)
	for _, n := range networks {
		group := []sharecount.Network{n}
		if n == sharecount.All {
			group = lookup.AllNetworks()
		}
		for _, g := range group {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

func printEndpoints(w io.Writer, lookup *sharecount.Lookup, networks []sharecount.Network) error {
	for _, n := range expand(lookup, networks) {
		api, ok := n.API()
		if !ok {
			continue
		}
		method := "GET"
		if api == sharecount.APIGooglePlus {
			method = "POST"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", n, method, lookup.Endpoint(api)); err != nil {
			return err
		}
	}
	return nil
}

func printText(w io.Writer, b sharecount.Breakdown) error {
	for _, r := range b.Results {
		line := fmt.Sprintf("%s\t%d", r.Network, r.Count)
		if r.Err != nil {
			line += "\t(" + r.Err.Error() + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total\t%d\n", b.Total)
	return err
}

type jsonResult struct {
	Network string `json:"network"`
	Count   int64  `json:"count"`
	Error   string `json:"error,omitempty"`
}

type jsonOutput struct {
	URL     string       `json:"url"`
	Results []jsonResult `json:"results"`
	Total   int64        `json:"total"`
}

func printJSON(w io.Writer, b sharecount.Breakdown) error {
	out := jsonOutput{URL: b.URL, Results: make([]jsonResult, 0, len(b.Results)), Total: b.Total}
	for _, r := range b.Results {
		jr := jsonResult{Network: string(r.Network), Count: r.Count}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		out.Results = append(out.Results, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
