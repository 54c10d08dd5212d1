package sharecount

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/sharecount/pkg/httpclient"
)

// Lookup fetches share counts for a single URL. A Lookup is not safe for
// concurrent use while SetURL may be called; use one instance per URL.
type Lookup struct {
	url       string
	templates Endpoints
	resolved  Endpoints
	all       []Network
	client    httpclient.Client
	headers   map[string]string
	log       Logger
}

// Option customizes a Lookup at construction.
type Option func(*Lookup)

// WithClient injects the HTTP transport.
func WithClient(client httpclient.Client) Option {
	return func(l *Lookup) {
		if client != nil {
			l.client = client
		}
	}
}

// WithEndpoints overlays templates onto the default endpoint table.
func WithEndpoints(templates Endpoints) Option {
	return func(l *Lookup) {
		l.templates = l.templates.Merge(templates)
	}
}

// WithAllNetworks replaces the set summed by All. All itself is ignored and
// repeated networks are kept once, in first-seen order.
func WithAllNetworks(networks ...Network) Option {
	return func(l *Lookup) {
		set := make([]Network, 0, len(networks))
		seen := make(map[Network]struct{}, len(networks))
		for _, n := range networks {
			if _, dup := seen[n]; dup || n == All {
				continue
			}
			seen[n] = struct{}{}
			set = append(set, n)
		}
		l.all = set
	}
}

// WithHeaders adds request headers sent to every network (e.g. User-Agent).
func WithHeaders(headers map[string]string) Option {
	return func(l *Lookup) {
		for k, v := range headers {
			if k == "" || v == "" {
				continue
			}
			if l.headers == nil {
				l.headers = make(map[string]string, len(headers))
			}
			l.headers[k] = v
		}
	}
}

// WithLogger routes lookup failures to log at debug level.
func WithLogger(log Logger) Option {
	return func(l *Lookup) {
		if log != nil {
			l.log = log
		}
	}
}

// New builds a Lookup tracking target.
func New(target string, opts ...Option) *Lookup {
	l := &Lookup{
		templates: DefaultEndpoints(),
		all:       DefaultAllNetworks(),
		log:       noopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	l.SetURL(target)
	return l
}

// SetURL changes the tracked URL and re-resolves every endpoint template.
func (l *Lookup) SetURL(target string) {
	l.url = target
	l.resolved = l.templates.Resolve(target)
}

// URL returns the tracked URL.
func (l *Lookup) URL() string { return l.url }

// Endpoint returns the resolved endpoint for api.
func (l *Lookup) Endpoint(api API) string { return l.resolved[api] }

// AllNetworks returns a copy of the set summed by All.
func (l *Lookup) AllNetworks() []Network {
	return append([]Network(nil), l.all...)
}

// Result is the outcome of one network lookup. Count is 0 whenever Err is set,
// except for All, where Count sums the networks that succeeded.
type Result struct {
	Network Network
	Count   int64
	Err     error
}

// Count returns the count for network, or 0 on any failure. extra is the
// Facebook count type when network is Facebook and is ignored otherwise.
func (l *Lookup) Count(ctx context.Context, network Network, extra ...string) int64 {
	return l.Fetch(ctx, network, extra...).Count
}

// Fetch is Count with the failure reason preserved.
func (l *Lookup) Fetch(ctx context.Context, network Network, extra ...string) Result {
	if network == All {
		b := l.Counts(ctx, l.all)
		return Result{Network: All, Count: b.Total, Err: b.Err()}
	}

	fetch, ok := fetchers[network]
	if !ok {
		return l.failed(network, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network))
	}

	var arg string
	if len(extra) > 0 {
		arg = extra[0]
	}

	count, err := fetch(ctx, l, arg)
	if err != nil {
		return l.failed(network, err)
	}
	return Result{Network: network, Count: count}
}

// SumOf adds Count over networks in order, skipping All.
func (l *Lookup) SumOf(ctx context.Context, networks []Network) int64 {
	var sum int64
	for _, n := range networks {
		if n == All {
			continue
		}
		sum += l.Count(ctx, n)
	}
	return sum
}

// Breakdown holds per-network results and the sum of their counts.
type Breakdown struct {
	URL     string
	Results []Result
	Total   int64
}

// Err joins the failures of every result, or returns nil.
func (b Breakdown) Err() error {
	var errs []error
	for _, r := range b.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Network, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Counts maps each network name to its count.
func (b Breakdown) Counts() map[string]int64 {
	out := make(map[string]int64, len(b.Results))
	for _, r := range b.Results {
		out[string(r.Network)] = r.Count
	}
	return out
}

// Succeeded maps each network whose lookup succeeded to its count.
func (b Breakdown) Succeeded() map[string]int64 {
	out := make(map[string]int64, len(b.Results))
	for _, r := range b.Results {
		if r.Err == nil {
			out[string(r.Network)] = r.Count
		}
	}
	return out
}

// Failures maps each failed network name to its error text.
func (b Breakdown) Failures() map[string]string {
	out := make(map[string]string)
	for _, r := range b.Results {
		if r.Err != nil {
			out[string(r.Network)] = r.Err.Error()
		}
	}
	return out
}

// Counts fetches every network once, in order. All expands to the lookup's
// configured set and repeated networks are fetched only once.
func (l *Lookup) Counts(ctx context.Context, networks []Network) Breakdown {
	b := Breakdown{URL: l.url}
	seen := make(map[Network]struct{}, len(networks))

	var expanded []Network
	for _, n := range networks {
		if n == All {
			expanded = append(expanded, l.all...)
			continue
		}
		expanded = append(expanded, n)
	}

	for _, n := range expanded {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}

		r := l.Fetch(ctx, n)
		b.Results = append(b.Results, r)
		b.Total += r.Count
	}
	return b
}

func (l *Lookup) failed(network Network, err error) Result {
	l.log.DebugObj("share count lookup failed", "lookup_error", map[string]any{
		"network": string(network),
		"url":     l.url,
		"error":   err.Error(),
	})
	return Result{Network: network, Err: err}
}
