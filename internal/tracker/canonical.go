package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/sharecount/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// ErrNoCanonical is returned when a page declares no canonical URL.
var ErrNoCanonical = errors.New("page declares no canonical url")

// Canonical fetches pages and reads their canonical link or og:url.
type Canonical struct {
	client  httpclient.Client
	headers map[string]string
}

// NewCanonical constructs a resolver with the provided HTTP client (or default).
func NewCanonical(client httpclient.Client, headers map[string]string) *Canonical {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	return &Canonical{client: client, headers: headers}
}

// Resolve returns the absolute canonical URL declared by pageURL.
func (c *Canonical) Resolve(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.client.Get(ctx, pageURL, c.headers)
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return "", fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	return parseCanonical(body, pageURL)
}

func parseCanonical(body []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	attr := func(sel, name string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr(name); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	raw := firstNonEmpty(
		attr(`link[rel="canonical"]`, "href"),
		attr(`meta[property="og:url"]`, "content"),
	)
	if raw == "" {
		return "", ErrNoCanonical
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse canonical url %q: %w", raw, err)
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("canonical url %q is not http(s)", raw)
	}
	return resolved.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
