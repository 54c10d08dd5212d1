package sharecount

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// API names an entry of the endpoint table. Several networks may share one API.
type API string

const (
	APITwitter    API = "twitter"
	APIPinterest  API = "pinterest"
	APILinkedIn   API = "linkedin"
	APIFacebook   API = "facebook"
	APIGooglePlus API = "googleplus"
)

// Placeholder is replaced by the tracked URL when templates are resolved.
const Placeholder = "<url>"

// Endpoints maps each API to its URL template (or, once resolved, its URL).
type Endpoints map[API]string

// DefaultEndpoints returns the built-in endpoint table. These are third-party
// contracts that change independently of this package; override them with
// LoadEndpoints when a network moves.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		APITwitter:    "http://urls.api.twitter.com/1/urls/count.json?url=<url>",
		APIPinterest:  "https://api.pinterest.com/v1/urls/count.json?callback=receiveCount&format=json&url=<url>",
		APILinkedIn:   "http://www.linkedin.com/countserv/count/share?format=json&url=<url>",
		APIFacebook:   "https://graph.facebook.com/fql?q=SELECT%20like_count,%20share_count,%20click_count,%20comment_count,%20total_count%20FROM%20link_stat%20WHERE%20url%20=%20%22<url>%22",
		APIGooglePlus: "https://clients6.google.com/rpc",
	}
}

func knownAPI(api API) bool {
	_, ok := DefaultEndpoints()[api]
	return ok
}

// Resolve substitutes target into every template. The receiver is not modified.
func (e Endpoints) Resolve(target string) Endpoints {
	out := make(Endpoints, len(e))
	for api, tmpl := range e {
		out[api] = strings.ReplaceAll(tmpl, Placeholder, target)
	}
	return out
}

// Merge returns a copy of e with every non-empty entry of override applied.
func (e Endpoints) Merge(override Endpoints) Endpoints {
	out := make(Endpoints, len(e)+len(override))
	for api, tmpl := range e {
		out[api] = tmpl
	}
	for api, tmpl := range override {
		if strings.TrimSpace(tmpl) == "" {
			continue
		}
		out[api] = strings.TrimSpace(tmpl)
	}
	return out
}

// Validate checks that every entry is a known API with a usable template.
func (e Endpoints) Validate() error {
	apis := make([]string, 0, len(e))
	for api := range e {
		apis = append(apis, string(api))
	}
	sort.Strings(apis)

	var errs []error
	for _, name := range apis {
		api := API(name)
		tmpl := e[api]
		if !knownAPI(api) {
			errs = append(errs, fmt.Errorf("unknown endpoint %q", name))
			continue
		}
		u, err := url.Parse(strings.Replace(tmpl, Placeholder, "x", -1))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("endpoint %q must be an absolute http(s) url", name))
			continue
		}
		if api != APIGooglePlus && !strings.Contains(tmpl, Placeholder) {
			errs = append(errs, fmt.Errorf("endpoint %q is missing the %s placeholder", name, Placeholder))
		}
	}
	return errors.Join(errs...)
}

type endpointsFile struct {
	Endpoints map[string]string `json:"endpoints" yaml:"endpoints"`
}

// LoadEndpoints reads a YAML or JSON endpoints file and overlays it onto DefaultEndpoints.
func LoadEndpoints(path string) (Endpoints, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("endpoints file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	return ParseEndpoints(raw, filepath.Ext(path))
}

// ParseEndpoints decodes endpoints file content; ext selects the decoder when set.
func ParseEndpoints(data []byte, ext string) (Endpoints, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file endpointsFile
		if err := d.fn(data, &file); err != nil {
			continue
		}
		if len(file.Endpoints) == 0 {
			return nil, errors.New("endpoints file contains no endpoints entries")
		}

		override := make(Endpoints, len(file.Endpoints))
		for name, tmpl := range file.Endpoints {
			override[API(strings.ToLower(strings.TrimSpace(name)))] = tmpl
		}
		merged := DefaultEndpoints().Merge(override)
		if err := merged.Validate(); err != nil {
			return nil, fmt.Errorf("invalid endpoints: %w", err)
		}
		return merged, nil
	}

	return nil, errors.New("endpoints file format not recognized (expected YAML or JSON)")
}
