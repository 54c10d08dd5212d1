package sharecount

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type fetchFunc func(ctx context.Context, l *Lookup, extra string) (int64, error)

// fetchers is the dispatch table behind Count; every supported network has exactly one entry.
var fetchers = map[Network]fetchFunc{
	Twitter:    fetchTwitter,
	Pinterest:  fetchPinterest,
	LinkedIn:   fetchLinkedIn,
	Facebook:   fetchFacebook,
	GooglePlus: fetchGooglePlus,
	FacebookShare: func(ctx context.Context, l *Lookup, _ string) (int64, error) {
		return fetchFacebook(ctx, l, CountTypeShare)
	},
	FacebookLike: func(ctx context.Context, l *Lookup, _ string) (int64, error) {
		return fetchFacebook(ctx, l, CountTypeLike)
	},
}

// jsonpWrapper captures the payload of a callback(...) response.
var jsonpWrapper = regexp.MustCompile(`(?s)^\s*[A-Za-z_$][\w$.]*\((.*)\)\s*;?\s*$`)

const maxSnippetLen = 512

type countResponse struct {
	Count json.RawMessage `json:"count"`
}

type facebookResponse struct {
	Data []map[string]json.RawMessage `json:"data"`
}

type googlePlusResponse struct {
	Result *struct {
		Metadata *struct {
			GlobalCounts *struct {
				Count json.RawMessage `json:"count"`
			} `json:"globalCounts"`
		} `json:"metadata"`
	} `json:"result"`
}

type googlePlusRequest struct {
	APIVersion string           `json:"apiVersion"`
	JSONRPC    string           `json:"jsonrpc"`
	Method     string           `json:"method"`
	ID         string           `json:"id"`
	Key        string           `json:"key"`
	Params     googlePlusParams `json:"params"`
}

type googlePlusParams struct {
	NoLog   bool   `json:"nolog"`
	ID      string `json:"id"`
	Source  string `json:"source"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

func fetchTwitter(ctx context.Context, l *Lookup, _ string) (int64, error) {
	return fetchCountField(ctx, l, APITwitter, false)
}

func fetchLinkedIn(ctx context.Context, l *Lookup, _ string) (int64, error) {
	return fetchCountField(ctx, l, APILinkedIn, false)
}

func fetchPinterest(ctx context.Context, l *Lookup, _ string) (int64, error) {
	return fetchCountField(ctx, l, APIPinterest, true)
}

func fetchCountField(ctx context.Context, l *Lookup, api API, jsonp bool) (int64, error) {
	body, err := l.get(ctx, api)
	if err != nil {
		return 0, err
	}
	if jsonp {
		body = stripJSONP(body)
	}

	var resp countResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, api, err)
	}
	return parseCount(resp.Count, "count")
}

func fetchFacebook(ctx context.Context, l *Lookup, countType string) (int64, error) {
	countType = strings.ToLower(strings.TrimSpace(countType))
	if countType == "" {
		countType = CountTypeTotal
	}
	if !ValidCountType(countType) {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCountType, countType)
	}

	body, err := l.get(ctx, APIFacebook)
	if err != nil {
		return 0, err
	}

	var resp facebookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, APIFacebook, err)
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("%w: data[0] missing", ErrShape)
	}
	return parseCount(resp.Data[0][countType], "data[0]."+countType)
}

func fetchGooglePlus(ctx context.Context, l *Lookup, _ string) (int64, error) {
	payload, err := json.Marshal([]googlePlusRequest{{
		APIVersion: "v1",
		JSONRPC:    "2.0",
		Method:     "pos.plusones.get",
		ID:         "p",
		Key:        "p",
		Params: googlePlusParams{
			NoLog:   true,
			ID:      l.url,
			Source:  "widget",
			UserID:  "@viewer",
			GroupID: "@self",
		},
	}})
	if err != nil {
		return 0, fmt.Errorf("marshal googleplus request: %w", err)
	}

	body, err := l.post(ctx, APIGooglePlus, payload)
	if err != nil {
		return 0, err
	}

	var resp []googlePlusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, APIGooglePlus, err)
	}
	if len(resp) == 0 || resp[0].Result == nil || resp[0].Result.Metadata == nil || resp[0].Result.Metadata.GlobalCounts == nil {
		return 0, fmt.Errorf("%w: [0].result.metadata.globalCounts missing", ErrShape)
	}
	return parseCount(resp[0].Result.Metadata.GlobalCounts.Count, "[0].result.metadata.globalCounts.count")
}

func (l *Lookup) get(ctx context.Context, api API) ([]byte, error) {
	endpoint := l.resolved[api]
	if endpoint == "" {
		return nil, fmt.Errorf("%w: no endpoint configured for %s", ErrTransport, api)
	}

	resp, err := l.client.Get(ctx, endpoint, l.headers)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransport, api, err)
	}
	return checkStatus(api, resp.StatusCode(), resp.Body())
}

func (l *Lookup) post(ctx context.Context, api API, payload []byte) ([]byte, error) {
	endpoint := l.resolved[api]
	if endpoint == "" {
		return nil, fmt.Errorf("%w: no endpoint configured for %s", ErrTransport, api)
	}

	headers := make(map[string]string, len(l.headers)+1)
	for k, v := range l.headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"

	resp, err := l.client.Post(ctx, endpoint, headers, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %v", ErrTransport, api, err)
	}
	return checkStatus(api, resp.StatusCode(), resp.Body())
}

func checkStatus(api API, status int, body []byte) ([]byte, error) {
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: %s returned %d body: %s", ErrStatus, api, status, responseSnippet(body))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty body", ErrDecode, api)
	}
	return body, nil
}

// stripJSONP unwraps callback(...) bodies and returns anything else unchanged.
func stripJSONP(body []byte) []byte {
	m := jsonpWrapper.FindSubmatch(body)
	if m == nil {
		return body
	}
	return m[1]
}

// parseCount accepts a JSON number or numeric string. Integers are kept exact;
// fractional values are truncated. Negative, non-finite and out-of-range
// values are rejected.
func parseCount(raw json.RawMessage, path string) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: %s missing", ErrShape, path)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("%w: %s is %T, not a number", ErrShape, path, v)
	}
	return countFromText(text, path)
}

func countFromText(text, path string) (int64, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %s is negative", ErrShape, path)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s: %q is not a number", ErrShape, path, text)
	}
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("%w: %s is not finite", ErrShape, path)
	case f < 0:
		return 0, fmt.Errorf("%w: %s is negative", ErrShape, path)
	case f >= math.MaxInt64:
		return 0, fmt.Errorf("%w: %s overflows int64", ErrShape, path)
	}
	return int64(f), nil
}

func responseSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
