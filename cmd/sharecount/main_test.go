package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samvad-hq/sharecount/pkg/sharecount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// endpointsFile points twitter at a local upstream returning 42 and linkedin at a 500.
func endpointsFile(t *testing.T) string {
	t.Helper()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/linkedin") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"count":42}`))
	}))
	t.Cleanup(up.Close)

	path := filepath.Join(t.TempDir(), "endpoints.json")
	body := `{"endpoints":{"twitter":"` + up.URL + `/twitter?url=<url>","linkedin":"` + up.URL + `/linkedin?url=<url>"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunPrintsCountsAndTotal(t *testing.T) {
	out, err := runCLI(t, "--endpoints", endpointsFile(t), "-n", "twitter,linkedin", "http://example.com")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "twitter\t42", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "linkedin\t0\t("), lines[1])
	assert.Equal(t, "total\t42", lines[2])
}

func TestRunJSON(t *testing.T) {
	out, err := runCLI(t, "--endpoints", endpointsFile(t), "--network", "twitter", "--network", "twitter", "--json", "http://example.com")
	require.NoError(t, err)

	var got jsonOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "http://example.com", got.URL)
	assert.Equal(t, int64(42), got.Total)
	assert.Equal(t, []jsonResult{{Network: "twitter", Count: 42}}, got.Results)
}

func TestRunDryRunPrintsResolvedEndpoints(t *testing.T) {
	out, err := runCLI(t, "--dry-run", "-n", "twitter,googleplus", "http://example.com")
	require.NoError(t, err)

	want := "twitter\tGET\thttp://urls.api.twitter.com/1/urls/count.json?url=http://example.com\n" +
		"googleplus\tPOST\thttps://clients6.google.com/rpc\n"
	assert.Equal(t, want, out)
}

func TestRunDryRunExpandsAll(t *testing.T) {
	out, err := runCLI(t, "--dry-run", "http://example.com")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(sharecount.DefaultAllNetworks()))
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := runCLI(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "-n", "myspace", "http://example.com")
	assert.ErrorIs(t, err, sharecount.ErrUnsupportedNetwork)

	_, err = runCLI(t, "-n", "facebook", "--count-type", "view_count", "http://example.com")
	assert.ErrorIs(t, err, sharecount.ErrUnsupportedCountType)

	_, err = runCLI(t, "-n", "twitter", "--count-type", "like_count", "http://example.com")
	assert.Error(t, err)
}
