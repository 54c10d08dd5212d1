package sharecount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEndpointsAreValid(t *testing.T) {
	require.NoError(t, DefaultEndpoints().Validate())
}

func TestResolveDoesNotMutateTemplates(t *testing.T) {
	templates := DefaultEndpoints()
	resolvedEndpoints := templates.Resolve("http://a.example")

	assert.Contains(t, templates[APITwitter], Placeholder)
	assert.Equal(t, "http://urls.api.twitter.com/1/urls/count.json?url=http://a.example", resolvedEndpoints[APITwitter])
	assert.Contains(t, resolvedEndpoints[APIFacebook], "%22http://a.example%22")
}

func TestLoadEndpointsYAMLOverlaysDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "endpoints.yaml")
	content := `
endpoints:
  Facebook: https://graph.facebook.com/v2.2/?id=<url>
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	endpoints, err := LoadEndpoints(file)
	require.NoError(t, err)
	assert.Equal(t, "https://graph.facebook.com/v2.2/?id=<url>", endpoints[APIFacebook])
	assert.Equal(t, DefaultEndpoints()[APITwitter], endpoints[APITwitter])
}

func TestLoadEndpointsJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "endpoints.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"endpoints":{"googleplus":"http://localhost:9000/rpc"}}`), 0o644))

	endpoints, err := LoadEndpoints(file)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/rpc", endpoints[APIGooglePlus])
}

func TestParseEndpointsRejectsInvalidTemplates(t *testing.T) {
	cases := map[string]string{
		"unknown api":         "endpoints:\n  myspace: http://myspace.com/?u=<url>\n",
		"missing placeholder": "endpoints:\n  twitter: http://urls.api.twitter.com/1/urls/count.json\n",
		"relative url":        "endpoints:\n  linkedin: /countserv?url=<url>\n",
		"empty":               "endpoints: {}\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEndpoints([]byte(content), ".yaml")
			assert.Error(t, err)
		})
	}
}

func TestLoadEndpointsEmptyPath(t *testing.T) {
	_, err := LoadEndpoints(" ")
	assert.Error(t, err)
}
