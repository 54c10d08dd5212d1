package sharecount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork("  Facebook_Share ")
	require.NoError(t, err)
	assert.Equal(t, FacebookShare, n)

	n, err = ParseNetwork("all")
	require.NoError(t, err)
	assert.Equal(t, All, n)

	_, err = ParseNetwork("friendster")
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)

	_, err = ParseNetwork("")
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}

func TestParseNetworksSplitsCommas(t *testing.T) {
	got, err := ParseNetworks([]string{"twitter,linkedin", " pinterest ", ""})
	require.NoError(t, err)
	assert.Equal(t, []Network{Twitter, LinkedIn, Pinterest}, got)

	_, err = ParseNetworks([]string{"twitter,orkut"})
	assert.Error(t, err)
}

func TestEveryKnownNetworkIsDispatchable(t *testing.T) {
	for _, n := range KnownNetworks() {
		assert.True(t, n.Supported(), "%s", n)
		if n == All {
			continue
		}
		_, ok := n.API()
		assert.True(t, ok, "%s has no endpoint", n)
	}
	assert.Len(t, fetchers, len(KnownNetworks())-1)
}

func TestStripJSONP(t *testing.T) {
	assert.Equal(t, `{"count":7}`, string(stripJSONP([]byte(`receiveCount({"count":7})`))))
	assert.Equal(t, `{"count":7}`, string(stripJSONP([]byte("receiveCount({\"count\":7});\n"))))
	assert.Equal(t, `{"count":7}`, string(stripJSONP([]byte(`{"count":7}`))))
}
