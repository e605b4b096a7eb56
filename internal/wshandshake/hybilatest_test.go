package wshandshake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeAcceptHyBiLatest_RFC6455Vector(t *testing.T) {
	// The worked example from RFC 6455 §1.3.
	accept, err := ComputeAcceptHyBiLatest("dGhlIHNhbXBsZSBub25jZQ==")
	require.NoError(t, err)
	require.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", accept)
}

func TestComputeAcceptHyBiLatest_RejectsMalformedKey(t *testing.T) {
	cases := []string{"", "not-base64!!", "dGhlIHNhbXBsZSBub25jZQ", "YQ=="}
	for _, key := range cases {
		_, err := ComputeAcceptHyBiLatest(key)
		require.Errorf(t, err, "key %q", key)
	}
}
