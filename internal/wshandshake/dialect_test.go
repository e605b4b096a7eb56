package wshandshake

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepnova/wsengine/internal/wsframe"
)

func TestDetect_HyBiLatest(t *testing.T) {
	h := http.Header{"Sec-Websocket-Version": {"13"}}
	d, err := Detect(h, nil, false)
	require.NoError(t, err)
	require.Equal(t, wsframe.HyBiLatest, d)
}

func TestDetect_HyBi06Versions(t *testing.T) {
	for _, v := range []string{"4", "5", "6"} {
		h := http.Header{"Sec-Websocket-Version": {v}}
		d, err := Detect(h, nil, false)
		require.NoError(t, err)
		require.Equal(t, wsframe.HyBi06, d)
	}
}

func TestDetect_HyBi00(t *testing.T) {
	h := http.Header{
		"Sec-Websocket-Key1": {"1  2"},
		"Sec-Websocket-Key2": {"3  4"},
	}
	d, err := Detect(h, make([]byte, 8), false)
	require.NoError(t, err)
	require.Equal(t, wsframe.HyBi00, d)
}

func TestDetect_HyBi00WrongBodyLengthFallsThrough(t *testing.T) {
	h := http.Header{
		"Sec-Websocket-Key1": {"1  2"},
		"Sec-Websocket-Key2": {"3  4"},
	}
	_, err := Detect(h, make([]byte, 4), false)
	require.Error(t, err)
}

func TestDetect_Hixie75RequiresOptIn(t *testing.T) {
	h := http.Header{}
	_, err := Detect(h, nil, false)
	require.Error(t, err)

	d, err := Detect(h, nil, true)
	require.NoError(t, err)
	require.Equal(t, wsframe.Hixie75, d)
}
