package wshandshake

import (
	"crypto/md5"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractKeyNumber(t *testing.T) {
	cases := []struct {
		raw     string
		want    uint32
		wantErr bool
	}{
		{"1 1", 1, false},
		{"10 2", 102, false},      // digits "102", 1 space -> 102
		{"7      9", 0, true},     // digits "79", 6 spaces -> not an integer
		{"no digits   here", 0, true},
		{"12345", 0, true}, // no spaces at all
	}
	for _, tc := range cases {
		got, err := extractKeyNumber(tc.raw)
		if tc.wantErr {
			require.Errorf(t, err, "raw %q", tc.raw)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

func TestComputeHyBi00Challenge(t *testing.T) {
	key1 := "1 1"  // digits "1", 1 space -> 1
	key2 := "4 2 " // digits "42", 2 spaces -> 21
	body := []byte("12345678")

	got, err := ComputeHyBi00Challenge(key1, key2, body)
	require.NoError(t, err)

	var buf [16]byte
	binary.BigEndian.PutUint32(buf[0:4], 1)
	binary.BigEndian.PutUint32(buf[4:8], 21)
	copy(buf[8:16], body)
	want := md5.Sum(buf[:])

	require.Equal(t, want[:], got)
}

func TestComputeHyBi00Challenge_RejectsShortBody(t *testing.T) {
	_, err := ComputeHyBi00Challenge("1 1", "4 2 ", []byte("short"))
	require.Error(t, err)
}
