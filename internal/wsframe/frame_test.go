package wsframe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialect_String(t *testing.T) {
	require.Equal(t, "hixie75", Hixie75.String())
	require.Equal(t, "hybi00", HyBi00.String())
	require.Equal(t, "hybi06", HyBi06.String())
	require.Equal(t, "hybi-latest", HyBiLatest.String())
	require.Contains(t, Dialect(99).String(), "dialect(99)")
}

func TestDialect_IsLegacy(t *testing.T) {
	require.True(t, Hixie75.IsLegacy())
	require.True(t, HyBi00.IsLegacy())
	require.False(t, HyBi06.IsLegacy())
	require.False(t, HyBiLatest.IsLegacy())
}

func TestOpcodes_PanicsOnLegacyDialect(t *testing.T) {
	require.Panics(t, func() { Opcodes(Hixie75) })
	require.Panics(t, func() { Opcodes(HyBi00) })
}

func TestOpcodeTable_IsControl(t *testing.T) {
	table := Opcodes(HyBiLatest)
	require.True(t, table.IsControl(table.Close))
	require.True(t, table.IsControl(table.Ping))
	require.True(t, table.IsControl(table.Pong))
	require.False(t, table.IsControl(table.Text))
}

func TestNew_DispatchesByDialect(t *testing.T) {
	require.Equal(t, Hixie75, New(Hixie75, nil).Dialect())
	require.Equal(t, HyBi00, New(HyBi00, nil).Dialect())
	require.Equal(t, HyBi06, New(HyBi06, nil).Dialect())
	require.Equal(t, HyBiLatest, New(HyBiLatest, nil).Dialect())
}
