package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLength(t *testing.T) {
	require.NotPanics(t, func() { Length("0A1B2C3D4E", 10) })
	require.PanicsWithValue(t, "assert.Length expected 6 actual 5", func() { Length("12345", 6) })
}
