//go:build linux

package can

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsInterfaceUp(t *testing.T) {
	up, err := IsInterfaceUp("lo")
	require.NoError(t, err)
	require.True(t, up)

	_, err = IsInterfaceUp("")
	require.Error(t, err)
	_, err = IsInterfaceUp("an-interface-name-too-long")
	require.Error(t, err)
}

func TestOpenSocketCANMissingInterface(t *testing.T) {
	_, err := OpenSocketCAN("nocan42")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nocan42")
}
