package can

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFrame(t *testing.T) {
	testCases := []struct {
		name string
		id   uint32
		data []byte
		err  error
	}{
		{name: "empty", id: 0x100},
		{name: "full", id: 0x7fe, data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{name: "too long", id: 0x100, data: make([]byte, 9), err: ErrInvalidLen},
		{name: "extended", id: 0x12345, data: []byte{1}},
		{name: "extended overflow", id: 0x20000000, err: ErrInvalidID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFrame(tc.id, tc.data)
			if tc.err != nil {
				require.Equal(t, tc.err, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.id, f.ID)
			require.Equal(t, len(tc.data), int(f.Len))
			require.Equal(t, tc.id > MaxStdID, f.Extended)
			if len(tc.data) > 0 {
				require.Equal(t, tc.data, f.Payload())
			}
		})
	}
}

func TestFrameBinaryLayout(t *testing.T) {
	f, err := NewFrame(0x123, []byte{0xde, 0xad})
	require.NoError(t, err)
	buf, err := f.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x23, 0x01, 0, 0, 2, 0, 0, 0,
		0xde, 0xad, 0, 0, 0, 0, 0, 0,
	}, buf)

	var out Frame
	require.NoError(t, out.UnmarshalBinary(buf))
	require.Equal(t, f, out)

	ext, err := NewFrame(0x1abcdef, []byte{1})
	require.NoError(t, err)
	buf, err = ext.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, byte(0x81), buf[3])
	require.NoError(t, out.UnmarshalBinary(buf))
	require.True(t, out.Extended)
	require.Equal(t, uint32(0x1abcdef), out.ID)

	buf[3] |= 0x40
	require.Error(t, out.UnmarshalBinary(buf))
	require.Error(t, out.UnmarshalBinary(buf[:8]))
}

func TestFrameString(t *testing.T) {
	f, _ := NewFrame(0x201, []byte{0x02, 0x01, 0xff})
	require.Equal(t, "201 [3] 02 01 FF", f.String())
}
