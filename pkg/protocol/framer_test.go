package protocol

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rubi.go/pkg/can"
)

type frameRecorder struct {
	frames []can.Frame
	refuse int
	err    error
}

func (r *frameRecorder) SendFrame(f can.Frame) error {
	if r.err != nil {
		return r.err
	}
	if r.refuse > 0 {
		r.refuse--
		return can.ErrBusy
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *frameRecorder) decode(t *testing.T) (msgs []*Message, dropped []error) {
	var asm Reassembler
	for _, f := range r.frames {
		res := asm.Feed(f.Payload())
		if res.Dropped != nil {
			dropped = append(dropped, res.Dropped)
		}
		if res.Message != nil {
			msgs = append(msgs, res.Message)
		}
	}
	return
}

func payloadOf(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + n)
	}
	return data
}

func TestFramerRoundTrip(t *testing.T) {
	for n := 0; n <= MaxPayload; n++ {
		rec := &frameRecorder{}
		f := NewFramer(5, rec)
		data := payloadOf(n)
		require.NoError(t, f.Send(ClassField, 3, data))
		require.True(t, f.Idle())

		require.Len(t, rec.frames, FrameCount(n), "payload %d", n)
		for _, fr := range rec.frames {
			require.Equal(t, NodeID(5), fr.ID)
		}
		msgs, dropped := rec.decode(t)
		require.Empty(t, dropped)
		require.Len(t, msgs, 1)
		require.Equal(t, ClassField, msgs[0].Class)
		require.Equal(t, uint8(3), msgs[0].SubID)
		require.Equal(t, data, msgs[0].Data, "payload %d", n)
	}
}

func TestFramerFrameLayout(t *testing.T) {
	testCases := []struct {
		name   string
		size   int
		blocks int
	}{
		{name: "empty", size: 0},
		{name: "inline max", size: InlineMax},
		{name: "one block", size: 7, blocks: 1},
		{name: "two blocks", size: 8, blocks: 2},
		{name: "exact blocks", size: 14, blocks: 2},
		{name: "max payload", size: MaxPayload, blocks: 37},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &frameRecorder{}
			f := NewFramer(1, rec)
			require.NoError(t, f.Send(ClassInfo, InfoBoardName, payloadOf(tc.size)))
			if tc.blocks == 0 {
				require.Len(t, rec.frames, 1)
				fr := rec.frames[0]
				require.Equal(t, byte(ClassInfo), fr.Data[0])
				require.Equal(t, InfoBoardName, fr.Data[1])
				require.Equal(t, 2+tc.size, int(fr.Len))
				return
			}
			require.Len(t, rec.frames, tc.blocks+1)
			for _, fr := range rec.frames[:tc.blocks] {
				require.Equal(t, byte(ClassBlock), fr.Data[0])
			}
			trailer := rec.frames[tc.blocks]
			require.Equal(t, TrailerLen, int(trailer.Len))
			require.Equal(t, byte(ClassInfo)|FlagBlockTransfer, trailer.Data[0])
			require.Equal(t, InfoBoardName, trailer.Data[1])
			require.Equal(t, uint32(tc.blocks), binary.LittleEndian.Uint32(trailer.Data[2:6]))
		})
	}
}

func TestFramerCorruptedTrailer(t *testing.T) {
	for _, delta := range []int{-1, 1} {
		rec := &frameRecorder{}
		f := NewFramer(0, rec)
		require.NoError(t, f.Send(ClassField, 1, payloadOf(20)))
		trailer := &rec.frames[len(rec.frames)-1]
		count := binary.LittleEndian.Uint32(trailer.Data[2:6])
		binary.LittleEndian.PutUint32(trailer.Data[2:6], uint32(int(count)+delta))

		msgs, dropped := rec.decode(t)
		require.Empty(t, msgs)
		require.Len(t, dropped, 1)
		require.True(t, errors.Is(dropped[0], ErrBlockCountMismatch))
	}
}

func TestFramerRetriesRefusedFrames(t *testing.T) {
	rec := &frameRecorder{refuse: 2}
	f := NewFramer(2, rec)
	require.NoError(t, f.Send(ClassField, 1, payloadOf(10)))
	require.Empty(t, rec.frames)
	require.False(t, f.Idle())

	// the second refusal keeps both messages queued until the next flush
	require.NoError(t, f.Send(ClassFunction, 2, payloadOf(3)))
	require.Empty(t, rec.frames)
	require.False(t, f.Idle())

	require.NoError(t, f.Flush())
	require.True(t, f.Idle())
	msgs, dropped := rec.decode(t)
	require.Empty(t, dropped)
	require.Len(t, msgs, 2)
	require.Equal(t, payloadOf(10), msgs[0].Data)
	require.Equal(t, ClassFunction, msgs[1].Class)
}

func TestFramerRefusedMidTransfer(t *testing.T) {
	rec := &frameRecorder{}
	f := NewFramer(2, rec)
	sender := SendFrameFunc(func(fr can.Frame) error {
		if len(rec.frames) == 2 && rec.refuse == 0 {
			rec.refuse = -1
			return can.ErrBusy
		}
		return rec.SendFrame(fr)
	})
	f.Sender = sender
	require.NoError(t, f.Send(ClassField, 1, payloadOf(30)))
	require.Len(t, rec.frames, 2)
	require.NoError(t, f.Flush())
	require.True(t, f.Idle())
	msgs, dropped := rec.decode(t)
	require.Empty(t, dropped)
	require.Len(t, msgs, 1)
	require.Equal(t, payloadOf(30), msgs[0].Data)
}

func TestFramerFullRing(t *testing.T) {
	rec := &frameRecorder{refuse: 1 << 20}
	f := &Framer{Node: 1, Sender: rec, ring: NewRing(64)}
	require.NoError(t, f.Send(ClassField, 1, payloadOf(50)))
	require.Equal(t, ErrTxFull, f.Send(ClassField, 1, payloadOf(20)))
	require.Equal(t, ErrPayloadTooLarge, f.Send(ClassField, 1, make([]byte, MaxPayload+1)))

	rec.refuse = 3
	f.Blocking = true
	require.NoError(t, f.Send(ClassField, 2, payloadOf(20)))
	require.NoError(t, f.Flush())
	msgs, dropped := rec.decode(t)
	require.Empty(t, dropped)
	require.Len(t, msgs, 2)
	require.Equal(t, payloadOf(20), msgs[1].Data)
}

func TestFramerSendError(t *testing.T) {
	rec := &frameRecorder{err: can.ErrClosed}
	f := NewFramer(1, rec)
	err := f.Send(ClassCommand, CmdKeepAlive, nil)
	require.True(t, errors.Is(err, can.ErrClosed))
	require.False(t, f.Idle())
	rec.err = nil
	require.NoError(t, f.Flush())
	require.Len(t, rec.frames, 1)
	f.Reset()
	require.True(t, f.Idle())
}
