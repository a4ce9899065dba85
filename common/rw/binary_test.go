package rw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteInt32(int32(-7))
	w.WriteInt32(uint32(0x4D534554))
	w.WriteInt16(uint16(0xffff))
	w.WriteInt8(uint8(3))
	w.WriteFloat32s([]float32{1.5, -2.25})
	w.PadZero(1)

	r := NewReader(w.GetWriteBytes())
	require.Equal(t, int32(-7), r.ReadInt32())
	require.Equal(t, uint32(0x4D534554), r.ReadUInt32())
	require.Equal(t, uint16(0xffff), r.ReadUInt16())
	require.Equal(t, uint8(3), r.ReadUInt8())
	f := make([]float32, 2)
	r.ReadFloat32s(f)
	require.Equal(t, []float32{1.5, -2.25}, f)
	r.Skip(1)
	require.NoError(t, r.Err())
	require.Zero(t, r.Remaining())
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	require.Equal(t, uint32(0), r.ReadUInt32())
	require.ErrorIs(t, r.Err(), ErrShortBuffer)
	// errors are sticky
	require.Equal(t, uint8(0), r.ReadUInt8())
	require.ErrorIs(t, r.Err(), ErrShortBuffer)
	require.Nil(t, NewReader(nil).ReadBytes(1))
}
