package message

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestTileEventWireForm(t *testing.T) {
	e := TileEvent{Kind: TileRemoved, X: -1, Y: 3}
	b := e.Marshal(nil)

	// kind=2, x=zigzag(-1)=1, y=zigzag(3)=6; zero fields are omitted.
	assert.Equal(t, []byte{0x08, 0x02, 0x10, 0x01, 0x18, 0x06}, b)

	var got TileEvent
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, e, got)
}

func TestTileEventSkipsUnknownFields(t *testing.T) {
	e := TileEvent{Kind: TileBuilt, X: 2, Y: 5, Ref: 0x10041, DataSize: 4096, Polys: 12, BuildTimeUs: 1500}
	b := e.Marshal(nil)
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "extra")
	b = protowire.AppendTag(b, 100, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	var got TileEvent
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, e, got)
}

func TestTileEventMalformed(t *testing.T) {
	var e TileEvent
	assert.ErrorIs(t, e.Unmarshal([]byte{0x08}), ErrMalformed)
	assert.ErrorIs(t, e.Unmarshal([]byte{0x0a, 0x05, 0x01}), ErrMalformed)
}

func TestStream(t *testing.T) {
	events := []TileEvent{
		{Kind: TileBuilt, X: 0, Y: 0, Ref: 1, DataSize: 100, Polys: 2},
		{Kind: TileRemoved, X: 6, Y: 6},
		{Kind: TileBuilt, X: 3, Y: 1, Ref: 0x401, DataSize: 9000, Polys: 40, BuildTimeUs: 123456},
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := range events {
		require.NoError(t, w.Write(&events[i]))
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	for i := range events {
		e, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, events[i], *e)
	}
	_, err := r.Read()
	assert.ErrorIs(t, err, io.EOF)

	_, err = NewReader(bytes.NewReader(buf.Bytes()[:buf.Len()-1])).Read()
	require.NoError(t, err)
	r = NewReader(bytes.NewReader(buf.Bytes()[:buf.Len()-1]))
	for i := 0; i < len(events)-1; i++ {
		_, err = r.Read()
		require.NoError(t, err)
	}
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "built", TileBuilt.String())
	assert.Equal(t, "removed", TileRemoved.String())
	assert.Equal(t, "kind(9)", EventKind(9).String())
}
