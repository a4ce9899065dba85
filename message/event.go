package message

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// EventKind tells what happened to a tile.
type EventKind int32

const (
	TileBuilt EventKind = iota + 1
	TileRemoved
)

func (k EventKind) String() string {
	switch k {
	case TileBuilt:
		return "built"
	case TileRemoved:
		return "removed"
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}

// TileEvent reports a change of one tile of a nav mesh. It is encoded as a
// protobuf message with the field numbers below.
type TileEvent struct {
	Kind        EventKind
	X, Y        int32
	Ref         uint32
	DataSize    int32
	Polys       int32
	BuildTimeUs int64
}

const (
	fieldKind protowire.Number = iota + 1
	fieldX
	fieldY
	fieldRef
	fieldDataSize
	fieldPolys
	fieldBuildTime
)

var ErrMalformed = errors.New("message: malformed tile event")

// Marshal appends the wire form of e to b.
func (e *TileEvent) Marshal(b []byte) []byte {
	b = appendVarint(b, fieldKind, uint64(e.Kind))
	b = appendVarint(b, fieldX, protowire.EncodeZigZag(int64(e.X)))
	b = appendVarint(b, fieldY, protowire.EncodeZigZag(int64(e.Y)))
	b = appendVarint(b, fieldRef, uint64(e.Ref))
	b = appendVarint(b, fieldDataSize, uint64(e.DataSize))
	b = appendVarint(b, fieldPolys, uint64(e.Polys))
	b = appendVarint(b, fieldBuildTime, uint64(e.BuildTimeUs))
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// Unmarshal decodes b into e. Unknown fields are skipped.
func (e *TileEvent) Unmarshal(b []byte) error {
	*e = TileEvent{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldKind:
			e.Kind = EventKind(v)
		case fieldX:
			e.X = int32(protowire.DecodeZigZag(v))
		case fieldY:
			e.Y = int32(protowire.DecodeZigZag(v))
		case fieldRef:
			e.Ref = uint32(v)
		case fieldDataSize:
			e.DataSize = int32(v)
		case fieldPolys:
			e.Polys = int32(v)
		case fieldBuildTime:
			e.BuildTimeUs = int64(v)
		}
	}
	return nil
}

// Writer writes length delimited events.
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(e *TileEvent) error {
	w.buf = protowire.AppendBytes(w.buf[:0], e.Marshal(nil))
	_, err := w.w.Write(w.buf)
	return err
}

// Reader reads events written by Writer.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the next event, or io.EOF at a clean end of stream.
func (r *Reader) Read() (*TileEvent, error) {
	size, err := readUvarint(r.r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	e := new(TileEvent)
	if err := e.Unmarshal(b); err != nil {
		return nil, err
	}
	return e, nil
}

func readUvarint(r io.ByteReader) (uint64, error) {
	var buf [binaryMaxVarintLen]byte
	for i := range buf {
		c, err := r.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("%w: short length prefix", ErrMalformed)
			}
			return 0, err
		}
		buf[i] = c
		if c < 0x80 {
			v, n := protowire.ConsumeVarint(buf[:i+1])
			if n < 0 {
				return 0, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: length prefix overflow", ErrMalformed)
}

const binaryMaxVarintLen = 10
