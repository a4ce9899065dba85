package rw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is reported when a read runs past the end of the source buffer.
var ErrShortBuffer = errors.New("rw: read past end of buffer")

// ReaderWriter is a little-endian binary codec. A writer appends to an internal buffer;
// a reader walks a borrowed byte slice and remembers the first error it hits, so a
// sequence of reads can be checked once with Err.
type ReaderWriter struct {
	order   binary.ByteOrder
	dataBuf []byte
	rw      bytes.Buffer
	src     []byte
	off     int
	err     error
}

func NewWriter() *ReaderWriter {
	return &ReaderWriter{order: binary.LittleEndian, dataBuf: make([]byte, 8)}
}

func NewReader(data []byte) *ReaderWriter {
	return &ReaderWriter{order: binary.LittleEndian, dataBuf: make([]byte, 8), src: data}
}

func (w *ReaderWriter) next(n int) []byte {
	if w.err != nil {
		return nil
	}
	if n < 0 || w.off+n > len(w.src) {
		w.err = ErrShortBuffer
		w.off = len(w.src)
		return nil
	}
	b := w.src[w.off : w.off+n]
	w.off += n
	return b
}

// Err returns the first read error.
func (w *ReaderWriter) Err() error {
	return w.err
}

// Remaining returns the number of unread bytes.
func (w *ReaderWriter) Remaining() int {
	return len(w.src) - w.off
}

func (w *ReaderWriter) Offset() int {
	return w.off
}

func (w *ReaderWriter) ReadUInt8() uint8 {
	b := w.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (w *ReaderWriter) ReadUInt8s(value []uint8) {
	b := w.next(len(value))
	if b == nil {
		return
	}
	copy(value, b)
}

func (w *ReaderWriter) ReadUInt16() uint16 {
	b := w.next(2)
	if b == nil {
		return 0
	}
	return w.order.Uint16(b)
}

func (w *ReaderWriter) ReadUInt16s(value []uint16) {
	for i := range value {
		value[i] = w.ReadUInt16()
	}
}

func (w *ReaderWriter) ReadInt32() int32 {
	return int32(w.ReadUInt32())
}

func (w *ReaderWriter) ReadUInt32() uint32 {
	b := w.next(4)
	if b == nil {
		return 0
	}
	return w.order.Uint32(b)
}

func (w *ReaderWriter) ReadUInt32s(value []uint32) {
	for i := range value {
		value[i] = w.ReadUInt32()
	}
}

func (w *ReaderWriter) ReadFloat32() float32 {
	return math.Float32frombits(w.ReadUInt32())
}

func (w *ReaderWriter) ReadFloat32s(value []float32) {
	for i := range value {
		value[i] = w.ReadFloat32()
	}
}

// ReadBytes returns a copy of the next n bytes.
func (w *ReaderWriter) ReadBytes(n int) []byte {
	b := w.next(n)
	if b == nil {
		return nil
	}
	res := make([]byte, n)
	copy(res, b)
	return res
}

func (w *ReaderWriter) Skip(size int) {
	w.next(size)
}

func (w *ReaderWriter) WriteInt8(v interface{}) {
	switch value := v.(type) {
	case int8:
		w.rw.WriteByte(byte(value))
	case uint8:
		w.rw.WriteByte(value)
	default:
		panic("not impl")
	}
}

func (w *ReaderWriter) WriteInt8s(value []uint8) {
	w.rw.Write(value)
}

func (w *ReaderWriter) WriteInt16(v interface{}) {
	switch value := v.(type) {
	case int16:
		w.order.PutUint16(w.dataBuf, uint16(value))
	case uint16:
		w.order.PutUint16(w.dataBuf, value)
	default:
		panic("not impl")
	}
	w.rw.Write(w.dataBuf[:2])
}

func (w *ReaderWriter) WriteInt16s(value []uint16) {
	for _, tmp := range value {
		w.WriteInt16(tmp)
	}
}

func (w *ReaderWriter) WriteInt32(v interface{}) {
	switch value := v.(type) {
	case int32:
		w.order.PutUint32(w.dataBuf, uint32(value))
	case int:
		w.order.PutUint32(w.dataBuf, uint32(value))
	case uint32:
		w.order.PutUint32(w.dataBuf, value)
	default:
		panic("not impl")
	}
	w.rw.Write(w.dataBuf[:4])
}

func (w *ReaderWriter) WriteInt32s(value []uint32) {
	for _, tmp := range value {
		w.WriteInt32(tmp)
	}
}

func (w *ReaderWriter) WriteFloat32(value float32) {
	w.order.PutUint32(w.dataBuf, math.Float32bits(value))
	w.rw.Write(w.dataBuf[:4])
}

func (w *ReaderWriter) WriteFloat32s(value []float32) {
	for _, tmp := range value {
		w.WriteFloat32(tmp)
	}
}

func (w *ReaderWriter) WriteBytes(b []byte) {
	w.rw.Write(b)
}

func (w *ReaderWriter) PadZero(n int) {
	for i := 0; i < n; i++ {
		w.rw.WriteByte(0)
	}
}

func (w *ReaderWriter) GetWriteBytes() []byte {
	return w.rw.Bytes()
}

func (w *ReaderWriter) Size() int {
	return w.rw.Len()
}
