package wiregob

import "sync"

// buffer accumulates encoded bytes during a single message's construction.
// Supports only append operations - the codec never needs to patch bytes
// once written, only measure and prefix them.
type buffer struct {
	b []byte
}

var bufferPool = sync.Pool{
	New: func() any { return &buffer{} },
}

// getBuffer obtains a reset buffer from the pool. Call putBuffer when done.
func getBuffer() *buffer {
	buf := bufferPool.Get().(*buffer)
	buf.b = buf.b[:0]
	return buf
}

// putBuffer releases a buffer back to the pool. Using it afterwards is
// undefined behavior.
func putBuffer(buf *buffer) {
	bufferPool.Put(buf)
}

func (buf *buffer) Bytes() []byte { return buf.b }
func (buf *buffer) Len() int      { return len(buf.b) }

// AppendUvarint encodes an unsigned integer using the gob uvarint scheme.
func (buf *buffer) AppendUvarint(v uint64) {
	buf.b = appendUvarint(buf.b, v)
}

// AppendZigzag encodes a signed integer using the zigzag-like fold.
func (buf *buffer) AppendZigzag(v int64) {
	buf.AppendUvarint(zigzagEncode(v))
}

// AppendBool encodes a boolean as uvarint 0 or 1.
func (buf *buffer) AppendBool(v bool) {
	if v {
		buf.AppendUvarint(1)
	} else {
		buf.AppendUvarint(0)
	}
}

// AppendFloat64 encodes a float64 as its byte-reversed bit pattern.
func (buf *buffer) AppendFloat64(v float64) {
	buf.AppendUvarint(floatToUvarintBits(v))
}

// AppendBytes writes a length-prefixed byte slice.
func (buf *buffer) AppendBytes(v []byte) {
	buf.AppendUvarint(uint64(len(v)))
	buf.b = append(buf.b, v...)
}

// AppendString writes a length-prefixed UTF-8 string.
func (buf *buffer) AppendString(v string) {
	buf.AppendUvarint(uint64(len(v)))
	buf.b = append(buf.b, v...)
}

// AppendRaw copies bytes verbatim with no length prefix, used for interface
// payloads once their length has already been emitted.
func (buf *buffer) AppendRaw(v []byte) {
	buf.b = append(buf.b, v...)
}
