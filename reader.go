package wiregob

// reader provides sequential, bounded access to a single message's body.
// The bound is simply len(b): a message's body is read fully off the wire by
// the framer before any decoding starts, so "remaining budget" is just the
// tail of b past pos. Requests past the end fail with ErrTruncatedMessage
// rather than panicking, since malformed input is an expected, recoverable
// condition for this codec, not a programmer error.
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

// remaining reports how many bytes are left unread in this message.
func (r *reader) remaining() int {
	return len(r.b) - r.pos
}

// drain discards any bytes left in the message, tolerating under-reads: a
// decoder that finishes a value before consuming the whole message body is
// not an error.
func (r *reader) drain() {
	r.pos = len(r.b)
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, ErrTruncatedMessage
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

// unreadByte steps back one position, implementing the one-byte
// peek-and-stash the interface decoder needs to disambiguate a leading
// marker byte from the value payload's own first byte.
func (r *reader) unreadByte() {
	if r.pos > 0 {
		r.pos--
	}
}

func (r *reader) readRaw(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, ErrTruncatedMessage
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) readUvarint() (uint64, error) {
	v, n, err := takeUvarint(r.b[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *reader) readZigzag() (int64, error) {
	u, err := r.readUvarint()
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}

func (r *reader) readBool() (bool, error) {
	u, err := r.readUvarint()
	if err != nil {
		return false, err
	}
	switch u {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidData
	}
}

func (r *reader) readFloat64() (float64, error) {
	u, err := r.readUvarint()
	if err != nil {
		return 0, err
	}
	return uvarintBitsToFloat(u), nil
}

func (r *reader) readBytes() ([]byte, error) {
	n, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	return r.readRaw(int(n))
}

func (r *reader) readString() (string, error) {
	b, err := r.readBytes()
	if err != nil {
		return "", err
	}
	return validUTF8String(b)
}
