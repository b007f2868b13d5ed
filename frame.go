package wiregob

import (
	"bufio"
	"io"
)

// FrameWriter partitions an outbound byte stream into length-prefixed
// messages: length ‖ id ‖ body, where length counts id ‖ body. A message's
// body is assembled in a pooled buffer before its length is known; the
// length prefix and the staged bytes are then written in two calls.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter wraps w for message-framed output. w must supply
// sequential, unbuffered-or-not writes; wiregob never reorders its calls
// to it.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteMessage emits one frame. emitBody appends the message body (id
// excluded - WriteMessage adds that) to the staging buffer it's given.
func (fw *FrameWriter) WriteMessage(id int64, emitBody func(*buffer) error) error {
	body := getBuffer()
	defer putBuffer(body)

	body.AppendZigzag(id)
	if err := emitBody(body); err != nil {
		return err
	}

	var lenBuf buffer
	lenBuf.AppendUvarint(uint64(body.Len()))

	if _, err := fw.w.Write(lenBuf.Bytes()); err != nil {
		return err
	}
	if _, err := fw.w.Write(body.Bytes()); err != nil {
		return err
	}
	return nil
}

// FrameReader reassembles length-prefixed messages from an inbound byte
// stream, bounding every subsequent decode by the message's own byte
// budget.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r for message-framed input.
func NewFrameReader(r io.Reader) *FrameReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameReader{r: br}
}

// ReadMessage reads the next frame and returns its id and a reader bounded
// to the message's remaining body. A negative id carries a schema
// definition; a positive id carries a value for that registered schema.
// io.EOF at a message boundary is a clean end of stream; anything else
// mid-message surfaces as ErrTruncatedStream.
func (fr *FrameReader) ReadMessage() (id int64, body *reader, err error) {
	length, err := readUvarintFromByteReader(fr.r)
	if err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return 0, nil, ErrTruncatedStream
	}

	body = newReader(buf)
	id, err = body.readZigzag()
	if err != nil {
		return 0, nil, err
	}
	return id, body, nil
}

// readUvarintFromByteReader decodes a uvarint directly off a byte source,
// since the framer doesn't know a message's length until this value is
// parsed. io.EOF on the very first byte propagates unchanged (a clean
// stream boundary); any EOF thereafter is a truncated stream.
func readUvarintFromByteReader(br io.ByteReader) (uint64, error) {
	b0, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	if b0 < 0x80 {
		return uint64(b0), nil
	}

	count := int(^b0) + 1
	if count > 8 {
		return 0, ErrInvalidData
	}

	var v uint64
	for i := 0; i < count; i++ {
		b, err := br.ReadByte()
		if err != nil {
			return 0, ErrTruncatedStream
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}
