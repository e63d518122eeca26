package mqttlite

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Stream errors.
var (
	ErrSeekUnsupported = errors.New("stream only supports forward seek from current position")
)

// Stream is the byte channel the client talks to the broker over.
// Readable reports whether a Read would return data without blocking.
// Seek is only required to support whence io.SeekCurrent with a
// non-negative offset, which discards that many bytes. The Decoder never
// seeks; it skips input through Read so every chunk has a deadline.
type Stream interface {
	Readable() bool
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
}

// Flusher is implemented by streams that buffer writes.
// The client flushes after every packet it sends.
type Flusher interface {
	Flush() error
}

// Clock is a monotonic time source used for read timeouts.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is a Clock backed by the time package.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep pauses the calling goroutine for d.
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

type lener interface {
	Len() int
}

// ReadWriteStream adapts an in-memory io.ReadWriter to Stream.
// Readable uses Len when the underlying value provides it (bytes.Buffer,
// bytes.Reader) and reports true otherwise, leaving blocking to Read, so
// read timeouts only hold for values with Len. Wrap a net.Conn with
// NewConnStream instead.
type ReadWriteStream struct {
	rw  io.ReadWriter
	pos int64
}

// NewStream wraps rw as a Stream. Use NewConnStream for sockets.
func NewStream(rw io.ReadWriter) *ReadWriteStream {
	return &ReadWriteStream{rw: rw}
}

// Readable reports whether data is buffered.
func (s *ReadWriteStream) Readable() bool {
	if l, ok := s.rw.(lener); ok {
		return l.Len() > 0
	}
	return true
}

// Read reads from the underlying reader.
func (s *ReadWriteStream) Read(p []byte) (int, error) {
	n, err := s.rw.Read(p)
	s.pos += int64(n)
	return n, err
}

// Write writes to the underlying writer.
func (s *ReadWriteStream) Write(p []byte) (int, error) {
	return s.rw.Write(p)
}

// Seek discards offset bytes from the read side.
func (s *ReadWriteStream) Seek(offset int64, whence int) (int64, error) {
	n, err := discard(s.rw, offset, whence)
	s.pos += n
	return s.pos, err
}

// Flush flushes the underlying writer if it buffers.
func (s *ReadWriteStream) Flush() error {
	if f, ok := s.rw.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

func discard(r io.Reader, offset int64, whence int) (int64, error) {
	if whence != io.SeekCurrent || offset < 0 {
		return 0, ErrSeekUnsupported
	}
	if offset == 0 {
		return 0, nil
	}

	n, err := io.CopyN(io.Discard, r, offset)
	if err != nil {
		return n, fmt.Errorf("discard %d bytes: %w", offset, err)
	}
	return n, nil
}
