package mqttlite

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"
)

// Encoding errors.
var (
	ErrStringTooLong      = errors.New("string exceeds maximum length of 65535 bytes")
	ErrBinaryTooLong      = errors.New("binary data exceeds maximum length of 65535 bytes")
	ErrInvalidUTF8        = errors.New("invalid UTF-8 string")
	ErrStringContainsNull = errors.New("string contains null character")
	ErrVarintTooLarge     = errors.New("variable byte integer exceeds maximum value")
	ErrVarintMalformed    = errors.New("malformed variable byte integer")
	ErrFieldOverrun       = errors.New("field exceeds remaining packet length")
	ErrTimeout            = errors.New("read timed out")
	ErrTransport          = errors.New("transport error")
)

const (
	maxUint16         = 65535
	maxVarint         = 268435455 // 0x0FFFFFFF
	varintContinueBit = 0x80
	varintValueMask   = 0x7F
	maxVarintBytes    = 4
	skipChunk         = 64
)

// Default decoder timing.
const (
	DefaultReadTimeout  = 3 * time.Second
	DefaultPollInterval = time.Millisecond
)

// VarintSize returns the number of bytes needed to encode a variable byte integer.
func VarintSize(value uint32) int {
	switch {
	case value < 128:
		return 1
	case value < 16384:
		return 2
	case value < 2097152:
		return 3
	default:
		return 4
	}
}

// StringPair represents a key-value string pair used in MQTT v5.0 properties.
type StringPair struct {
	Key   string
	Value string
}

func validateString(s string) error {
	if len(s) > maxUint16 {
		return ErrStringTooLong
	}
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	for i := range len(s) {
		if s[i] == 0 {
			return ErrStringContainsNull
		}
	}
	return nil
}

// Encoder writes MQTT primitives to an io.Writer and counts the bytes written.
type Encoder struct {
	w       io.Writer
	written int
	scratch [maxVarintBytes]byte
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Written returns the number of bytes written so far.
func (e *Encoder) Written() int {
	return e.written
}

// WriteBytes writes b verbatim.
func (e *Encoder) WriteBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	n, err := e.w.Write(b)
	e.written += n
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if n < len(b) {
		return fmt.Errorf("%w: %w", ErrTransport, io.ErrShortWrite)
	}
	return nil
}

// WriteByte writes a single byte.
func (e *Encoder) WriteByte(b byte) error {
	e.scratch[0] = b
	return e.WriteBytes(e.scratch[:1])
}

// WriteUint16 writes a big-endian two byte integer.
func (e *Encoder) WriteUint16(v uint16) error {
	binary.BigEndian.PutUint16(e.scratch[:2], v)
	return e.WriteBytes(e.scratch[:2])
}

// WriteUint32 writes a big-endian four byte integer.
func (e *Encoder) WriteUint32(v uint32) error {
	binary.BigEndian.PutUint32(e.scratch[:4], v)
	return e.WriteBytes(e.scratch[:4])
}

// WriteVarint writes a variable byte integer using the minimal number of bytes.
func (e *Encoder) WriteVarint(value uint32) error {
	if value > maxVarint {
		return ErrVarintTooLarge
	}

	n := 0
	for {
		encodedByte := byte(value & varintValueMask)
		value >>= 7

		if value > 0 {
			encodedByte |= varintContinueBit
		}

		e.scratch[n] = encodedByte
		n++

		if value == 0 {
			break
		}
	}

	return e.WriteBytes(e.scratch[:n])
}

// WriteString writes a UTF-8 string with 2-byte length prefix.
func (e *Encoder) WriteString(s string) error {
	if err := validateString(s); err != nil {
		return err
	}
	if err := e.WriteUint16(uint16(len(s))); err != nil {
		return err
	}
	return e.WriteBytes([]byte(s))
}

// WriteBinary writes binary data with 2-byte length prefix.
func (e *Encoder) WriteBinary(data []byte) error {
	if len(data) > maxUint16 {
		return ErrBinaryTooLong
	}
	if err := e.WriteUint16(uint16(len(data))); err != nil {
		return err
	}
	return e.WriteBytes(data)
}

// WriteStringPair writes a key and a value string.
func (e *Encoder) WriteStringPair(pair StringPair) error {
	if err := e.WriteString(pair.Key); err != nil {
		return err
	}
	return e.WriteString(pair.Value)
}

// TruncationKind identifies what was cut short while decoding.
type TruncationKind string

// Truncation kinds reported to a TruncationObserver.
const (
	TruncatedString   TruncationKind = "string"
	TruncatedBinary   TruncationKind = "binary"
	TruncatedPayload  TruncationKind = "payload"
	DroppedProperties TruncationKind = "properties"
	DroppedListItems  TruncationKind = "list_items"
	UnknownProperty   TruncationKind = "unknown_property"
)

// TruncationObserver is told about every byte the decoder discarded because
// a bounded container was full. dropped is the number of discarded bytes.
type TruncationObserver func(kind TruncationKind, dropped int)

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	Clock        Clock
	Timeout      time.Duration
	PollInterval time.Duration
	Observer     TruncationObserver
}

// Decoder reads MQTT primitives from a Stream.
//
// Every primitive read gets its own deadline of Now()+Timeout. Reads inside
// a packet are bounded by the packet budget set from the remaining length;
// a field that would cross it fails with ErrFieldOverrun.
type Decoder struct {
	stream   Stream
	clock    Clock
	timeout  time.Duration
	poll     time.Duration
	observer TruncationObserver

	read    int
	end     int
	buf     [maxVarintBytes]byte
	scratch [skipChunk]byte
}

// NewDecoder creates a decoder reading from s.
func NewDecoder(s Stream, opts DecoderOptions) *Decoder {
	d := &Decoder{
		stream:   s,
		clock:    opts.Clock,
		timeout:  opts.Timeout,
		poll:     opts.PollInterval,
		observer: opts.Observer,
		end:      -1,
	}
	if d.clock == nil {
		d.clock = SystemClock{}
	}
	if d.timeout <= 0 {
		d.timeout = DefaultReadTimeout
	}
	if d.poll <= 0 {
		d.poll = DefaultPollInterval
	}
	return d
}

// Consumed returns the number of bytes consumed from the stream.
func (d *Decoder) Consumed() int {
	return d.read
}

// Remaining returns the bytes left in the current packet budget.
func (d *Decoder) Remaining() int {
	if d.end < 0 {
		return math.MaxInt
	}
	return d.end - d.read
}

// limit narrows the budget to the next n bytes and returns the previous
// bound for restore.
func (d *Decoder) limit(n int) (int, error) {
	if n < 0 || n > d.Remaining() {
		return 0, ErrFieldOverrun
	}
	prev := d.end
	d.end = d.read + n
	return prev, nil
}

func (d *Decoder) restore(prev int) {
	d.end = prev
}

// Discard skips whatever is left of the current budget.
func (d *Decoder) Discard() error {
	if d.end < 0 {
		return nil
	}
	return d.Skip(d.Remaining())
}

func (d *Decoder) observe(kind TruncationKind, dropped int) {
	if d.observer != nil && dropped > 0 {
		d.observer(kind, dropped)
	}
}

func (d *Decoder) wait(deadline time.Time) error {
	for !d.stream.Readable() {
		if !d.clock.Now().Before(deadline) {
			return ErrTimeout
		}
		d.clock.Sleep(d.poll)
	}
	return nil
}

func (d *Decoder) readFull(p []byte) error {
	if len(p) > d.Remaining() {
		return ErrFieldOverrun
	}

	deadline := d.clock.Now().Add(d.timeout)
	filled := 0
	for filled < len(p) {
		if err := d.wait(deadline); err != nil {
			return err
		}

		n, err := d.stream.Read(p[filled:])
		filled += n
		d.read += n
		if err != nil {
			if errors.Is(err, io.EOF) && filled < len(p) {
				err = io.ErrUnexpectedEOF
			}
			if filled < len(p) {
				return fmt.Errorf("%w: %w", ErrTransport, err)
			}
		}
		if n == 0 && !d.clock.Now().Before(deadline) {
			return ErrTimeout
		}
	}
	return nil
}

// Skip discards n bytes, reading them in chunks of at most skipChunk.
// Every chunk gets its own read deadline.
func (d *Decoder) Skip(n int) error {
	if n <= 0 {
		return nil
	}
	if n > d.Remaining() {
		return ErrFieldOverrun
	}

	for n > 0 {
		chunk := d.scratch[:min(n, len(d.scratch))]
		if err := d.readFull(chunk); err != nil {
			return err
		}
		n -= len(chunk)
	}
	return nil
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if err := d.readFull(d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

// ReadUint16 reads a big-endian two byte integer.
func (d *Decoder) ReadUint16() (uint16, error) {
	if err := d.readFull(d.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.buf[:2]), nil
}

// ReadUint32 reads a big-endian four byte integer.
func (d *Decoder) ReadUint32() (uint32, error) {
	if err := d.readFull(d.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.buf[:4]), nil
}

// ReadVarint reads a variable byte integer of at most four bytes.
func (d *Decoder) ReadVarint() (uint32, error) {
	var value uint32
	var multiplier uint32 = 1

	for i := 0; ; i++ {
		if i == maxVarintBytes {
			return 0, ErrVarintMalformed
		}

		b, err := d.ReadByte()
		if err != nil {
			return 0, err
		}

		value += uint32(b&varintValueMask) * multiplier
		if b&varintContinueBit == 0 {
			return value, nil
		}
		multiplier *= 128
	}
}

// ReadBytes reads n bytes, keeping at most capacity of them.
// The excess is skipped and reported under kind.
func (d *Decoder) ReadBytes(n, capacity int, kind TruncationKind) ([]byte, error) {
	if n > d.Remaining() {
		return nil, ErrFieldOverrun
	}

	keep := min(n, max(0, capacity))
	var buf []byte
	if keep > 0 {
		buf = make([]byte, keep)
		if err := d.readFull(buf); err != nil {
			return nil, err
		}
	}

	if dropped := n - keep; dropped > 0 {
		if err := d.Skip(dropped); err != nil {
			return nil, err
		}
		d.observe(kind, dropped)
	}
	return buf, nil
}

// ReadBinary reads length-prefixed binary data, keeping at most capacity bytes.
func (d *Decoder) ReadBinary(capacity int) ([]byte, error) {
	length, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	return d.ReadBytes(int(length), capacity, TruncatedBinary)
}

// ReadString reads a length-prefixed UTF-8 string, keeping at most
// capacity bytes. A cut string is shortened to the last complete rune.
func (d *Decoder) ReadString(capacity int) (string, error) {
	length, err := d.ReadUint16()
	if err != nil {
		return "", err
	}

	n := int(length)
	if n > d.Remaining() {
		return "", ErrFieldOverrun
	}

	keep := min(n, max(0, capacity))
	buf := make([]byte, keep)
	if err := d.readFull(buf); err != nil {
		return "", err
	}
	if keep < n {
		buf = buf[:runeBoundary(buf)]
		if err := d.Skip(n - keep); err != nil {
			return "", err
		}
		d.observe(TruncatedString, n-len(buf))
	}

	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	for _, b := range buf {
		if b == 0 {
			return "", ErrStringContainsNull
		}
	}
	return string(buf), nil
}

// ReadStringPair reads a key and a value string.
func (d *Decoder) ReadStringPair(capacity int) (StringPair, error) {
	key, err := d.ReadString(capacity)
	if err != nil {
		return StringPair{}, err
	}
	value, err := d.ReadString(capacity)
	if err != nil {
		return StringPair{}, err
	}
	return StringPair{Key: key, Value: value}, nil
}

// runeBoundary returns the length of b without a trailing incomplete rune.
func runeBoundary(b []byte) int {
	n := len(b)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return n
			}
			return i
		}
	}
	return n
}
